// title/density.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package title

import (
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/mmp/titlestore/log"
)

// DensityOpener prefers high-density variants of assets. For a key like
// "ui/button.png" it first checks Base for "ui/button@2x.png" and opens
// that if it exists; otherwise it falls back to the key itself.
type DensityOpener struct {
	Base StatOpener
	// Marker defaults to DefaultDensityMarker.
	Marker string
	Log    *log.Logger
}

// VariantName inserts marker immediately before the extension of the
// final element of key.
func VariantName(key, marker string) string {
	dir, file := path.Split(key)
	ext := path.Ext(file)
	return dir + strings.TrimSuffix(file, ext) + marker + ext
}

func (d *DensityOpener) Open(key string) (io.ReadCloser, error) {
	marker := d.Marker
	if marker == "" {
		marker = DefaultDensityMarker
	}

	variant := VariantName(key, marker)
	if fi, err := d.Base.Stat(variant); err == nil && !fi.IsDir() {
		d.Log.Debug("using high-density variant", slog.String("key", key), slog.String("variant", variant))
		return d.Base.Open(variant)
	}
	return d.Base.Open(key)
}

func (d *DensityOpener) Stat(key string) (fs.FileInfo, error) {
	return d.Base.Stat(key)
}

func (d *DensityOpener) Close() error {
	if c, ok := d.Base.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
