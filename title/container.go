// title/container.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package title provides read access to a title's bundled assets. Callers
// name assets with engine-relative paths; a Container normalizes the name
// and hands it to the Opener for the platform's kind of storage.
package title

import (
	"io"
	"io/fs"
	"log/slog"
	"path"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/mmp/titlestore/log"
	"github.com/mmp/titlestore/platform"
)

// Container is the title storage area. It is immutable after
// construction and safe for concurrent use.
type Container struct {
	loc    Location
	opener Opener
	lg     *log.Logger
}

func NewContainer(loc Location, opener Opener, lg *log.Logger) *Container {
	return &Container{loc: loc, opener: opener, lg: lg}
}

// NewFileContainer returns a Container that reads from loc.Root,
// preferring @2x variants if loc is high density.
func NewFileContainer(loc Location, lg *log.Logger) *Container {
	return NewContainer(loc, loc.FileOpener(), lg)
}

func (c *Container) Location() Location {
	return c.loc
}

// OpenStream returns an open stream for the named asset, positioned at
// its start. The caller must close it. name must be relative; rooted
// names fail with ErrInvalidName before any I/O is done. A missing asset
// fails with a *NotFoundError.
func (c *Container) OpenStream(name string) (io.ReadCloser, error) {
	key, err := Key(name)
	if err != nil {
		return nil, err
	}

	r, err := c.opener.Open(key)
	if err != nil {
		c.lg.Debug("open failed", slog.String("name", name), slog.String("key", key), slog.Any("error", err))
		return nil, err
	}
	return r, nil
}

// Exists reports whether the named asset can be opened.
func (c *Container) Exists(name string) bool {
	key, err := Key(name)
	if err != nil {
		return false
	}

	if so, ok := c.opener.(StatOpener); ok {
		fi, err := so.Stat(key)
		return err == nil && !fi.IsDir()
	}

	r, err := c.opener.Open(key)
	if err != nil {
		return false
	}
	r.Close()
	return true
}

// Load is like OpenStream, but if the asset is zstd compressed (its name
// ends in .zst), the returned stream decompresses it transparently.
func (c *Container) Load(name string) (io.ReadCloser, error) {
	r, err := c.OpenStream(name)
	if err != nil {
		return nil, err
	}

	if path.Ext(Normalize(name)) != ".zst" {
		return r, nil
	}

	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		r.Close()
		return nil, err
	}
	return &zstdReadCloser{Decoder: zr, r: r}, nil
}

// LoadBytes returns the full, decompressed contents of the named asset.
func (c *Container) LoadBytes(name string) ([]byte, error) {
	r, err := c.Load(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// Close releases resources held by the container's opener, such as
// remote storage clients or open archives.
func (c *Container) Close() error {
	if cl, ok := c.opener.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

// The zstd Decoder's Close() method doesn't return an error and doesn't
// close the underlying stream, so we wrap it.
type zstdReadCloser struct {
	*zstd.Decoder
	r io.ReadCloser
}

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return z.r.Close()
}

///////////////////////////////////////////////////////////////////////////
// Process-wide default

// DefaultBundle is the asset bundle used by Default on container
// platforms. Applications targeting them set it from an init function,
// typically to an embed.FS.
var DefaultBundle fs.FS

var defaultContainer = sync.OnceValues(func() (*Container, error) {
	loc, err := DetectLocation()
	if err != nil {
		return nil, err
	}

	if loc.Kind == platform.Container {
		if DefaultBundle == nil {
			return nil, ErrNoBundle
		}
		bundle := NewBundleOpener(DefaultBundle)
		if loc.HighDensity {
			return NewContainer(loc, &DensityOpener{Base: bundle}, nil), nil
		}
		return NewContainer(loc, bundle, nil), nil
	}
	return NewFileContainer(loc, nil), nil
})

// Default returns the process-wide Container. Its location is detected
// the first time Default is called; later calls return the same value.
func Default() (*Container, error) {
	return defaultContainer()
}

// OpenStream opens the named asset from the Default container.
func OpenStream(name string) (io.ReadCloser, error) {
	// Reject bad names before the default location is detected.
	if _, err := Key(name); err != nil {
		return nil, err
	}

	c, err := Default()
	if err != nil {
		return nil, err
	}
	return c.OpenStream(name)
}
