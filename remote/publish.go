// remote/publish.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/mmp/titlestore/log"
	"github.com/mmp/titlestore/manifest"
	"golang.org/x/sync/errgroup"
)

type PublishOptions struct {
	// Workers is the number of concurrent uploads; it defaults to 16.
	Workers int
	// ManifestName, if non-empty, is the key the manifest is stored under
	// once every blob has been uploaded.
	ManifestName string
	Log          *log.Logger
}

type PublishStats struct {
	Uploaded      int
	UploadedBytes int64
	Skipped       int
}

// Publish uploads the contents of every file in m, read from fsys, to w
// under its hash. Blobs already present in w are not uploaded again.
func Publish(ctx context.Context, w BlobWriter, fsys fs.FS, m *manifest.Manifest, opts PublishOptions) (PublishStats, error) {
	var stats PublishStats

	existing, err := w.List(ctx)
	if err != nil {
		return stats, err
	}
	opts.Log.Info("listed existing blobs", slog.Int("count", len(existing)))

	// Several paths may share a hash; upload each blob once.
	pending := make(map[string]string)
	for _, p := range m.Paths() {
		e, _ := m.Lookup(p)
		if size, ok := existing[e.Hash]; ok && size == e.Size {
			stats.Skipped++
		} else if _, ok := pending[e.Hash]; !ok {
			pending[e.Hash] = p
		}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 16
	}

	uploaded := make(chan int64, len(pending))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for hash, p := range pending {
		eg.Go(func() error {
			f, err := fsys.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := w.Store(gctx, hash, f)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			opts.Log.Info("uploaded", slog.String("path", p), slog.String("hash", hash), slog.Int64("size", n))
			uploaded <- n
			return nil
		})
	}
	err = eg.Wait()
	close(uploaded)
	for n := range uploaded {
		stats.Uploaded++
		stats.UploadedBytes += n
	}
	if err != nil {
		return stats, err
	}

	if opts.ManifestName != "" {
		var buf bytes.Buffer
		if err := m.Save(&buf, opts.ManifestName); err != nil {
			return stats, err
		}
		if _, err := w.Store(ctx, opts.ManifestName, &buf); err != nil {
			return stats, fmt.Errorf("%s: %w", opts.ManifestName, err)
		}
	}
	return stats, nil
}

// DryRunWriter lists through to the wrapped writer but discards
// everything stored.
type DryRunWriter struct {
	W BlobWriter
}

func (d DryRunWriter) List(ctx context.Context) (map[string]int64, error) {
	return d.W.List(ctx)
}

func (d DryRunWriter) Store(ctx context.Context, key string, r io.Reader) (int64, error) {
	return io.Copy(io.Discard, r)
}

// FetchManifest reads the manifest stored under name in r.
func FetchManifest(ctx context.Context, r BlobReader, name string) (*manifest.Manifest, error) {
	rc, err := r.OpenRead(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return manifest.Load(rc, name)
}
