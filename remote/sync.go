// remote/sync.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mmp/titlestore/log"
	"github.com/mmp/titlestore/manifest"
	"golang.org/x/sync/errgroup"
)

type Progress struct {
	Path       string
	Files      int
	TotalFiles int
	Bytes      int64
	TotalBytes int64
}

type SyncOptions struct {
	// Workers is the number of concurrent downloads; it defaults to 8.
	Workers int
	// Progress, if non-nil, is called after each file has been checked or
	// downloaded. Calls are serialized.
	Progress func(Progress)
	Log      *log.Logger
}

// Sync makes dir an exact copy of the files listed in m, fetching blobs
// by hash from blobs. Files whose contents already match are left alone,
// files not in the manifest are removed, and the manifest itself is
// written to dir last, so an interrupted sync is redone next time.
func Sync(ctx context.Context, blobs BlobReader, m *manifest.Manifest, dir string, opts SyncOptions) error {
	manifestPath := filepath.Join(dir, manifest.Filename)

	if existing, err := manifest.LoadFile(manifestPath); err == nil && existing.Equal(m) {
		opts.Log.Debug("assets up to date", slog.String("dir", dir))
		return nil
	}
	if err := os.Remove(manifestPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	var mu sync.Mutex
	progress := Progress{TotalFiles: m.Len(), TotalBytes: m.TotalSize()}

	workers := opts.Workers
	if workers <= 0 {
		workers = 8
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, p := range m.Paths() {
		e, _ := m.Lookup(p)
		eg.Go(func() error {
			fetched, err := syncFile(ctx, blobs, filepath.Join(dir, filepath.FromSlash(p)), e)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			if fetched {
				opts.Log.Info("downloaded asset", slog.String("path", p), slog.Int64("size", e.Size))
			}

			mu.Lock()
			defer mu.Unlock()
			progress.Path = p
			progress.Files++
			progress.Bytes += e.Size
			if opts.Progress != nil {
				opts.Progress(progress)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if err := removeStaleFiles(dir, m); err != nil {
		return err
	}
	return m.SaveFile(manifestPath)
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, _, err := manifest.Hash(f)
	return h, err
}

// syncFile makes sure that path holds the blob e, downloading it if
// needed. It reports whether a download was done.
func syncFile(ctx context.Context, blobs BlobReader, path string, e manifest.Entry) (bool, error) {
	if h, err := fileHash(path); err == nil && h == e.Hash {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}

	r, err := blobs.OpenRead(ctx, e.Hash)
	if err != nil {
		return false, err
	}
	defer r.Close()

	// Download next to the destination and rename into place so that a
	// partial file never has the final name.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name()) // fails harmlessly after the rename

	vr := newVerifyingReader(r, filepath.Base(path), e.Hash)
	if _, err := io.Copy(tmp, vr); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}
	return true, os.Rename(tmp.Name(), path)
}

func removeStaleFiles(dir string, m *manifest.Manifest) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if _, ok := m.Lookup(rel); !ok && rel != manifest.Filename {
			return os.Remove(path)
		}
		return nil
	})
}
