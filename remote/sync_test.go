// remote/sync_test.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package remote

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mmp/titlestore/manifest"
)

type mapBlobs struct {
	blobs   map[string]string
	fetches atomic.Int32
}

func (m *mapBlobs) OpenRead(ctx context.Context, hash string) (io.ReadCloser, error) {
	m.fetches.Add(1)
	b, ok := m.blobs[hash]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: hash, Err: fs.ErrNotExist}
	}
	return io.NopCloser(strings.NewReader(b)), nil
}

func newMapBlobs(contents ...string) *mapBlobs {
	m := &mapBlobs{blobs: make(map[string]string)}
	for _, c := range contents {
		m.blobs[sha(c)] = c
	}
	return m
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestSync(t *testing.T) {
	files := map[string]string{
		"textures/wall.png": "bricks",
		"sounds/boom.wav":   "boom",
		"maps/level1.json":  "{}",
	}
	m := testManifest(files)
	blobs := newMapBlobs("bricks", "boom", "{}")

	dir := t.TempDir()
	// Already-correct files are kept, wrong ones replaced, stale ones removed.
	for p, c := range map[string]string{"textures/wall.png": "bricks", "sounds/boom.wav": "bang", "old/unused.bin": "x"} {
		fp := filepath.Join(dir, filepath.FromSlash(p))
		os.MkdirAll(filepath.Dir(fp), 0o755)
		if err := os.WriteFile(fp, []byte(c), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var mu sync.Mutex
	var last Progress
	err := Sync(context.Background(), blobs, m, dir, SyncOptions{
		Workers: 2,
		Progress: func(p Progress) {
			mu.Lock()
			last = p
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	for p, want := range files {
		if got := readFile(t, filepath.Join(dir, filepath.FromSlash(p))); got != want {
			t.Errorf("%s = %q, want %q", p, got, want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "old", "unused.bin")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("stale file was not removed: %v", err)
	}
	if n := blobs.fetches.Load(); n != 2 {
		t.Errorf("fetched %d blobs, want 2", n)
	}
	if last.Files != 3 || last.TotalFiles != 3 || last.Bytes != m.TotalSize() {
		t.Errorf("final progress = %+v", last)
	}

	written, err := manifest.LoadFile(filepath.Join(dir, manifest.Filename))
	if err != nil {
		t.Fatal(err)
	}
	if !written.Equal(m) {
		t.Errorf("written manifest differs")
	}

	// A second sync with the same manifest does nothing.
	if err := Sync(context.Background(), blobs, m, dir, SyncOptions{}); err != nil {
		t.Fatal(err)
	}
	if n := blobs.fetches.Load(); n != 2 {
		t.Errorf("up-to-date sync fetched blobs (%d total)", n)
	}
}

func TestSyncErrors(t *testing.T) {
	dir := t.TempDir()

	// Missing blob.
	m := testManifest(map[string]string{"a.txt": "a"})
	if err := Sync(context.Background(), newMapBlobs(), m, dir, SyncOptions{}); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}

	// Corrupt blob.
	blobs := &mapBlobs{blobs: map[string]string{sha("a"): "not a"}}
	if err := Sync(context.Background(), blobs, m, dir, SyncOptions{}); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("error = %v, want ErrHashMismatch", err)
	}

	// Neither leaves a manifest or a partial file behind.
	if _, err := os.Stat(filepath.Join(dir, manifest.Filename)); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("manifest written after a failed sync")
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("partial download left in place")
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".download-") {
			t.Errorf("temporary file %s left behind", e.Name())
		}
	}
}
