// manifest/manifest.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package manifest records the contents of an asset tree: for each file,
// its SHA256 hash and size. Manifests drive content-addressed uploads to
// cloud storage and mirroring of those blobs back into a local root.
package manifest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

// Filename is the standard name of a JSON manifest.
const Filename = "manifest.json"

// CompactFilename is the standard name of a msgpack+zstd manifest.
const CompactFilename = "manifest.msgpack.zst"

type Entry struct {
	Hash string `json:"hash" msgpack:"h"`
	Size int64  `json:"size" msgpack:"s"`
}

// Manifest maps slash-separated relative paths to entries. It is not safe
// for concurrent modification.
type Manifest struct {
	entries map[string]Entry
}

func New() *Manifest {
	return &Manifest{entries: make(map[string]Entry)}
}

func (m *Manifest) Set(p string, e Entry) {
	m.entries[p] = e
}

func (m *Manifest) Lookup(p string) (Entry, bool) {
	e, ok := m.entries[p]
	return e, ok
}

// Paths returns the manifest's paths in sorted order.
func (m *Manifest) Paths() []string {
	return slices.Sorted(maps.Keys(m.entries))
}

func (m *Manifest) Len() int {
	return len(m.entries)
}

func (m *Manifest) TotalSize() int64 {
	var n int64
	for _, e := range m.entries {
		n += e.Size
	}
	return n
}

// Hashes returns the set of distinct blob hashes the manifest refers to.
func (m *Manifest) Hashes() map[string]int64 {
	h := make(map[string]int64)
	for _, e := range m.entries {
		h[e.Hash] = e.Size
	}
	return h
}

// Equal reports whether both manifests list the same files with the same
// contents.
func (m *Manifest) Equal(other *Manifest) bool {
	return maps.Equal(m.entries, other.entries)
}

///////////////////////////////////////////////////////////////////////////
// Building

// IsTemporaryFile reports whether name looks like an editor backup or a
// hidden file that should be left out of a manifest. Both '/' and '\'
// separate path elements.
func IsTemporaryFile(name string) bool {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	return strings.HasPrefix(base, ".") ||
		(strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#")) ||
		strings.HasSuffix(base, "~")
}

// Hash returns the hex SHA256 of everything read from r and its length.
func Hash(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func hashFile(fsys fs.FS, p string) (Entry, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()

	hash, size, err := Hash(f)
	return Entry{Hash: hash, Size: size}, err
}

// Build walks fsys and hashes every regular, non-temporary file using up
// to workers goroutines. Manifest files themselves are skipped.
func Build(ctx context.Context, fsys fs.FS, workers int) (*Manifest, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && IsTemporaryFile(p) {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && !IsTemporaryFile(p) && p != Filename && p != CompactFilename {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	type result struct {
		path  string
		entry Entry
	}
	results := make(chan result, len(files))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(workers, 1))
	for _, p := range files {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e, err := hashFile(fsys, p)
			if err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			results <- result{path: p, entry: e}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	close(results)

	m := New()
	for r := range results {
		m.Set(r.path, r.entry)
	}
	return m, nil
}

///////////////////////////////////////////////////////////////////////////
// Verification

type Report struct {
	Missing    []string
	Mismatched []string
}

func (r Report) OK() bool {
	return len(r.Missing) == 0 && len(r.Mismatched) == 0
}

// Verify checks that every file in the manifest is present in fsys with
// the recorded contents. Read errors other than missing files are
// returned.
func (m *Manifest) Verify(fsys fs.FS) (Report, error) {
	var rep Report
	for _, p := range m.Paths() {
		want := m.entries[p]
		got, err := hashFile(fsys, p)
		if errors.Is(err, fs.ErrNotExist) {
			rep.Missing = append(rep.Missing, p)
		} else if err != nil {
			return rep, fmt.Errorf("%s: %w", p, err)
		} else if got != want {
			rep.Mismatched = append(rep.Mismatched, p)
		}
	}
	return rep, nil
}

///////////////////////////////////////////////////////////////////////////
// Serialization

func isCompact(name string) bool {
	return strings.HasSuffix(name, ".msgpack.zst")
}

// Load reads a manifest from r. name selects the encoding: names ending
// in .msgpack.zst are msgpack compressed with zstd; anything else is
// JSON.
func Load(r io.Reader, name string) (*Manifest, error) {
	entries := make(map[string]Entry)

	if isCompact(name) {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()

		if err := msgpack.NewDecoder(zr).Decode(&entries); err != nil {
			return nil, fmt.Errorf("failed to decode manifest: %w", err)
		}
	} else if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if entries == nil { // "null"
		entries = make(map[string]Entry)
	}

	for p := range entries {
		if !fs.ValidPath(p) || p == "." {
			return nil, fmt.Errorf("%q: invalid manifest path", p)
		}
	}
	return &Manifest{entries: entries}, nil
}

func LoadFile(filename string) (*Manifest, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f, filename)
}

// Parse decodes a JSON manifest held in memory, such as one embedded in a
// binary.
func Parse(b []byte) (*Manifest, error) {
	return Load(bytes.NewReader(b), Filename)
}

// Save writes the manifest to w using the encoding selected by name (see
// Load).
func (m *Manifest) Save(w io.Writer, name string) error {
	if isCompact(name) {
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}

		if err := msgpack.NewEncoder(zw).Encode(m.entries); err != nil {
			zw.Close()
			return fmt.Errorf("failed to encode manifest: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to close zstd writer: %w", err)
		}
		return nil
	}

	b, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// SaveFile writes the manifest to filename, syncing it to disk before
// returning.
func (m *Manifest) SaveFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := m.Save(f, filename); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
