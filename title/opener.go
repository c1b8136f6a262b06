// title/opener.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package title

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// Opener opens assets by key. Keys are slash-separated, clean and
// relative (they satisfy fs.ValidPath). A missing asset is reported with
// a *NotFoundError; other errors are passed through unchanged.
//
// There is one Opener per kind of platform storage: FileOpener for a
// synchronous filesystem, AsyncOpener for asynchronous storage,
// BundleOpener for an asset container and DensityOpener for filesystems
// that carry high-density variants.
type Opener interface {
	Open(key string) (io.ReadCloser, error)
}

// StatOpener is an Opener that can also check for an asset without
// opening it.
type StatOpener interface {
	Opener
	Stat(key string) (fs.FileInfo, error)
}

///////////////////////////////////////////////////////////////////////////
// FileOpener

// FileOpener opens assets from the directory Root by joining it with the
// asset key.
type FileOpener struct {
	Root string
}

func (f FileOpener) path(key string) string {
	return filepath.Join(f.Root, filepath.FromSlash(key))
}

func (f FileOpener) Open(key string) (io.ReadCloser, error) {
	p := f.path(key)
	fp, err := os.Open(p)
	if err != nil {
		return nil, notFound(err, key, p)
	}

	if fi, err := fp.Stat(); err != nil {
		fp.Close()
		return nil, err
	} else if fi.IsDir() {
		fp.Close()
		return nil, &NotFoundError{Name: key, Path: p}
	}
	return fp, nil
}

func (f FileOpener) Stat(key string) (fs.FileInfo, error) {
	p := f.path(key)
	fi, err := os.Stat(p)
	if err != nil {
		return nil, notFound(err, key, p)
	}
	return fi, nil
}

///////////////////////////////////////////////////////////////////////////
// BundleOpener

// BundleOpener opens assets from an asset container such as an embedded
// filesystem or a zip archive. The key is used directly as the lookup
// name; no root is joined.
type BundleOpener struct {
	fsys   fs.FS
	closer io.Closer
}

func NewBundleOpener(fsys fs.FS) *BundleOpener {
	return &BundleOpener{fsys: fsys}
}

// OpenZipBundle returns a BundleOpener that reads from the zip archive at
// path. The archive stays open until Close is called.
func OpenZipBundle(path string) (*BundleOpener, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return &BundleOpener{fsys: zr, closer: zr}, nil
}

func (b *BundleOpener) Open(key string) (io.ReadCloser, error) {
	f, err := b.fsys.Open(key)
	if err != nil {
		return nil, notFound(err, key, "")
	}

	if fi, err := f.Stat(); err != nil {
		f.Close()
		return nil, err
	} else if fi.IsDir() {
		f.Close()
		return nil, &NotFoundError{Name: key}
	}
	return f, nil
}

func (b *BundleOpener) Stat(key string) (fs.FileInfo, error) {
	fi, err := fs.Stat(b.fsys, key)
	if err != nil {
		return nil, notFound(err, key, "")
	}
	return fi, nil
}

func (b *BundleOpener) Close() error {
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}
