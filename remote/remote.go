// remote/remote.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package remote implements asset stores whose primitives are network
// calls: Google Cloud Storage, S3 and plain HTTP mirrors of
// content-addressed blobs. All of them satisfy title.Store.
package remote

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNoBucket     = errors.New("bucket name cannot be empty")
	ErrNoBaseURL    = errors.New("mirror base URL cannot be empty")
	ErrHashMismatch = errors.New("downloaded blob does not match its manifest hash")
)

// BlobReader opens objects by name. The stores in this package implement
// it; Sync uses it to fetch blobs named by their hash.
type BlobReader interface {
	OpenRead(ctx context.Context, key string) (io.ReadCloser, error)
}

// BlobWriter stores objects by name.
type BlobWriter interface {
	Store(ctx context.Context, key string, r io.Reader) (int64, error)
	List(ctx context.Context) (map[string]int64, error)
}

func objectName(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return path.Join(prefix, key)
}

func listPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimSuffix(prefix, "/") + "/"
}

func trimPrefix(prefix, name string) (string, bool) {
	if prefix == "" {
		return name, name != ""
	}
	key, ok := strings.CutPrefix(name, listPrefix(prefix))
	return key, ok && key != ""
}
