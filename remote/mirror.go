// remote/mirror.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/mmp/titlestore/manifest"
)

// HTTPBlobs fetches content-addressed blobs from BaseURL/<hash>.
type HTTPBlobs struct {
	BaseURL string
	// Client defaults to a client with a 30 second timeout.
	Client *http.Client
}

func (h HTTPBlobs) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (h HTTPBlobs) OpenRead(ctx context.Context, hash string) (io.ReadCloser, error) {
	if h.BaseURL == "" {
		return nil, ErrNoBaseURL
	}

	url := strings.TrimSuffix(h.BaseURL, "/") + "/" + hash
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, &fs.PathError{Op: "get", Path: url, Err: fs.ErrNotExist}
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
}

// MirrorStore serves a manifest's files from a content-addressed blob
// source. Probes are answered from the manifest without network access,
// and every download is checked against its manifest hash.
type MirrorStore struct {
	blobs    BlobReader
	manifest *manifest.Manifest
}

func NewMirrorStore(blobs BlobReader, m *manifest.Manifest) *MirrorStore {
	return &MirrorStore{blobs: blobs, manifest: m}
}

func (m *MirrorStore) Probe(ctx context.Context, key string) (bool, error) {
	_, ok := m.manifest.Lookup(key)
	return ok, nil
}

func (m *MirrorStore) OpenRead(ctx context.Context, key string) (io.ReadCloser, error) {
	e, ok := m.manifest.Lookup(key)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: key, Err: fs.ErrNotExist}
	}

	r, err := m.blobs.OpenRead(ctx, e.Hash)
	if err != nil {
		return nil, err
	}
	return newVerifyingReader(r, key, e.Hash), nil
}

// verifyingReader hashes everything read through it and reports
// ErrHashMismatch instead of io.EOF if the contents are not the expected
// ones.
type verifyingReader struct {
	r    io.ReadCloser
	h    hash.Hash
	key  string
	want string
}

func newVerifyingReader(r io.ReadCloser, key, want string) *verifyingReader {
	return &verifyingReader{r: r, h: sha256.New(), key: key, want: want}
}

func (v *verifyingReader) Read(b []byte) (int, error) {
	n, err := v.r.Read(b)
	v.h.Write(b[:n])
	if err == io.EOF {
		if got := hex.EncodeToString(v.h.Sum(nil)); got != v.want {
			return n, fmt.Errorf("%s: %w (got %s, want %s)", v.key, ErrHashMismatch, got, v.want)
		}
	}
	return n, err
}

func (v *verifyingReader) Close() error {
	return v.r.Close()
}
