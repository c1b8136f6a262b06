// remote/mirror_test.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mmp/titlestore/manifest"
	"github.com/mmp/titlestore/title"
)

func sha(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// blobServer serves the given contents at /<sha256>. Entries of corrupt
// are served at the hash of their key with the wrong contents.
func blobServer(t *testing.T, contents []string, corrupt map[string]string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	blobs := make(map[string]string)
	for _, c := range contents {
		blobs["/"+sha(c)] = c
	}
	for orig, bad := range corrupt {
		blobs["/"+sha(orig)] = bad
	}

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if b, ok := blobs[r.URL.Path]; ok {
			io.WriteString(w, b)
		} else {
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func testManifest(files map[string]string) *manifest.Manifest {
	m := manifest.New()
	for p, c := range files {
		m.Set(p, manifest.Entry{Hash: sha(c), Size: int64(len(c))})
	}
	return m
}

func TestHTTPBlobs(t *testing.T) {
	srv, _ := blobServer(t, []string{"hello"}, nil)
	blobs := HTTPBlobs{BaseURL: srv.URL + "/"}

	r, err := blobs.OpenRead(context.Background(), sha("hello"))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(r)
	r.Close()
	if string(b) != "hello" {
		t.Errorf("read %q", b)
	}

	if _, err := blobs.OpenRead(context.Background(), sha("nope")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing blob error = %v, want fs.ErrNotExist", err)
	}
	if _, err := (HTTPBlobs{}).OpenRead(context.Background(), "x"); !errors.Is(err, ErrNoBaseURL) {
		t.Errorf("error = %v, want ErrNoBaseURL", err)
	}
}

func TestMirrorStoreThroughContainer(t *testing.T) {
	files := map[string]string{
		"textures/wall.png":    "bricks",
		"textures/wall@2x.png": "bigger bricks",
		"sounds/boom.wav":      "boom",
	}
	srv, requests := blobServer(t, []string{"bricks", "bigger bricks"}, map[string]string{"boom": "fizzle"})

	store := NewMirrorStore(HTTPBlobs{BaseURL: srv.URL}, testManifest(files))
	opener := title.NewAsyncOpener(store, title.AsyncOptions{ProbeCacheSize: 16}, nil)
	c := title.NewContainer(title.Location{HighDensity: true}, &title.DensityOpener{Base: opener}, nil)

	r, err := c.OpenStream(`textures\wall.png`)
	if err != nil {
		t.Fatal(err)
	}
	b, err := io.ReadAll(r)
	r.Close()
	if err != nil || string(b) != "bigger bricks" {
		t.Errorf("read %q, %v; want the @2x variant", b, err)
	}

	// Missing assets are answered from the manifest.
	before := requests.Load()
	if _, err := c.OpenStream("textures/floor.png"); !errors.Is(err, title.ErrNotFound) {
		t.Errorf("missing asset error = %v, want ErrNotFound", err)
	}
	if requests.Load() != before {
		t.Errorf("a missing asset caused an HTTP request")
	}

	// Corrupt downloads are reported when the stream is read to the end.
	r, err = c.OpenStream("sounds/boom.wav")
	if err != nil {
		t.Fatal(err)
	}
	_, err = io.ReadAll(r)
	r.Close()
	if !errors.Is(err, ErrHashMismatch) {
		t.Errorf("corrupt blob error = %v, want ErrHashMismatch", err)
	}
}

func TestMirrorStoreProbe(t *testing.T) {
	store := NewMirrorStore(HTTPBlobs{BaseURL: "http://unused.invalid"}, testManifest(map[string]string{"a.txt": "a"}))
	for key, want := range map[string]bool{"a.txt": true, "b.txt": false} {
		if ok, err := store.Probe(context.Background(), key); err != nil || ok != want {
			t.Errorf("Probe(%q) = %v, %v; want %v", key, ok, err, want)
		}
	}
	if _, err := store.OpenRead(context.Background(), "b.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("OpenRead(b.txt) error = %v", err)
	}
}

func TestVerifyingReader(t *testing.T) {
	good := newVerifyingReader(io.NopCloser(strings.NewReader("data")), "k", sha("data"))
	if b, err := io.ReadAll(good); err != nil || string(b) != "data" {
		t.Errorf("ReadAll = %q, %v", b, err)
	}

	bad := newVerifyingReader(io.NopCloser(strings.NewReader("datum")), "k", sha("data"))
	if _, err := io.ReadAll(bad); !errors.Is(err, ErrHashMismatch) {
		t.Errorf("ReadAll error = %v, want ErrHashMismatch", err)
	}
}
