// title/async.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package title

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mmp/titlestore/log"
)

// Store is storage whose primitives are remote calls: an existence probe
// and an open-for-read. Implementations live in the remote package.
type Store interface {
	Probe(ctx context.Context, key string) (bool, error)
	OpenRead(ctx context.Context, key string) (io.ReadCloser, error)
}

type AsyncOptions struct {
	// ProbeCacheSize is the number of probe results remembered; zero
	// disables caching.
	ProbeCacheSize int
	// ProbeCacheTTL bounds how long a cached probe result is trusted.
	ProbeCacheTTL time.Duration
}

// AsyncOpener opens assets from a Store. Each Open runs the probe and the
// open in a separate goroutine and blocks until both have finished: the
// blocking is deliberate, so callers see the same synchronous contract as
// every other Opener. There is no cancellation or timeout; an Open either
// returns a full stream or an error.
type AsyncOpener struct {
	store  Store
	probes *expirable.LRU[string, bool]
	lg     *log.Logger
}

type asyncResult struct {
	r   io.ReadCloser // nil with a nil err means "no such asset"
	err error
}

func NewAsyncOpener(store Store, opts AsyncOptions, lg *log.Logger) *AsyncOpener {
	a := &AsyncOpener{store: store, lg: lg}
	if opts.ProbeCacheSize > 0 {
		a.probes = expirable.NewLRU[string, bool](opts.ProbeCacheSize, nil, opts.ProbeCacheTTL)
	}
	return a
}

func (a *AsyncOpener) Open(key string) (io.ReadCloser, error) {
	res := <-a.openAsync(context.Background(), key)
	if res.err != nil {
		return nil, res.err
	}
	if res.r == nil {
		return nil, &NotFoundError{Name: key}
	}
	return res.r, nil
}

func (a *AsyncOpener) openAsync(ctx context.Context, key string) <-chan asyncResult {
	ch := make(chan asyncResult, 1)

	go func() {
		defer close(ch)

		ok, err := a.probe(ctx, key)
		if err != nil {
			ch <- asyncResult{err: err}
			return
		} else if !ok {
			ch <- asyncResult{}
			return
		}

		r, err := a.store.OpenRead(ctx, key)
		if errors.Is(err, fs.ErrNotExist) {
			// Removed between the probe and the open.
			a.forget(key)
			ch <- asyncResult{}
			return
		}
		ch <- asyncResult{r: r, err: err}
	}()

	return ch
}

func (a *AsyncOpener) probe(ctx context.Context, key string) (bool, error) {
	if a.probes != nil {
		if ok, hit := a.probes.Get(key); hit {
			return ok, nil
		}
	}

	ok, err := a.store.Probe(ctx, key)
	if err != nil {
		return false, err
	}
	a.lg.Debug("probed remote asset", slog.String("key", key), slog.Bool("exists", ok))

	if a.probes != nil {
		a.probes.Add(key, ok)
	}
	return ok, nil
}

func (a *AsyncOpener) forget(key string) {
	if a.probes != nil {
		a.probes.Remove(key)
	}
}

// Stat reports whether the asset exists; the returned FileInfo only
// carries the name.
func (a *AsyncOpener) Stat(key string) (fs.FileInfo, error) {
	ok, err := a.probe(context.Background(), key)
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, &NotFoundError{Name: key}
	}
	return remoteInfo(path.Base(key)), nil
}

func (a *AsyncOpener) Close() error {
	if c, ok := a.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type remoteInfo string

func (r remoteInfo) Name() string       { return string(r) }
func (r remoteInfo) Size() int64        { return -1 }
func (r remoteInfo) Mode() fs.FileMode  { return 0o444 }
func (r remoteInfo) ModTime() time.Time { return time.Time{} }
func (r remoteInfo) IsDir() bool        { return false }
func (r remoteInfo) Sys() any           { return nil }
