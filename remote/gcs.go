// remote/gcs.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	Bucket string
	// Prefix is prepended to every key to form the object name.
	Prefix string
	// Credentials is a service account JSON document; if nil, the bucket
	// is accessed anonymously.
	Credentials []byte
	// Endpoint overrides the JSON API endpoint, e.g. for a storage
	// emulator.
	Endpoint string
}

// GCSStore is a title.Store backed by a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

func NewGCSStore(ctx context.Context, config GCSConfig) (*GCSStore, error) {
	if config.Bucket == "" {
		return nil, ErrNoBucket
	}

	var opts []option.ClientOption
	if config.Credentials != nil {
		opts = append(opts, option.WithCredentialsJSON(config.Credentials))
	} else {
		opts = append(opts, option.WithoutAuthentication())
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: client.Bucket(config.Bucket),
		prefix: config.Prefix,
	}, nil
}

func (g *GCSStore) object(key string) *storage.ObjectHandle {
	return g.bucket.Object(objectName(g.prefix, key))
}

func (g *GCSStore) Probe(ctx context.Context, key string) (bool, error) {
	_, err := g.object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (g *GCSStore) OpenRead(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, &fs.PathError{Op: "open", Path: key, Err: fs.ErrNotExist}
	}
	return r, err
}

// Store uploads everything read from r to key.
func (g *GCSStore) Store(ctx context.Context, key string, r io.Reader) (int64, error) {
	w := g.object(key).NewWriter(ctx)
	n, err := io.Copy(w, r)
	if err != nil {
		w.Close()
		return n, err
	}
	return n, w.Close()
}

// List returns the names and sizes of all objects under the store's
// prefix, with the prefix removed.
func (g *GCSStore) List(ctx context.Context) (map[string]int64, error) {
	query := storage.Query{
		Projection: storage.ProjectionNoACL,
		Prefix:     listPrefix(g.prefix),
	}

	m := make(map[string]int64)
	it := g.bucket.Objects(ctx, &query)
	for {
		if obj, err := it.Next(); err == iterator.Done {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		} else if key, ok := trimPrefix(g.prefix, obj.Name); ok {
			m[key] = obj.Size
		}
	}
	return m, nil
}

func (g *GCSStore) Close() error {
	return g.client.Close()
}
