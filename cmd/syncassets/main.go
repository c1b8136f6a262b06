// cmd/syncassets/main.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// syncassets makes a local asset directory match a manifest published by
// bundleassets, downloading only the blobs whose contents differ.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/mmp/titlestore/log"
	"github.com/mmp/titlestore/manifest"
	"github.com/mmp/titlestore/remote"
)

var (
	assetsDir    = flag.String("dir", "./assets", "local asset directory to update")
	source       = flag.String("source", "http", "blob source: http, gcs, or s3")
	baseURL      = flag.String("url", "", "base URL of an HTTP blob mirror")
	bucket       = flag.String("bucket", "", "bucket name for gcs or s3")
	prefix       = flag.String("prefix", "", "object name prefix")
	region       = flag.String("region", "", "S3 region")
	endpoint     = flag.String("endpoint", "", "S3-compatible endpoint URL")
	pathStyle    = flag.Bool("path-style", false, "use path-style S3 addressing")
	manifestFile = flag.String("manifest", "", "local manifest file; if unset it is fetched from the source")
	manifestName = flag.String("manifest-name", manifest.Filename, "name of the manifest at the source")
	workers      = flag.Int("workers", 8, "number of concurrent downloads")
	logLevel     = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	quiet        = flag.Bool("quiet", false, "don't print progress")
)

func newReader(ctx context.Context) (remote.BlobReader, func() error, error) {
	noop := func() error { return nil }

	switch *source {
	case "http":
		return remote.HTTPBlobs{BaseURL: *baseURL}, noop, nil

	case "gcs":
		gc := remote.GCSConfig{Bucket: *bucket, Prefix: *prefix}
		if creds := os.Getenv("TITLESTORE_GCS_CREDENTIALS"); creds != "" {
			gc.Credentials = []byte(creds)
		}
		st, err := remote.NewGCSStore(ctx, gc)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil

	case "s3":
		st, err := remote.NewS3Store(ctx, remote.S3Config{
			Bucket:       *bucket,
			Prefix:       *prefix,
			Region:       *region,
			Endpoint:     *endpoint,
			UsePathStyle: *pathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, noop, nil

	default:
		return nil, nil, fmt.Errorf("%s: unknown source", *source)
	}
}

func main() {
	flag.Parse()

	lg := log.NewWriter(os.Stderr, *logLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	blobs, closeReader, err := newReader(ctx)
	if err != nil {
		lg.Errorf("%v", err)
		os.Exit(1)
	}
	defer closeReader()

	var m *manifest.Manifest
	if *manifestFile != "" {
		m, err = manifest.LoadFile(*manifestFile)
	} else {
		m, err = remote.FetchManifest(ctx, blobs, *manifestName)
	}
	if err != nil {
		lg.Errorf("manifest: %v", err)
		os.Exit(1)
	}

	opts := remote.SyncOptions{Workers: *workers, Log: lg}
	if !*quiet {
		opts.Progress = func(p remote.Progress) {
			fmt.Printf("\r%d/%d files, %.1f/%.1f MB", p.Files, p.TotalFiles,
				float64(p.Bytes)/(1024*1024), float64(p.TotalBytes)/(1024*1024))
		}
	}

	if err := remote.Sync(ctx, blobs, m, *assetsDir, opts); err != nil {
		if !*quiet {
			fmt.Println()
		}
		lg.Errorf("%v", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Printf("\n%s is up to date with %d files\n", *assetsDir, m.Len())
	}
}
