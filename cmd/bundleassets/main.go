// cmd/bundleassets/main.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// bundleassets hashes every file in an asset directory and uploads the
// files whose contents aren't already in a GCS or S3 bucket, naming each
// object by the SHA256 of its contents. It then writes a manifest that
// records the relative paths and hashes; syncassets and the mirror
// backend use it to find each asset's blob.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mmp/titlestore/log"
	"github.com/mmp/titlestore/manifest"
	"github.com/mmp/titlestore/remote"
)

var (
	assetsDir      = flag.String("dir", "./assets", "asset directory to bundle")
	backend        = flag.String("backend", "gcs", "object store: gcs or s3")
	bucket         = flag.String("bucket", "", "bucket name")
	prefix         = flag.String("prefix", "", "object name prefix")
	region         = flag.String("region", "", "S3 region")
	endpoint       = flag.String("endpoint", "", "S3-compatible endpoint URL")
	pathStyle      = flag.Bool("path-style", false, "use path-style S3 addressing")
	outFile        = flag.String("manifest", manifest.Filename, "local manifest file to write (.msgpack.zst for the compact form)")
	remoteManifest = flag.String("remote-manifest", manifest.Filename, "object name for the uploaded manifest; empty to skip")
	workers        = flag.Int("workers", 16, "number of concurrent hash and upload workers")
	dryRun         = flag.Bool("dry-run", false, "list what would be uploaded without uploading")
	logLevel       = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
)

func newWriter(ctx context.Context) (remote.BlobWriter, func() error, error) {
	switch *backend {
	case "gcs":
		credsJSON := os.Getenv("TITLESTORE_GCS_CREDENTIALS")
		if credsJSON == "" {
			return nil, nil, fmt.Errorf("TITLESTORE_GCS_CREDENTIALS environment variable not set")
		}
		st, err := remote.NewGCSStore(ctx, remote.GCSConfig{
			Bucket:      *bucket,
			Prefix:      *prefix,
			Credentials: []byte(credsJSON),
		})
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil

	case "s3":
		st, err := remote.NewS3Store(ctx, remote.S3Config{
			Bucket:          *bucket,
			Prefix:          *prefix,
			Region:          *region,
			Endpoint:        *endpoint,
			UsePathStyle:    *pathStyle,
			AccessKeyID:     os.Getenv("TITLESTORE_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("TITLESTORE_SECRET_ACCESS_KEY"),
		})
		if err != nil {
			return nil, nil, err
		}
		return st, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("%s: unknown backend", *backend)
	}
}

func main() {
	flag.Parse()
	if flag.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "usage: bundleassets [flags]\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	lg := log.NewWriter(os.Stderr, *logLevel)
	ctx := context.Background()

	w, closeWriter, err := newWriter(ctx)
	if err != nil {
		lg.Errorf("%v", err)
		os.Exit(1)
	}
	defer closeWriter()
	if *dryRun {
		w = remote.DryRunWriter{W: w}
	}

	hashStart := time.Now()
	fsys := os.DirFS(*assetsDir)
	m, err := manifest.Build(ctx, fsys, *workers)
	if err != nil {
		lg.Errorf("%s: %v", *assetsDir, err)
		os.Exit(1)
	}
	fmt.Printf("Hashed %d files (%d bytes) in %s\n", m.Len(), m.TotalSize(), time.Since(hashStart))

	stats, err := remote.Publish(ctx, w, fsys, m, remote.PublishOptions{
		Workers:      *workers,
		ManifestName: *remoteManifest,
		Log:          lg,
	})
	if err != nil {
		lg.Errorf("%v", err)
		os.Exit(1)
	}
	verb := "Uploaded"
	if *dryRun {
		verb = "Would upload"
	}
	fmt.Printf("%s %d blobs (%d bytes); %d files already present\n", verb, stats.Uploaded, stats.UploadedBytes, stats.Skipped)

	if err := m.SaveFile(*outFile); err != nil {
		lg.Errorf("%s: failed to write manifest: %v", *outFile, err)
		os.Exit(1)
	}
	fmt.Printf("Generated %q with %d entries\n", *outFile, m.Len())
}
