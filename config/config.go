// config/config.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package config describes where a title's assets come from and builds the
// matching title.Container. Settings are read from a JSON file and may be
// overridden with TITLESTORE_* environment variables.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mmp/titlestore/log"
	"github.com/mmp/titlestore/manifest"
	"github.com/mmp/titlestore/platform"
	"github.com/mmp/titlestore/remote"
	"github.com/mmp/titlestore/title"
)

const EnvPrefix = "TITLESTORE"

const DefaultProbeCacheSize = 1024

const (
	BackendFile   = "file"
	BackendBundle = "bundle"
	BackendGCS    = "gcs"
	BackendS3     = "s3"
	BackendMirror = "mirror"
)

const (
	DensityAuto = "auto"
	DensityOn   = "on"
	DensityOff  = "off"
)

var (
	ErrUnknownBackend = errors.New("unknown asset backend")
	ErrUnknownDensity = errors.New("density must be \"auto\", \"on\", or \"off\"")
	ErrNoRoot         = errors.New("no asset root given")
	ErrNoManifest     = errors.New("mirror backend requires a manifest")
)

// Duration is a time.Duration that is written as a string such as "30s"
// in both JSON and the environment.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	return d.Decode(s)
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	// Backend selects the opener: file, bundle, gcs, s3, or mirror.
	Backend string `json:"backend" envconfig:"BACKEND"`
	// Root overrides the detected asset root for the file backend.
	Root string `json:"root,omitempty" envconfig:"ROOT"`
	// Bundle is the path to a zip archive for the bundle backend.
	Bundle string `json:"bundle,omitempty" envconfig:"BUNDLE"`

	Density       string `json:"density" envconfig:"DENSITY"`
	DensityMarker string `json:"density_marker" envconfig:"DENSITY_MARKER"`

	Bucket          string `json:"bucket,omitempty" envconfig:"BUCKET"`
	Prefix          string `json:"prefix,omitempty" envconfig:"PREFIX"`
	Region          string `json:"region,omitempty" envconfig:"REGION"`
	Endpoint        string `json:"endpoint,omitempty" envconfig:"ENDPOINT"`
	UsePathStyle    bool   `json:"use_path_style,omitempty" envconfig:"USE_PATH_STYLE"`
	CredentialsFile string `json:"credentials_file,omitempty" envconfig:"CREDENTIALS_FILE"`
	AccessKeyID     string `json:"access_key_id,omitempty" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"secret_access_key,omitempty" envconfig:"SECRET_ACCESS_KEY"`

	MirrorURL string `json:"mirror_url,omitempty" envconfig:"MIRROR_URL"`
	// Manifest is the path of the manifest describing a mirror's assets.
	Manifest string `json:"manifest,omitempty" envconfig:"MANIFEST"`

	// ProbeCacheSize is the number of remote existence checks remembered;
	// unset means 1024 and 0 disables the cache.
	ProbeCacheSize *int     `json:"probe_cache_size,omitempty" envconfig:"PROBE_CACHE_SIZE"`
	ProbeCacheTTL  Duration `json:"probe_cache_ttl" envconfig:"PROBE_CACHE_TTL"`

	LogLevel string `json:"log_level" envconfig:"LOG_LEVEL"`
	LogDir   string `json:"log_dir,omitempty" envconfig:"LOG_DIR"`
}

// Load reads the configuration in the JSON file filename, if it is
// non-empty, applies environment overrides, and fills in defaults.
func Load(filename string) (*Config, error) {
	var c Config

	if filename != "" {
		b, err := os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	c.setDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) setDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Density == "" {
		c.Density = DensityAuto
	}
	if c.DensityMarker == "" {
		c.DensityMarker = title.DefaultDensityMarker
	}
	if c.ProbeCacheSize == nil {
		n := DefaultProbeCacheSize
		c.ProbeCacheSize = &n
	}
	if c.ProbeCacheTTL == 0 {
		c.ProbeCacheTTL = Duration(5 * time.Minute)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendFile:
	case BackendBundle:
		if c.Bundle == "" {
			errs = append(errs, fmt.Errorf("bundle backend: %w", ErrNoRoot))
		}
	case BackendGCS, BackendS3:
		if c.Bucket == "" {
			errs = append(errs, fmt.Errorf("%s backend: %w", c.Backend, remote.ErrNoBucket))
		}
	case BackendMirror:
		if c.MirrorURL == "" {
			errs = append(errs, fmt.Errorf("mirror backend: %w", remote.ErrNoBaseURL))
		}
		if c.Manifest == "" {
			errs = append(errs, ErrNoManifest)
		}
	default:
		errs = append(errs, fmt.Errorf("%q: %w", c.Backend, ErrUnknownBackend))
	}

	if !slices.Contains([]string{DensityAuto, DensityOn, DensityOff}, c.Density) {
		errs = append(errs, fmt.Errorf("%q: %w", c.Density, ErrUnknownDensity))
	}
	if c.ProbeCacheSize != nil && *c.ProbeCacheSize < 0 {
		errs = append(errs, fmt.Errorf("probe_cache_size %d must not be negative", *c.ProbeCacheSize))
	}

	return errors.Join(errs...)
}

// Redacted returns a copy of c with secrets replaced, suitable for
// printing.
func (c Config) Redacted() Config {
	const mask = "<redacted>"
	if c.AccessKeyID != "" {
		c.AccessKeyID = mask
	}
	if c.SecretAccessKey != "" {
		c.SecretAccessKey = mask
	}
	return c
}

// Location returns the title location the configuration describes. The
// platform is only consulted for values the configuration leaves open.
func (c *Config) Location() (title.Location, error) {
	var loc title.Location

	if c.Root == "" || c.Density == DensityAuto {
		info, err := platform.Detect()
		if err != nil {
			return title.Location{}, err
		}
		loc = title.Location{Root: info.Root, Kind: info.Kind, HighDensity: info.HighDensity()}
	}

	if c.Root != "" {
		root, err := filepath.Abs(c.Root)
		if err != nil {
			return title.Location{}, err
		}
		loc.Root = root
		loc.Kind = platform.Desktop
	}

	switch c.Density {
	case DensityOn:
		loc.HighDensity = true
	case DensityOff:
		loc.HighDensity = false
	}
	return loc, nil
}

// NewContainer builds the title.Container selected by the configuration.
// The caller should Close it when done to release remote clients.
func (c *Config) NewContainer(ctx context.Context, lg *log.Logger) (*title.Container, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	base, err := c.newOpener(ctx, loc, lg)
	if err != nil {
		return nil, err
	}

	var opener title.Opener = base
	if loc.HighDensity {
		opener = &title.DensityOpener{Base: base, Marker: c.DensityMarker, Log: lg}
	}

	lg.Info("asset container ready", "backend", c.Backend, "root", loc.Root,
		"kind", loc.Kind.String(), "high_density", loc.HighDensity)
	return title.NewContainer(loc, opener, lg), nil
}

// AsyncOptions returns the probe cache settings for remote backends.
func (c *Config) AsyncOptions() title.AsyncOptions {
	opts := title.AsyncOptions{
		ProbeCacheSize: DefaultProbeCacheSize,
		ProbeCacheTTL:  time.Duration(c.ProbeCacheTTL),
	}
	if c.ProbeCacheSize != nil {
		opts.ProbeCacheSize = *c.ProbeCacheSize
	}
	return opts
}

func (c *Config) newOpener(ctx context.Context, loc title.Location, lg *log.Logger) (title.StatOpener, error) {
	asyncOpts := c.AsyncOptions()

	switch c.Backend {
	case BackendFile:
		return title.FileOpener{Root: loc.Root}, nil

	case BackendBundle:
		b, err := title.OpenZipBundle(c.Bundle)
		if err != nil {
			return nil, err
		}
		return b, nil

	case BackendGCS:
		gc := remote.GCSConfig{Bucket: c.Bucket, Prefix: c.Prefix, Endpoint: c.Endpoint}
		if c.CredentialsFile != "" {
			creds, err := os.ReadFile(c.CredentialsFile)
			if err != nil {
				return nil, err
			}
			gc.Credentials = creds
		}
		st, err := remote.NewGCSStore(ctx, gc)
		if err != nil {
			return nil, err
		}
		return title.NewAsyncOpener(st, asyncOpts, lg), nil

	case BackendS3:
		st, err := remote.NewS3Store(ctx, remote.S3Config{
			Bucket:          c.Bucket,
			Prefix:          c.Prefix,
			Region:          c.Region,
			Endpoint:        c.Endpoint,
			UsePathStyle:    c.UsePathStyle,
			AccessKeyID:     c.AccessKeyID,
			SecretAccessKey: c.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return title.NewAsyncOpener(st, asyncOpts, lg), nil

	case BackendMirror:
		m, err := manifest.LoadFile(c.Manifest)
		if err != nil {
			return nil, err
		}
		st := remote.NewMirrorStore(remote.HTTPBlobs{BaseURL: c.MirrorURL}, m)
		// The manifest answers probes locally, so there is nothing to cache.
		asyncOpts.ProbeCacheSize = 0
		return title.NewAsyncOpener(st, asyncOpts, lg), nil

	default:
		return nil, fmt.Errorf("%q: %w", c.Backend, ErrUnknownBackend)
	}
}
