// platform/platform_test.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package platform

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestBundleResourcesDir(t *testing.T) {
	tests := []struct {
		name string
		exe  string
		want string
		ok   bool
	}{
		{
			name: "app bundle",
			exe:  filepath.Join("/", "Applications", "Game.app", "Contents", "MacOS", "game"),
			want: filepath.Join("/", "Applications", "Game.app", "Contents", "Resources"),
			ok:   true,
		},
		{
			name: "plain directory",
			exe:  filepath.Join("/", "usr", "local", "bin", "game"),
		},
		{
			name: "MacOS outside a bundle",
			exe:  filepath.Join("/", "opt", "Contents", "MacOS", "game"),
		},
		{
			name: "bundle without Contents",
			exe:  filepath.Join("/", "Applications", "Game.app", "MacOS", "game"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bundleResourcesDir(tt.exe)
			if ok != tt.ok || got != tt.want {
				t.Errorf("bundleResourcesDir(%q) = %q, %v; want %q, %v", tt.exe, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestEnvScale(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    float64
		wantErr bool
	}{
		{name: "unset", wantErr: true},
		{name: "explicit override", env: map[string]string{"TITLESTORE_DISPLAY_SCALE": "2", "GDK_SCALE": "1"}, want: 2},
		{name: "gdk", env: map[string]string{"GDK_SCALE": "2"}, want: 2},
		{name: "qt fractional", env: map[string]string{"QT_SCALE_FACTOR": " 1.5 "}, want: 1.5},
		{name: "blank is skipped", env: map[string]string{"TITLESTORE_DISPLAY_SCALE": "", "GDK_SCALE": "3"}, want: 3},
		{name: "garbage", env: map[string]string{"GDK_SCALE": "retina"}, wantErr: true},
		{name: "negative", env: map[string]string{"GDK_SCALE": "-2"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := EnvScale{Lookup: func(k string) (string, bool) {
				v, ok := tt.env[k]
				return v, ok
			}}
			got, err := src.DisplayScale()
			if (err != nil) != tt.wantErr {
				t.Fatalf("DisplayScale() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DisplayScale() = %g, want %g", got, tt.want)
			}
		})
	}
}

func TestEnvScaleUnsetError(t *testing.T) {
	src := EnvScale{Lookup: func(string) (string, bool) { return "", false }}
	if _, err := src.DisplayScale(); !errors.Is(err, ErrNoDisplayScale) {
		t.Errorf("DisplayScale() error = %v, want ErrNoDisplayScale", err)
	}
}

func TestHighDensity(t *testing.T) {
	for _, tt := range []struct {
		scale float64
		want  bool
	}{{1, false}, {1.5, false}, {2, true}, {3, true}} {
		if got := (Info{Scale: tt.scale}).HighDensity(); got != tt.want {
			t.Errorf("Info{Scale: %g}.HighDensity() = %v, want %v", tt.scale, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	info, err := Detect()
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if info.Root == "" {
		t.Errorf("Detect returned an empty root")
	}
	if info.Scale <= 0 {
		t.Errorf("Detect returned scale %g", info.Scale)
	}
	if info.Kind.String() == "unknown" {
		t.Errorf("Detect returned kind %d", info.Kind)
	}
}
