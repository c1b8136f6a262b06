// platform/platform.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package platform discovers where a title's bundled assets live on the
// running system and whether the display prefers high-density variants.
package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// Kind records which discovery rule produced a root.
type Kind int

const (
	// Desktop roots are the directory holding the running executable.
	Desktop Kind = iota
	// Packaged roots are the resource directory of an installed
	// application package (e.g. a macOS .app bundle).
	Packaged
	// Container roots are a fixed virtual mount point; assets are
	// addressed by name inside a platform asset bundle.
	Container
)

func (k Kind) String() string {
	switch k {
	case Desktop:
		return "desktop"
	case Packaged:
		return "packaged"
	case Container:
		return "container"
	default:
		return "unknown"
	}
}

// ContainerRoot is the virtual root reported on asset-container platforms.
const ContainerRoot = "/Application"

// HighDensityScale is the smallest display scale factor for which
// high-density asset variants are preferred.
const HighDensityScale = 2.0

type Info struct {
	Root  string
	Kind  Kind
	Scale float64
}

// HighDensity reports whether the display scale calls for @2x assets.
func (i Info) HighDensity() bool {
	return i.Scale >= HighDensityScale
}

// Detect determines the asset root for the running process and queries
// the display scale from the default ScaleSource. Scale query failures
// are not fatal; the scale is then reported as 1.
func Detect() (Info, error) {
	root, kind, err := detectRoot()
	if err != nil {
		return Info{}, err
	}

	info := Info{Root: root, Kind: kind, Scale: 1}
	if s, err := DefaultScaleSource().DisplayScale(); err == nil && s > 0 {
		info.Scale = s
	}
	return info, nil
}

// executableDir returns the directory of the running executable with
// symlinks resolved.
func executableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// bundleResourcesDir returns the Contents/Resources directory of the .app
// bundle holding exe, if exe is a bundle's main executable.
func bundleResourcesDir(exe string) (string, bool) {
	macos := filepath.Dir(exe)
	contents := filepath.Dir(macos)
	app := filepath.Dir(contents)
	if filepath.Base(macos) != "MacOS" || filepath.Base(contents) != "Contents" ||
		!strings.HasSuffix(filepath.Base(app), ".app") {
		return "", false
	}
	return filepath.Join(contents, "Resources"), true
}
