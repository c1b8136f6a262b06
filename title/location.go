// title/location.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package title

import (
	"github.com/mmp/titlestore/platform"
)

// DefaultDensityMarker is inserted before a file's extension to name its
// high-density variant.
const DefaultDensityMarker = "@2x"

// Location is the immutable description of a title storage area: where
// its assets are rooted and whether high-density variants are preferred.
type Location struct {
	Root        string
	HighDensity bool
	Kind        platform.Kind
}

// DetectLocation builds a Location for the running process.
func DetectLocation() (Location, error) {
	info, err := platform.Detect()
	if err != nil {
		return Location{}, err
	}
	return Location{
		Root:        info.Root,
		HighDensity: info.HighDensity(),
		Kind:        info.Kind,
	}, nil
}

// FileOpener returns the opener for a filesystem location: the root
// directory, wrapped to prefer @2x variants when the location is high
// density.
func (l Location) FileOpener() Opener {
	fo := FileOpener{Root: l.Root}
	if l.HighDensity {
		return &DensityOpener{Base: fo, Marker: DefaultDensityMarker}
	}
	return fo
}
