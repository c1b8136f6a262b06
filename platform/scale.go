// platform/scale.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package platform

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var ErrNoDisplayScale = errors.New("display scale not available")

// ScaleSource reports the scale factor of the primary display.
type ScaleSource interface {
	DisplayScale() (float64, error)
}

// ScaleEnvVars are consulted in order by EnvScale.
var ScaleEnvVars = []string{"TITLESTORE_DISPLAY_SCALE", "GDK_SCALE", "QT_SCALE_FACTOR"}

// EnvScale reads the display scale from the environment. Lookup defaults
// to os.LookupEnv.
type EnvScale struct {
	Lookup func(string) (string, bool)
}

func (e EnvScale) DisplayScale() (float64, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	for _, name := range ScaleEnvVars {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		s, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		if s <= 0 {
			return 0, fmt.Errorf("%s: scale %g must be positive", name, s)
		}
		return s, nil
	}
	return 0, ErrNoDisplayScale
}

// FixedScale is a ScaleSource that always reports the same value.
type FixedScale float64

func (f FixedScale) DisplayScale() (float64, error) {
	return float64(f), nil
}
