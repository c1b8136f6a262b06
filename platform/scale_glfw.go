// platform/scale_glfw.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build glfw

package platform

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// GLFWScale queries the primary monitor's content scale. GLFW must only
// be used from the main thread, so Detect should be called from main
// before any windows are created. If GLFW cannot report a scale, Fallback
// is consulted.
type GLFWScale struct {
	Fallback ScaleSource
}

func (g GLFWScale) DisplayScale() (float64, error) {
	s, err := g.query()
	if err != nil && g.Fallback != nil {
		return g.Fallback.DisplayScale()
	}
	return s, err
}

func (g GLFWScale) query() (float64, error) {
	if err := glfw.Init(); err != nil {
		return 0, fmt.Errorf("failed to initialize glfw: %w", err)
	}
	defer glfw.Terminate()

	m := glfw.GetPrimaryMonitor()
	if m == nil {
		return 0, ErrNoDisplayScale
	}
	sx, sy := m.GetContentScale()
	return float64(sx+sy) / 2, nil
}

// DefaultScaleSource returns the ScaleSource used by Detect. Builds with
// the glfw tag ask the windowing system for the primary monitor's content
// scale.
func DefaultScaleSource() ScaleSource {
	return GLFWScale{Fallback: EnvScale{}}
}
