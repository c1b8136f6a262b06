// platform/scale_default.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build !glfw

package platform

// DefaultScaleSource returns the ScaleSource used by Detect.
func DefaultScaleSource() ScaleSource {
	return EnvScale{}
}
