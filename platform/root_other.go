// platform/root_other.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build !darwin && !android

package platform

func detectRoot() (string, Kind, error) {
	dir, err := executableDir()
	return dir, Desktop, err
}
