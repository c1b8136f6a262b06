// platform/root_darwin.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build darwin && !ios

package platform

import (
	"os"
	"path/filepath"
)

func detectRoot() (string, Kind, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", Desktop, err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	// Binaries launched from inside an .app bundle find their assets in
	// Contents/Resources rather than next to the executable.
	if dir, ok := bundleResourcesDir(exe); ok {
		return dir, Packaged, nil
	}
	return filepath.Dir(exe), Desktop, nil
}
