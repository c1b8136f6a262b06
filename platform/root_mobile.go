// platform/root_mobile.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build android || ios

package platform

func detectRoot() (string, Kind, error) {
	return ContainerRoot, Container, nil
}
