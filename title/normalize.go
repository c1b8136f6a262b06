// title/normalize.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package title

import (
	"fmt"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// Normalize cleans an asset name lexically. Both '/' and '\' are accepted
// as separators, "." and ".." elements are resolved, and ".." never
// climbs above the start of the name. A leading separator, or on Windows
// a drive letter, is kept so that callers can tell the name was rooted.
// The result uses the platform's separator; Normalize is idempotent.
func Normalize(name string) string {
	s := strings.ReplaceAll(name, `\`, "/")

	var vol string
	if hasVolume(s) {
		vol, s = s[:2], s[2:]
	}

	rooted := strings.HasPrefix(s, "/")
	s = path.Clean("/" + s)
	if !rooted {
		s = strings.TrimPrefix(s, "/")
	}

	return filepath.FromSlash(vol + s)
}

// Key normalizes name and returns the slash-separated key used to address
// the asset inside an Opener. Rooted and empty names are rejected with
// ErrInvalidName.
func Key(name string) (string, error) {
	n := Normalize(name)
	if n == "" || isRooted(n) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return filepath.ToSlash(n), nil
}

func isRooted(n string) bool {
	return strings.HasPrefix(n, "/") || strings.HasPrefix(n, `\`) || hasVolume(n)
}

// driveLetters is set where "X:" starts a volume name; elsewhere it is an
// ordinary part of a file name.
var driveLetters = runtime.GOOS == "windows"

func hasVolume(s string) bool {
	if !driveLetters || len(s) < 2 || s[1] != ':' {
		return false
	}
	c := s[0]
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
