// title/errors.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package title

import (
	"errors"
	"io/fs"
)

var (
	ErrInvalidName = errors.New("invalid asset name: a relative path is required")
	ErrNotFound    = errors.New("asset not found")
	ErrNoBundle    = errors.New("no asset bundle registered for container platform")
)

// NotFoundError reports that no stream exists for an asset. It matches
// both ErrNotFound and fs.ErrNotExist with errors.Is.
type NotFoundError struct {
	// Name is the normalized, slash-separated asset key.
	Name string
	// Path is where the asset was looked for, when that differs from
	// Name (e.g. a filesystem path under the root).
	Path string
}

func (e *NotFoundError) Error() string {
	if e.Path != "" && e.Path != e.Name {
		return e.Name + ": " + ErrNotFound.Error() + " at " + e.Path
	}
	return e.Name + ": " + ErrNotFound.Error()
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == fs.ErrNotExist
}

// notFound converts fs "does not exist" errors into a *NotFoundError and
// returns every other error unchanged.
func notFound(err error, key, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return &NotFoundError{Name: key, Path: path}
	}
	return err
}
