package store

import (
	"errors"

	"github.com/CageChen/codespace/internal/vpath"
)

// Sentinel errors returned (wrapped in *PathError) by Store operations.
var (
	ErrInvalidPath     = vpath.ErrInvalidPath
	ErrPathConflict    = errors.New("path already exists")
	ErrNoSuchDirectory = errors.New("no such directory")
)

// PathError records the operation and path that caused a store error.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func pathErr(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}
