package exporter

import (
	"errors"
	"fmt"
)

// IOError reports a local filesystem failure while installing an export.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("export %s %s: %v", e.Op, e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

// IsIOError reports whether err is an export filesystem failure.
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

func ioErr(op, path string, err error) error { return &IOError{Op: op, Path: path, Err: err} }
