//go:build !linux

package exporter

import (
	"errors"
	"os"
)

func swapDir(staging, target string) error {
	if _, err := os.Lstat(target); errors.Is(err, os.ErrNotExist) {
		return os.Rename(staging, target)
	}
	return swapByRename(staging, target)
}
