//go:build linux

package exporter

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// swapDir moves the directory at staging to target. If target exists the two
// are exchanged in one renameat2 call and staging ends up holding the old
// tree; otherwise staging is renamed and no longer exists.
func swapDir(staging, target string) error {
	if _, err := os.Lstat(target); errors.Is(err, os.ErrNotExist) {
		return os.Rename(staging, target)
	}
	err := unix.Renameat2(unix.AT_FDCWD, staging, unix.AT_FDCWD, target, unix.RENAME_EXCHANGE)
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EINVAL) {
		// Kernel or filesystem without RENAME_EXCHANGE.
		return swapByRename(staging, target)
	}
	return err
}
