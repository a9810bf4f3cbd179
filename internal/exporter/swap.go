package exporter

import (
	"os"
)

// swapByRename moves target aside, renames staging into place and leaves the
// old tree at staging. target is briefly absent but never partial.
func swapByRename(staging, target string) error {
	aside := staging + ".old"
	if err := os.Rename(target, aside); err != nil {
		return err
	}
	if err := os.Rename(staging, target); err != nil {
		_ = os.Rename(aside, target)
		return err
	}
	return os.Rename(aside, staging)
}
