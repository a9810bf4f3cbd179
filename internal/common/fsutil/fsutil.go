package fsutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/models/llm
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}

// PathExists checks if the given path exists.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

// CopyTree copies the directory tree rooted at src into dst, preserving
// relative layout and file modes. dst is created if missing; existing files
// in dst are overwritten. Symlinks are recreated, not followed.
// Directory modes are applied after their contents are written, so
// read-only directories copy cleanly.
func CopyTree(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("copy tree: %s is not a directory", src)
	}
	type dirMode struct {
		path string
		mode fs.FileMode
	}
	var dirs []dirMode
	if !PathExists(dst) {
		dirs = append(dirs, dirMode{dst, info.Mode().Perm()})
	}
	if err := os.MkdirAll(dst, ownerWritable(info.Mode().Perm())); err != nil {
		return err
	}
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			_ = os.Remove(target)
			return os.Symlink(link, target)
		case d.IsDir():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			dirs = append(dirs, dirMode{target, fi.Mode().Perm()})
			return os.MkdirAll(target, ownerWritable(fi.Mode().Perm()))
		default:
			fi, err := d.Info()
			if err != nil {
				return err
			}
			return CopyFile(path, target, fi.Mode().Perm())
		}
	})
	if err != nil {
		return err
	}
	// deepest first
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Chmod(dirs[i].path, dirs[i].mode); err != nil {
			return err
		}
	}
	return nil
}

func ownerWritable(mode fs.FileMode) fs.FileMode { return mode | 0o700 }

// RemoveTree removes path and everything below it, first granting the owner
// write access on directories that would otherwise refuse the unlink.
func RemoveTree(path string) error {
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if fi, ierr := d.Info(); ierr == nil && fi.Mode().Perm()&0o700 != 0o700 {
			_ = os.Chmod(p, ownerWritable(fi.Mode().Perm()))
		}
		return nil
	})
	return os.RemoveAll(path)
}

// CopyFile copies a regular file from src to dst with the given mode.
func CopyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile honours umask; restore the source mode exactly.
	return os.Chmod(dst, mode)
}

// ListNames returns the sorted names of the entries directly under dir.
func ListNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// WithinRoot joins rel onto root and reports an error if the result would
// escape root.
func WithinRoot(root, rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", rel, root)
	}
	return filepath.Join(root, clean), nil
}
