package artifacts

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"modelops/internal/common/fsutil"
)

// LocalStore copies artifacts straight from a run's file-based artifact root.
type LocalStore struct {
	Runs RunGetter
	// BaseDir resolves relative artifact URIs (the tracking server's working
	// directory). Empty means the current directory.
	BaseDir string
	Logger  zerolog.Logger
}

// NewLocalStore returns a LocalStore resolving runs through runs.
func NewLocalStore(runs RunGetter, baseDir string, log zerolog.Logger) *LocalStore {
	return &LocalStore{Runs: runs, BaseDir: baseDir, Logger: log}
}

func (s *LocalStore) Download(ctx context.Context, runID, artifactPath string) (Bundle, error) {
	artifactPath = strings.Trim(artifactPath, "/")
	src, err := s.sourceDir(ctx, runID, artifactPath)
	if err != nil {
		return Bundle{}, retrievalErr(runID, artifactPath, err)
	}
	root, cleanup, err := newStaging()
	if err != nil {
		return Bundle{}, retrievalErr(runID, artifactPath, err)
	}
	if err := fsutil.CopyTree(src, root); err != nil {
		_ = cleanup()
		return Bundle{}, retrievalErr(runID, artifactPath, err)
	}
	s.Logger.Debug().Str("run_id", runID).Str("src", src).Str("root", root).Msg("artifacts copied from local store")
	return Bundle{Root: root, cleanup: cleanup}, nil
}

func (s *LocalStore) sourceDir(ctx context.Context, runID, artifactPath string) (string, error) {
	info, err := s.Runs.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	base, ok := LocalPath(info.ArtifactURI, s.BaseDir)
	if !ok {
		return "", fmt.Errorf("artifact uri %q is not a local path", info.ArtifactURI)
	}
	src, err := fsutil.WithinRoot(base, artifactPath)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", src, ErrNotFound)
		}
		return "", err
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("%s is not a directory", src)
	}
	return src, nil
}

// LocalPath converts a file: URI or plain path into a filesystem path,
// resolving relative paths against baseDir. ok is false for remote schemes.
func LocalPath(uri, baseDir string) (p string, ok bool) {
	if uri == "" {
		return "", false
	}
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		if u.Scheme != "file" {
			return "", false
		}
		p = u.Path
		if p == "" {
			p = u.Opaque
		}
	} else {
		p = uri
	}
	p = filepath.FromSlash(p)
	if !filepath.IsAbs(p) && baseDir != "" {
		p = filepath.Join(baseDir, p)
	}
	return filepath.Clean(p), true
}
