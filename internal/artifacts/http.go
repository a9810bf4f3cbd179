package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"modelops/internal/common/fsutil"
)

// HTTPStore downloads artifacts through the tracking server's artifact
// endpoints.
type HTTPStore struct {
	Remote RemoteLister
	Logger zerolog.Logger
}

// NewHTTPStore returns an HTTPStore over remote.
func NewHTTPStore(remote RemoteLister, log zerolog.Logger) *HTTPStore {
	return &HTTPStore{Remote: remote, Logger: log}
}

func (s *HTTPStore) Download(ctx context.Context, runID, artifactPath string) (Bundle, error) {
	artifactPath = strings.Trim(artifactPath, "/")
	root, cleanup, err := newStaging()
	if err != nil {
		return Bundle{}, retrievalErr(runID, artifactPath, err)
	}
	n, err := s.fetchDir(ctx, runID, artifactPath, artifactPath, root)
	if err == nil && n == 0 {
		err = ErrNotFound
	}
	if err != nil {
		_ = cleanup()
		return Bundle{}, retrievalErr(runID, artifactPath, err)
	}
	s.Logger.Debug().Str("run_id", runID).Str("path", artifactPath).Int("files", n).Str("root", root).Msg("artifacts downloaded")
	return Bundle{Root: root, cleanup: cleanup}, nil
}

// fetchDir downloads every file below dir, writing each relative to base
// under root. It returns the number of files written.
func (s *HTTPStore) fetchDir(ctx context.Context, runID, base, dir, root string) (int, error) {
	files, err := s.Remote.ListArtifacts(ctx, runID, dir)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, f := range files {
		rel, err := relTo(base, f.Path)
		if err != nil {
			return total, err
		}
		local, err := fsutil.WithinRoot(root, rel)
		if err != nil {
			return total, err
		}
		if f.IsDir {
			if err := os.MkdirAll(local, 0o755); err != nil {
				return total, err
			}
			n, err := s.fetchDir(ctx, runID, base, f.Path, root)
			total += n
			if err != nil {
				return total, err
			}
			continue
		}
		if err := s.fetchFile(ctx, runID, f.Path, local); err != nil {
			return total, err
		}
		total++
	}
	return total, nil
}

func (s *HTTPStore) fetchFile(ctx context.Context, runID, remote, local string) error {
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return err
	}
	rc, err := s.Remote.OpenArtifact(ctx, runID, remote)
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(local, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("download %s: %w", remote, err)
	}
	return out.Close()
}

// relTo returns p relative to base, both slash separated run paths.
func relTo(base, p string) (string, error) {
	p = path.Clean(strings.Trim(p, "/"))
	if base == "" {
		return p, nil
	}
	if p == base {
		return "", fmt.Errorf("listing of %s returned the directory itself", base)
	}
	if !strings.HasPrefix(p, base+"/") {
		return "", fmt.Errorf("artifact %s is outside %s", p, base)
	}
	return strings.TrimPrefix(p, base+"/"), nil
}
