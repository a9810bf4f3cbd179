// Package artifacts retrieves a run's artifact bundle from content storage
// into a local staging directory.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"modelops/internal/common/fsutil"
	"modelops/pkg/types"
)

// Store retrieves artifact bundles.
type Store interface {
	// Download materializes the tree at artifactPath of run runID under a
	// local directory and returns it. The bundle root holds the contents of
	// artifactPath, not artifactPath itself.
	Download(ctx context.Context, runID, artifactPath string) (Bundle, error)
}

// Bundle is a downloaded artifact tree owned by the caller until Cleanup.
type Bundle struct {
	Root    string
	cleanup func() error
}

// Cleanup removes the staging directory. Safe to call on a zero Bundle.
func (b Bundle) Cleanup() error {
	if b.cleanup == nil {
		return nil
	}
	return b.cleanup()
}

// RemoteLister is the registry surface used by HTTPStore.
type RemoteLister interface {
	ListArtifacts(ctx context.Context, runID, path string) ([]types.ArtifactFile, error)
	OpenArtifact(ctx context.Context, runID, path string) (io.ReadCloser, error)
}

// RunGetter is the registry surface used by LocalStore.
type RunGetter interface {
	GetRun(ctx context.Context, runID string) (types.RunInfo, error)
}

// RetrievalError reports that storage could not produce a bundle.
type RetrievalError struct {
	RunID string
	Path  string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieve artifacts %s of run %s: %v", e.Path, e.RunID, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// IsRetrievalError reports whether err is an artifact retrieval failure.
func IsRetrievalError(err error) bool {
	var re *RetrievalError
	return errors.As(err, &re)
}

// ErrNotFound is wrapped when the run has nothing at the requested path.
var ErrNotFound = errors.New("artifact not found")

func retrievalErr(runID, path string, err error) error {
	return &RetrievalError{RunID: runID, Path: path, Err: err}
}

// newStaging creates an empty temporary bundle root.
func newStaging() (string, func() error, error) {
	dir, err := os.MkdirTemp("", "modelops-artifacts-*")
	if err != nil {
		return "", nil, err
	}
	return dir, func() error { return fsutil.RemoveTree(dir) }, nil
}
