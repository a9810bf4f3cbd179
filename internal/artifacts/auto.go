package artifacts

import (
	"context"
	"os"

	"github.com/rs/zerolog"
)

// AutoStore copies from the local artifact root when the run's artifacts
// live on this machine and falls back to the tracking server otherwise.
type AutoStore struct {
	Local  *LocalStore
	Remote *HTTPStore
	Logger zerolog.Logger
}

// Client is the registry surface AutoStore needs.
type Client interface {
	RemoteLister
	RunGetter
}

// NewAutoStore wires both stores over the same registry client.
func NewAutoStore(c Client, baseDir string, log zerolog.Logger) *AutoStore {
	return &AutoStore{
		Local:  NewLocalStore(c, baseDir, log),
		Remote: NewHTTPStore(c, log),
		Logger: log,
	}
}

func (s *AutoStore) Download(ctx context.Context, runID, artifactPath string) (Bundle, error) {
	info, err := s.Local.Runs.GetRun(ctx, runID)
	if err == nil {
		if p, ok := LocalPath(info.ArtifactURI, s.Local.BaseDir); ok {
			if _, statErr := os.Stat(p); statErr == nil {
				return s.Local.Download(ctx, runID, artifactPath)
			}
		}
	} else {
		s.Logger.Debug().Err(err).Str("run_id", runID).Msg("run lookup failed; using tracking server artifacts")
	}
	return s.Remote.Download(ctx, runID, artifactPath)
}

// New picks a Store by name: "local", "http" or "auto".
func New(kind string, c Client, baseDir string, log zerolog.Logger) Store {
	switch kind {
	case "local":
		return NewLocalStore(c, baseDir, log)
	case "http":
		return NewHTTPStore(c, log)
	default:
		return NewAutoStore(c, baseDir, log)
	}
}
