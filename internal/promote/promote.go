// Package promote resolves the version of a model holding a stage and
// exports its artifact bundle. It is the unit both the CLI and the admin API
// drive.
package promote

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modelops/internal/events"
	"modelops/pkg/types"
)

// Resolver looks up the version holding a stage.
type Resolver interface {
	ResolveStagedVersion(ctx context.Context, modelName string, stage types.Stage) (types.ModelVersion, error)
}

// Exporter installs a run's bundle at exportDir.
type Exporter interface {
	Export(ctx context.Context, runID, artifactPath, exportDir string) ([]string, error)
}

// Target names what to promote and where to put it.
type Target struct {
	ModelName    string
	Stage        types.Stage
	ArtifactPath string
	ExportDir    string
}

// ErrInProgress is returned by TryPromote while another export runs.
var ErrInProgress = errors.New("export already in progress")

// Promoter runs resolve → export. Calls are serialized: one writer per
// export directory.
type Promoter struct {
	resolver  Resolver
	exporter  Exporter
	target    Target
	log       zerolog.Logger
	publisher events.Publisher

	run sync.Mutex // held for the duration of an export

	mu      sync.RWMutex
	last    *types.ExportResult
	lastErr string
	total   uint64
}

// New returns a Promoter. publisher may be nil.
func New(resolver Resolver, exporter Exporter, target Target, log zerolog.Logger, publisher events.Publisher) *Promoter {
	return &Promoter{
		resolver:  resolver,
		exporter:  exporter,
		target:    target,
		log:       log,
		publisher: events.OrNoop(publisher),
	}
}

// Target returns the configured promotion target.
func (p *Promoter) Target() Target { return p.target }

// Promote blocks until any running export finishes, then exports.
func (p *Promoter) Promote(ctx context.Context) (types.ExportResult, error) {
	p.run.Lock()
	defer p.run.Unlock()
	return p.promote(ctx)
}

// TryPromote exports unless an export is already running, in which case it
// returns ErrInProgress immediately.
func (p *Promoter) TryPromote(ctx context.Context) (types.ExportResult, error) {
	if !p.run.TryLock() {
		return types.ExportResult{}, ErrInProgress
	}
	defer p.run.Unlock()
	return p.promote(ctx)
}

func (p *Promoter) promote(ctx context.Context) (types.ExportResult, error) {
	start := time.Now()
	t := p.target
	p.mu.Lock()
	p.total++
	p.mu.Unlock()

	mv, err := p.resolver.ResolveStagedVersion(ctx, t.ModelName, t.Stage)
	if err != nil {
		p.fail(err, start, "resolve")
		return types.ExportResult{}, err
	}
	p.log.Info().Str("model", t.ModelName).Str("stage", string(t.Stage)).Str("version", mv.Version).Str("run_id", mv.RunID).
		Msgf("Using version %s run %s", mv.Version, mv.RunID)
	p.publisher.Publish(events.Event{Name: "version_resolved", Subject: t.ModelName, Fields: map[string]any{"version": mv.Version, "run_id": mv.RunID, "stage": string(t.Stage)}})

	files, err := p.exporter.Export(ctx, mv.RunID, t.ArtifactPath, t.ExportDir)
	if err != nil {
		p.fail(err, start, "export")
		return types.ExportResult{}, err
	}
	res := types.ExportResult{
		ModelName:    t.ModelName,
		Stage:        string(t.Stage),
		Version:      mv.Version,
		RunID:        mv.RunID,
		ArtifactPath: t.ArtifactPath,
		ExportDir:    t.ExportDir,
		Files:        files,
		FinishedUnix: time.Now().Unix(),
		DurationMS:   time.Since(start).Milliseconds(),
	}
	p.log.Info().Str("export_dir", t.ExportDir).Strs("files", files).Msgf("Exported files at %s: %v", t.ExportDir, files)
	observeSuccess(res, time.Since(start))

	p.mu.Lock()
	p.last = &res
	p.lastErr = ""
	p.mu.Unlock()
	return res, nil
}

func (p *Promoter) fail(err error, start time.Time, step string) {
	observeFailure(Classify(err), time.Since(start))
	p.mu.Lock()
	p.lastErr = err.Error()
	p.mu.Unlock()
	p.log.Error().Err(err).Str("step", step).Str("model", p.target.ModelName).Msg("promotion failed")
}

// Last returns the most recent successful export, if any.
func (p *Promoter) Last() *types.ExportResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	cp := *p.last
	cp.Files = append([]string(nil), p.last.Files...)
	return &cp
}

// LastError returns the message of the most recent failed promotion, cleared
// by the next success.
func (p *Promoter) LastError() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Total returns how many promotions were attempted.
func (p *Promoter) Total() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}
