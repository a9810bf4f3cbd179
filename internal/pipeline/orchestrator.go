// Package pipeline runs the model workflow end to end: start the registry,
// train, export the staged model and serve it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modelops/internal/config"
	"modelops/internal/events"
	"modelops/internal/supervisor"
	"modelops/pkg/types"
)

// Phases, in the order Run moves through them.
const (
	PhasePending   = "pending"
	PhaseRegistry  = "registry"
	PhaseTraining  = "training"
	PhaseExporting = "exporting"
	PhaseServing   = "serving"
	PhaseStopped   = "stopped"
)

// Promoter is the promotion surface the orchestrator drives.
type Promoter interface {
	Promote(ctx context.Context) (types.ExportResult, error)
	TryPromote(ctx context.Context) (types.ExportResult, error)
	Last() *types.ExportResult
	LastError() string
	Total() uint64
}

// Pinger reports whether the registry answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Orchestrator sequences the child processes and the export.
type Orchestrator struct {
	cfg       config.Config
	registry  Pinger
	promoter  Promoter
	sup       *supervisor.Supervisor
	log       zerolog.Logger
	publisher events.Publisher
	started   time.Time

	mu      sync.RWMutex
	phase   string
	lastErr string
	serving *supervisor.Process
}

// New returns an Orchestrator for a defaulted, validated cfg. registry probes
// an external registry; when nil its health URL is polled directly.
// publisher may be nil.
func New(cfg config.Config, registry Pinger, promoter Promoter, log zerolog.Logger, publisher events.Publisher) *Orchestrator {
	publisher = events.OrNoop(publisher)
	return &Orchestrator{
		cfg:       cfg,
		registry:  registry,
		promoter:  promoter,
		sup:       supervisor.New(log, publisher),
		log:       log,
		publisher: publisher,
		started:   time.Now(),
		phase:     PhasePending,
	}
}

// Run blocks until serving exits or ctx is cancelled, then stops every
// child. Cancellation while serving is a normal shutdown and returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer func() {
		o.sup.StopAll(o.cfg.Serving.StopGrace())
		o.setPhase(PhaseStopped)
	}()

	steps := []struct {
		phase string
		fn    func(context.Context) error
	}{
		{PhaseRegistry, o.startRegistry},
		{PhaseTraining, o.train},
		{PhaseExporting, o.export},
		{PhaseServing, o.serve},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.setPhase(s.phase)
		if err := s.fn(ctx); err != nil {
			if s.phase == PhaseServing && errors.Is(err, context.Canceled) {
				return nil
			}
			o.setError(err)
			o.log.Error().Err(err).Str("phase", s.phase).Msg("pipeline aborted")
			return fmt.Errorf("%s: %w", s.phase, err)
		}
	}
	return nil
}

func (o *Orchestrator) readyOpts() supervisor.ReadyOptions {
	return supervisor.ReadyOptions{Timeout: o.cfg.Registry.ReadyTimeout(), Interval: o.cfg.Registry.ReadyInterval()}
}

func (o *Orchestrator) startRegistry(ctx context.Context) error {
	r := o.cfg.Registry
	if !r.SpawnRegistry() {
		o.log.Info().Str("uri", r.URI).Msg("using external registry")
		if o.registry != nil {
			return supervisor.WaitFor(ctx, "registry", r.URI, o.registry.Ping, o.readyOpts())
		}
		return supervisor.WaitHTTP(ctx, "registry", r.HealthURL(), o.readyOpts())
	}
	p, err := o.sup.Start(ctx, supervisor.Spec{
		Name:      "registry",
		Bin:       r.Bin,
		Args:      r.ServerArgs(),
		Dir:       r.WorkDir,
		HealthURL: r.HealthURL(),
	})
	if err != nil {
		return err
	}
	return p.WaitReady(ctx, o.readyOpts())
}

func (o *Orchestrator) train(ctx context.Context) error {
	t := o.cfg.Training
	if t.Skip || len(t.Command) == 0 {
		o.log.Info().Msg("training skipped")
		return nil
	}
	env := map[string]string{"MLFLOW_TRACKING_URI": o.cfg.Registry.URI}
	for k, v := range t.Env {
		env[k] = v
	}
	err := o.sup.RunOnce(ctx, supervisor.Spec{
		Name: "training",
		Bin:  t.Command[0],
		Args: t.Command[1:],
		Env:  env,
		Dir:  t.Dir,
	}, o.cfg.Serving.StopGrace())
	// Only a non-zero exit is tolerated; launch failures and cancellation abort.
	var ee *supervisor.ExitError
	if err == nil || t.FailOnError || !errors.As(err, &ee) || ctx.Err() != nil {
		return err
	}
	o.log.Warn().Err(ee.Err).Str("stderr_tail", ee.StderrTail).Msg("training failed, continuing")
	o.publisher.Publish(events.Event{Name: "training_failed", Subject: "training", Fields: map[string]any{"error": err.Error()}})
	return nil
}

func (o *Orchestrator) export(ctx context.Context) error {
	if !o.cfg.ExportAtStart() {
		o.log.Info().Msg("export on start disabled")
		return nil
	}
	_, err := o.promoter.Promote(ctx)
	return err
}

func (o *Orchestrator) serve(ctx context.Context) error {
	s := o.cfg.Serving
	p, err := o.sup.Start(ctx, supervisor.Spec{
		Name:      "serving",
		Bin:       s.Command[0],
		Args:      s.Command[1:],
		Env:       s.Env,
		Dir:       s.Dir,
		HealthURL: s.HealthURL(),
	})
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.serving = p
	o.mu.Unlock()
	if err := p.WaitReady(ctx, o.readyOpts()); err != nil {
		return err
	}
	o.log.Info().Int("port", s.Port).Msg("serving")
	select {
	case <-p.Done():
		return p.Wait()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) setPhase(phase string) {
	o.mu.Lock()
	prev := o.phase
	o.phase = phase
	o.mu.Unlock()
	o.log.Info().Str("from", prev).Str("to", phase).Msg("phase")
	o.publisher.Publish(events.Event{Name: "phase", Subject: phase, Fields: map[string]any{"from": prev}})
}

func (o *Orchestrator) setError(err error) {
	o.mu.Lock()
	o.lastErr = err.Error()
	o.mu.Unlock()
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.phase
}

// Ready reports whether the serving process is up.
func (o *Orchestrator) Ready() bool {
	o.mu.RLock()
	phase, p := o.phase, o.serving
	o.mu.RUnlock()
	return phase == PhaseServing && p != nil && p.Status().State == supervisor.StateReady
}

// Status returns a snapshot for the admin API.
func (o *Orchestrator) Status() types.StatusResponse {
	o.mu.RLock()
	phase, lastErr := o.phase, o.lastErr
	o.mu.RUnlock()
	if lastErr == "" {
		lastErr = o.promoter.LastError()
	}
	now := time.Now()
	return types.StatusResponse{
		Phase:          phase,
		Processes:      o.sup.Statuses(),
		LastExport:     o.promoter.Last(),
		LastError:      lastErr,
		UptimeSeconds:  int64(now.Sub(o.started).Seconds()),
		ServerTimeUnix: now.Unix(),
		ExportsTotal:   o.promoter.Total(),
	}
}

// Export re-runs the promotion on demand. It does not wait for an export
// already in flight.
func (o *Orchestrator) Export(ctx context.Context) (types.ExportResult, error) {
	return o.promoter.TryPromote(ctx)
}
