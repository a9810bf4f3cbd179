package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modelops/internal/events"
	"modelops/pkg/types"
)

// Supervisor tracks started processes so they can be reported and stopped
// together.
type Supervisor struct {
	log       zerolog.Logger
	publisher events.Publisher

	mu    sync.Mutex
	procs []*Process
}

// New returns an empty Supervisor. publisher may be nil.
func New(log zerolog.Logger, publisher events.Publisher) *Supervisor {
	return &Supervisor{log: log, publisher: events.OrNoop(publisher)}
}

// Start launches spec and tracks it. A process that fails to launch is
// still tracked so its status is reported.
func (s *Supervisor) Start(ctx context.Context, spec Spec) (*Process, error) {
	p := NewProcess(spec, s.log, s.publisher)
	s.mu.Lock()
	s.procs = append(s.procs, p)
	s.mu.Unlock()
	if err := p.Start(ctx); err != nil {
		return p, err
	}
	return p, nil
}

// RunOnce starts spec, tracks it and waits for it to exit.
func (s *Supervisor) RunOnce(ctx context.Context, spec Spec, grace time.Duration) error {
	p, err := s.Start(ctx, spec)
	if err != nil {
		return err
	}
	return waitOrStop(ctx, p, grace)
}

// StopAll stops every tracked process, most recently started first.
func (s *Supervisor) StopAll(grace time.Duration) {
	s.mu.Lock()
	procs := append([]*Process(nil), s.procs...)
	s.mu.Unlock()
	for i := len(procs) - 1; i >= 0; i-- {
		_ = procs[i].Stop(grace)
	}
}

// Statuses reports every tracked process in start order.
func (s *Supervisor) Statuses() []types.ProcessStatus {
	s.mu.Lock()
	procs := append([]*Process(nil), s.procs...)
	s.mu.Unlock()
	out := make([]types.ProcessStatus, 0, len(procs))
	for _, p := range procs {
		out = append(out, p.Status())
	}
	return out
}

func waitOrStop(ctx context.Context, p *Process, grace time.Duration) error {
	select {
	case <-p.Done():
		return p.Wait()
	case <-ctx.Done():
		_ = p.Stop(grace)
		return ctx.Err()
	}
}

func eventf(name, subject string, fields map[string]any) events.Event {
	return events.Event{Name: name, Subject: subject, Fields: fields}
}
