// Package supervisor starts, probes and stops the child processes the
// orchestrator depends on: the tracking server, the training job and the
// serving application.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modelops/internal/events"
	"modelops/pkg/types"
)

// Process lifecycle states.
const (
	StatePending  = "pending"
	StateStarting = "starting"
	StateReady    = "ready"
	StateExited   = "exited"
	StateStopped  = "stopped"
)

const stderrTailBytes = 4096

// Spec describes a child process.
type Spec struct {
	Name string
	Bin  string
	Args []string
	// Env is added on top of the parent's environment.
	Env map[string]string
	Dir string
	// HealthURL, when set, is polled by WaitReady.
	HealthURL string
}

// Process is one supervised child.
type Process struct {
	spec      Spec
	log       zerolog.Logger
	publisher events.Publisher

	mu      sync.Mutex
	cmd     *exec.Cmd
	state   string
	pid     int
	exitErr error
	stopped bool

	stdout, stderr *lineLogger
	tail           *tailBuffer
	done           chan struct{}
}

// NewProcess prepares a child; nothing runs until Start. publisher may be nil.
func NewProcess(spec Spec, log zerolog.Logger, publisher events.Publisher) *Process {
	l := log.With().Str("process", spec.Name).Logger()
	return &Process{
		spec:      spec,
		log:       l,
		publisher: events.OrNoop(publisher),
		state:     StatePending,
		tail:      newTailBuffer(stderrTailBytes),
		done:      make(chan struct{}),
	}
}

// Name returns the logical process name.
func (p *Process) Name() string { return p.spec.Name }

// Start launches the child. ctx only bounds the launch itself; use Stop to
// end the process.
func (p *Process) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.spec.Bin == "" {
		return fmt.Errorf("%s: empty command", p.spec.Name)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd != nil {
		return fmt.Errorf("%s: already started", p.spec.Name)
	}

	cmd := exec.Command(p.spec.Bin, p.spec.Args...)
	cmd.Dir = p.spec.Dir
	cmd.Env = mergeEnv(os.Environ(), p.spec.Env)
	p.stdout = &lineLogger{log: p.log, stream: "stdout"}
	p.stderr = &lineLogger{log: p.log, stream: "stderr"}
	cmd.Stdout = p.stdout
	cmd.Stderr = io.MultiWriter(p.stderr, p.tail)
	// Grandchildren holding the pipes must not block Wait forever.
	cmd.WaitDelay = 2 * time.Second
	setProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		p.state = StateExited
		p.exitErr = err
		close(p.done)
		return fmt.Errorf("start %s: %w", p.spec.Name, err)
	}
	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.state = StateStarting
	p.log.Info().Int("pid", p.pid).Str("bin", p.spec.Bin).Strs("args", p.spec.Args).Msg("process started")
	p.publisher.Publish(events.Event{Name: "process_start", Subject: p.spec.Name, Fields: map[string]any{"pid": p.pid}})

	go p.wait()
	return nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	p.stdout.flush()
	p.stderr.flush()

	p.mu.Lock()
	p.exitErr = err
	if p.stopped {
		p.state = StateStopped
	} else {
		p.state = StateExited
	}
	state := p.state
	p.mu.Unlock()

	ev := p.log.Info()
	if err != nil && state == StateExited {
		ev = p.log.Warn().Err(err)
	}
	ev.Int("pid", p.pid).Str("state", state).Msg("process exited")
	fields := map[string]any{"pid": p.pid, "state": state}
	if err != nil {
		fields["error"] = err.Error()
	}
	p.publisher.Publish(events.Event{Name: "process_exit", Subject: p.spec.Name, Fields: fields})
	close(p.done)
}

// Done is closed once the child has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Wait blocks until the child exits and returns its exit error. A child
// that was stopped via Stop returns nil.
func (p *Process) Wait() error {
	p.mu.Lock()
	started := p.cmd != nil || p.state == StateExited
	p.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil
	}
	if p.exitErr != nil {
		return &ExitError{Name: p.spec.Name, Err: p.exitErr, StderrTail: p.tail.String()}
	}
	return nil
}

// Stop sends SIGTERM and kills the process group once grace elapses.
func (p *Process) Stop(grace time.Duration) error {
	p.mu.Lock()
	if p.cmd == nil {
		p.mu.Unlock()
		return nil
	}
	select {
	case <-p.done:
		p.mu.Unlock()
		return nil
	default:
	}
	p.stopped = true
	pid := p.pid
	p.mu.Unlock()

	p.log.Info().Int("pid", pid).Dur("grace", grace).Msg("stopping process")
	if err := terminate(pid); err != nil {
		p.log.Warn().Err(err).Int("pid", pid).Msg("terminate")
	}
	select {
	case <-p.done:
	case <-time.After(grace):
		p.log.Warn().Int("pid", pid).Msg("grace period elapsed, killing")
		if err := kill(pid); err != nil {
			p.log.Warn().Err(err).Int("pid", pid).Msg("kill")
		}
		<-p.done
	}
	p.publisher.Publish(events.Event{Name: "process_stop", Subject: p.spec.Name, Fields: map[string]any{"pid": pid}})
	return nil
}

// Status returns a snapshot for reporting.
func (p *Process) Status() types.ProcessStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := types.ProcessStatus{Name: p.spec.Name, State: p.state}
	if p.state == StateStarting || p.state == StateReady {
		st.PID = p.pid
	}
	if p.exitErr != nil && !p.stopped {
		st.Error = p.exitErr.Error()
	}
	return st
}

func (p *Process) markReady() {
	p.mu.Lock()
	if p.state == StateStarting {
		p.state = StateReady
	}
	p.mu.Unlock()
}

func (p *Process) exitedBeforeReady() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &ExitError{Name: p.spec.Name, BeforeReady: true, Err: p.exitErr, StderrTail: p.tail.String()}
}

// mergeEnv appends extra to base in key order; later entries win in exec.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := append([]string(nil), base...)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}

var errEmptyURL = errors.New("empty health url")
