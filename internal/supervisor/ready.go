package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ReadyOptions bounds a readiness probe.
type ReadyOptions struct {
	Timeout  time.Duration // overall deadline; default 60s
	Interval time.Duration // delay between probes; default 500ms
	// Client performs the probes; a per-probe timeout of one second is
	// applied through the request context.
	Client *http.Client
}

func (o ReadyOptions) withDefaults() ReadyOptions {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if o.Client == nil {
		o.Client = &http.Client{}
	}
	return o
}

// WaitReady polls the process's HealthURL until it answers 2xx. It fails
// fast with an *ExitError when the child exits first. Without a HealthURL
// the process counts as ready once started.
func (p *Process) WaitReady(ctx context.Context, opts ReadyOptions) error {
	p.mu.Lock()
	started := p.cmd != nil
	p.mu.Unlock()
	if !started {
		return ErrNotStarted
	}
	if p.spec.HealthURL == "" {
		p.markReady()
		return nil
	}
	opts = opts.withDefaults()
	err := poll(ctx, p.spec.Name, p.spec.HealthURL, opts, httpCheck(opts.Client, p.spec.HealthURL), p.done)
	if err == errExited {
		p.log.Error().Str("stderr_tail", p.tail.String()).Msg("process exited before ready")
		p.publisher.Publish(eventf("process_exit_early", p.spec.Name, nil))
		return p.exitedBeforeReady()
	}
	if err != nil {
		p.log.Error().Err(err).Str("url", p.spec.HealthURL).Msg("readiness probe failed")
		p.publisher.Publish(eventf("process_not_ready", p.spec.Name, map[string]any{"url": p.spec.HealthURL}))
		return err
	}
	p.markReady()
	p.log.Info().Str("url", p.spec.HealthURL).Msg("process ready")
	p.publisher.Publish(eventf("process_ready", p.spec.Name, map[string]any{"url": p.spec.HealthURL}))
	return nil
}

// WaitHTTP polls url until it answers 2xx, for services this process did
// not start.
func WaitHTTP(ctx context.Context, name, url string, opts ReadyOptions) error {
	if url == "" {
		return errEmptyURL
	}
	opts = opts.withDefaults()
	return poll(ctx, name, url, opts, httpCheck(opts.Client, url), nil)
}

// WaitFor polls check until it returns nil, for services reached through a
// client of their own. target names what is probed in errors.
func WaitFor(ctx context.Context, name, target string, check func(context.Context) error, opts ReadyOptions) error {
	return poll(ctx, name, target, opts.withDefaults(), check, nil)
}

var errExited = errors.New("process exited")

// poll runs check every opts.Interval, each attempt bounded to one second.
func poll(ctx context.Context, name, target string, opts ReadyOptions, check func(context.Context) error, exited <-chan struct{}) error {
	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()

	var last error
	for {
		select {
		case <-exited:
			return errExited
		default:
		}
		pctx, cancel := context.WithTimeout(ctx, time.Second)
		last = check(pctx)
		cancel()
		if last == nil {
			return nil
		}
		select {
		case <-exited:
			return errExited
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &NotReadyError{Name: name, URL: target, Timeout: opts.Timeout.String(), Last: last}
		case <-time.After(opts.Interval):
		}
	}
}

func httpCheck(client *http.Client, url string) func(context.Context) error {
	return func(ctx context.Context) error { return probe(ctx, client, url) }
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}
