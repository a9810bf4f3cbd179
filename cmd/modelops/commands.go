package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"modelops/internal/events"
	"modelops/internal/httpapi"
	"modelops/internal/pipeline"
	"modelops/pkg/types"
)

const shutdownTimeout = 5 * time.Second

func (a *app) publisher() events.Publisher {
	return events.LogPublisher{Logger: a.log.With().Str("component", "events").Logger()}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// run executes the pipeline and, when configured, serves the admin API
// beside it until the pipeline ends or a signal arrives.
func (a *app) run(parent context.Context) error {
	ctx, stop := signalContext(parent)
	defer stop()

	pub := a.publisher()
	client := pipeline.NewRegistryClient(a.cfg, a.log)
	orch := pipeline.New(a.cfg, client, pipeline.NewPromoter(a.cfg, client, a.log, pub), a.log, pub)

	g, gctx := errgroup.WithContext(ctx)
	pipelineDone := make(chan struct{})
	g.Go(func() error {
		defer close(pipelineDone)
		return orch.Run(gctx)
	})

	if addr := a.cfg.Admin.Addr; addr != "" {
		httpapi.SetLogger(a.log.With().Str("component", "httpapi").Logger())
		httpapi.SetBaseContext(gctx)
		httpapi.SetCORSOptions(a.cfg.Admin.CORSEnabled, a.cfg.Admin.CORSOrigins, nil, nil)
		httpapi.SetSwaggerEnabled(a.cfg.Admin.Swagger)
		srv := &http.Server{Addr: addr, Handler: httpapi.NewMux(orch), ReadHeaderTimeout: 10 * time.Second}

		g.Go(func() error {
			a.log.Info().Str("addr", addr).Msg("admin API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			// Keep the admin API up until the pipeline has stopped its children.
			select {
			case <-pipelineDone:
			case <-gctx.Done():
				<-pipelineDone
			}
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				a.log.Warn().Err(err).Msg("graceful shutdown error")
			}
			return nil
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// interrupted by a signal before serving started
		err = nil
	}
	if err != nil {
		a.log.Error().Err(err).Msg("modelops stopped")
		return err
	}
	a.log.Info().Msg("modelops stopped")
	return nil
}

// export runs one promotion and prints the exported file listing.
func (a *app) export(parent context.Context, out io.Writer) error {
	ctx, stop := signalContext(parent)
	defer stop()

	client := pipeline.NewRegistryClient(a.cfg, a.log)
	p := pipeline.NewPromoter(a.cfg, client, a.log, a.publisher())
	res, err := p.Promote(ctx)
	if err != nil {
		return err
	}
	printExport(out, res)
	return nil
}

func printExport(out io.Writer, res types.ExportResult) {
	fmt.Fprintf(out, "Using version %s run %s\n", res.Version, res.RunID)
	fmt.Fprintf(out, "Exported files at %s: %v\n", res.ExportDir, res.Files)
}

// resolve prints the version holding the configured stage.
func (a *app) resolve(parent context.Context, out io.Writer) error {
	ctx, stop := signalContext(parent)
	defer stop()

	stage, _ := types.ParseStage(a.cfg.Stage)
	mv, err := pipeline.NewRegistryClient(a.cfg, a.log).ResolveStagedVersion(ctx, a.cfg.ModelName, stage)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s version %s (%s) run %s\n", mv.Name, mv.Version, mv.CurrentStage, mv.RunID)
	return nil
}
