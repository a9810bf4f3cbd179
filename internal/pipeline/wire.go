package pipeline

import (
	"github.com/rs/zerolog"

	"modelops/internal/artifacts"
	"modelops/internal/config"
	"modelops/internal/events"
	"modelops/internal/exporter"
	"modelops/internal/promote"
	"modelops/internal/registry"
	"modelops/pkg/types"
)

// NewRegistryClient returns a registry client for cfg.Registry.
func NewRegistryClient(cfg config.Config, log zerolog.Logger) *registry.Client {
	return registry.New(cfg.Registry.URI,
		registry.WithRequestTimeout(cfg.Registry.RequestTimeout()),
		registry.WithLogger(log.With().Str("component", "registry").Logger()),
	)
}

// NewPromoter wires registry client, artifact store and exporter from cfg.
func NewPromoter(cfg config.Config, client *registry.Client, log zerolog.Logger, publisher events.Publisher) *promote.Promoter {
	store := artifacts.New(cfg.ArtifactStore, client, cfg.Registry.WorkDir, log.With().Str("component", "artifacts").Logger())
	exp := exporter.New(store, exporter.Options{Atomic: cfg.Atomic()}, log.With().Str("component", "exporter").Logger(), publisher)
	stage, _ := types.ParseStage(cfg.Stage)
	return promote.New(client, exp, promote.Target{
		ModelName:    cfg.ModelName,
		Stage:        stage,
		ArtifactPath: cfg.ArtifactPath,
		ExportDir:    cfg.ExportDir,
	}, log.With().Str("component", "promote").Logger(), publisher)
}
