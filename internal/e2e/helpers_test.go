package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"modelops/internal/config"
	"modelops/internal/events"
	"modelops/internal/httpapi"
	"modelops/internal/pipeline"
	"modelops/internal/testutil/fakeregistry"
)

type env struct {
	fr        *fakeregistry.Server
	api       *httptest.Server
	exportDir string
	pub       *events.MemoryPublisher
}

// newEnv serves the admin API for an orchestrator that has not started its
// children, backed by an in-process registry.
func newEnv(t *testing.T, mutate func(*config.Config)) *env {
	t.Helper()
	fr := fakeregistry.New()
	t.Cleanup(fr.Close)

	cfg := config.Config{
		ExportDir: filepath.Join(t.TempDir(), "deployment", "model"),
		Registry:  config.RegistryConfig{URI: fr.URL},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	pub := events.NewMemoryPublisher()
	client := pipeline.NewRegistryClient(cfg, zerolog.Nop())
	orch := pipeline.New(cfg, client, pipeline.NewPromoter(cfg, client, zerolog.Nop(), pub), zerolog.Nop(), pub)
	api := httptest.NewServer(httpapi.NewMux(orch))
	t.Cleanup(api.Close)
	return &env{fr: fr, api: api, exportDir: cfg.ExportDir, pub: pub}
}

func (e *env) post(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Post(e.api.URL+path, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	decode(t, resp.Body, out)
	return resp.StatusCode
}

func (e *env) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(e.api.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	decode(t, resp.Body, out)
	return resp.StatusCode
}

func decode(t *testing.T, r io.Reader, out any) {
	t.Helper()
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return
	}
	if err := json.NewDecoder(r).Decode(out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}
