package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "model_name: m1\nstage: Production\nexport_dir: /tmp/out\natomic_export: false\nregistry:\n  port: 5555\n  spawn: false\ntraining:\n  command: [\"make\", \"train\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelName != "m1" || cfg.Stage != "Production" || cfg.ExportDir != "/tmp/out" || cfg.Registry.Port != 5555 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.AtomicExport == nil || *cfg.AtomicExport {
		t.Fatalf("atomic_export: want explicit false, got %v", cfg.AtomicExport)
	}
	if cfg.Registry.SpawnRegistry() {
		t.Fatalf("spawn should be false")
	}
	if len(cfg.Training.Command) != 2 || cfg.Training.Command[1] != "train" {
		t.Fatalf("training command: %v", cfg.Training.Command)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"model_name":"m2","stage":"Staging","artifact_path":"model","registry":{"uri":"http://reg:5000"}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelName != "m2" || cfg.ArtifactPath != "model" || cfg.Registry.URI != "http://reg:5000" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "model_name=\"m3\"\nstage=\"Archived\"\n[serving]\nport=8081\n[admin]\naddr=\"127.0.0.1:9090\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelName != "m3" || cfg.Stage != "Archived" || cfg.Serving.Port != 8081 || cfg.Admin.Addr != "127.0.0.1:9090" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestLoadOrDefault_EmptyPathUsesDefaults(t *testing.T) {
	t.Setenv("MLFLOW_TRACKING_URI", "")
	t.Setenv("MODELOPS_EXPORT_DIR", "")
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ModelName != DefaultModelName || cfg.Stage != DefaultStage || cfg.ExportDir != DefaultExportDir {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Registry.URI != "http://127.0.0.1:5000" {
		t.Fatalf("registry uri: %s", cfg.Registry.URI)
	}
}

func TestLoadOrDefault_InvalidStage(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "stage: Canary\n")
	_, err := LoadOrDefault(p)
	ve, ok := err.(ValidationError)
	if !ok || ve.Field != "stage" {
		t.Fatalf("expected stage validation error, got %v", err)
	}
}
