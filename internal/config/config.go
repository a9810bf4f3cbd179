package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"modelops/internal/common/fsutil"
	"modelops/pkg/types"
)

// Defaults applied when the corresponding Config fields are unset.
const (
	DefaultModelName       = "TitanicClassifier"
	DefaultStage           = "Staging"
	DefaultArtifactPath    = "spark-model"
	DefaultExportDir       = "deployment/model"
	DefaultRegistryHost    = "0.0.0.0"
	DefaultRegistryPort    = 5000
	DefaultBackendStoreURI = "sqlite:///mlflow.db"
	DefaultArtifactRoot    = "./artifacts"
	DefaultRegistryBin     = "mlflow"
	DefaultHealthPath      = "/health"
	DefaultServingPort     = 8000
	DefaultArtifactStore   = "auto"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "console"

	defaultReadyTimeoutSeconds   = 60
	defaultReadyIntervalMS       = 500
	defaultRequestTimeoutSeconds = 30
	defaultStopGraceSeconds      = 5
)

// Config holds runtime parameters for the pipeline.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	ModelName    string `json:"model_name" yaml:"model_name" toml:"model_name"`
	Stage        string `json:"stage" yaml:"stage" toml:"stage"`
	ArtifactPath string `json:"artifact_path" yaml:"artifact_path" toml:"artifact_path"`
	ExportDir    string `json:"export_dir" yaml:"export_dir" toml:"export_dir"`
	// AtomicExport swaps a fully staged copy into place. Pointer so that an
	// explicit false survives ApplyDefaults.
	AtomicExport *bool `json:"atomic_export" yaml:"atomic_export" toml:"atomic_export"`
	// ExportOnStart runs the promotion between training and serving.
	ExportOnStart *bool `json:"export_on_start" yaml:"export_on_start" toml:"export_on_start"`
	// ArtifactStore selects how bundles are retrieved: auto, http or local.
	ArtifactStore string `json:"artifact_store" yaml:"artifact_store" toml:"artifact_store"`

	Registry RegistryConfig `json:"registry" yaml:"registry" toml:"registry"`
	Training TrainingConfig `json:"training" yaml:"training" toml:"training"`
	Serving  ServingConfig  `json:"serving" yaml:"serving" toml:"serving"`
	Admin    AdminConfig    `json:"admin" yaml:"admin" toml:"admin"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`
}

// RegistryConfig describes the tracking/registry server.
type RegistryConfig struct {
	// URI clients use to reach the registry. Derived from Port when empty.
	URI string `json:"uri" yaml:"uri" toml:"uri"`
	// Spawn starts the server as a supervised child process.
	Spawn           *bool    `json:"spawn" yaml:"spawn" toml:"spawn"`
	Bin             string   `json:"bin" yaml:"bin" toml:"bin"`
	Host            string   `json:"host" yaml:"host" toml:"host"`
	Port            int      `json:"port" yaml:"port" toml:"port"`
	BackendStoreURI string   `json:"backend_store_uri" yaml:"backend_store_uri" toml:"backend_store_uri"`
	ArtifactRoot    string   `json:"default_artifact_root" yaml:"default_artifact_root" toml:"default_artifact_root"`
	ExtraArgs       []string `json:"extra_args" yaml:"extra_args" toml:"extra_args"`
	// WorkDir is the server's working directory; relative artifact URIs
	// resolve against it.
	WorkDir               string `json:"work_dir" yaml:"work_dir" toml:"work_dir"`
	HealthPath            string `json:"health_path" yaml:"health_path" toml:"health_path"`
	ReadyTimeoutSeconds   int    `json:"ready_timeout_seconds" yaml:"ready_timeout_seconds" toml:"ready_timeout_seconds"`
	ReadyIntervalMS       int    `json:"ready_interval_ms" yaml:"ready_interval_ms" toml:"ready_interval_ms"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
}

// TrainingConfig describes the one-shot training command.
type TrainingConfig struct {
	// Command is argv; empty skips training.
	Command []string          `json:"command" yaml:"command" toml:"command"`
	Dir     string            `json:"dir" yaml:"dir" toml:"dir"`
	Env     map[string]string `json:"env" yaml:"env" toml:"env"`
	Skip    bool              `json:"skip" yaml:"skip" toml:"skip"`
	// FailOnError aborts the pipeline when training exits non-zero. By
	// default the failure is logged and the pipeline moves on to exporting.
	FailOnError bool `json:"fail_on_error" yaml:"fail_on_error" toml:"fail_on_error"`
}

// ServingConfig describes the foreground prediction service.
type ServingConfig struct {
	Command []string          `json:"command" yaml:"command" toml:"command"`
	Dir     string            `json:"dir" yaml:"dir" toml:"dir"`
	Env     map[string]string `json:"env" yaml:"env" toml:"env"`
	Host    string            `json:"host" yaml:"host" toml:"host"`
	Port    int               `json:"port" yaml:"port" toml:"port"`
	// HealthPath, when set, is probed after start (e.g. /docs).
	HealthPath       string `json:"health_path" yaml:"health_path" toml:"health_path"`
	StopGraceSeconds int    `json:"stop_grace_seconds" yaml:"stop_grace_seconds" toml:"stop_grace_seconds"`
}

// AdminConfig configures the optional admin HTTP API.
type AdminConfig struct {
	// Addr is the listen address, e.g. 127.0.0.1:9090. Empty disables the API.
	Addr        string   `json:"addr" yaml:"addr" toml:"addr"`
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	Swagger     bool     `json:"swagger" yaml:"swagger" toml:"swagger"`
}

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

func boolPtr(b bool) *bool { return &b }

// ApplyDefaults fills unset fields with package defaults.
func (c *Config) ApplyDefaults() {
	if c.ModelName == "" {
		c.ModelName = DefaultModelName
	}
	if c.Stage == "" {
		c.Stage = DefaultStage
	}
	if st, ok := types.ParseStage(c.Stage); ok {
		c.Stage = string(st)
	}
	if c.ArtifactPath == "" {
		c.ArtifactPath = DefaultArtifactPath
	}
	if c.ExportDir == "" {
		c.ExportDir = DefaultExportDir
	}
	c.ExportDir = expandHome(c.ExportDir)
	if c.AtomicExport == nil {
		c.AtomicExport = boolPtr(true)
	}
	if c.ExportOnStart == nil {
		c.ExportOnStart = boolPtr(true)
	}
	if c.ArtifactStore == "" {
		c.ArtifactStore = DefaultArtifactStore
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}

	r := &c.Registry
	if r.Spawn == nil {
		r.Spawn = boolPtr(true)
	}
	if r.Bin == "" {
		r.Bin = DefaultRegistryBin
	}
	if r.Host == "" {
		r.Host = DefaultRegistryHost
	}
	if r.Port <= 0 {
		r.Port = DefaultRegistryPort
	}
	if r.BackendStoreURI == "" {
		r.BackendStoreURI = DefaultBackendStoreURI
	}
	if r.ArtifactRoot == "" {
		r.ArtifactRoot = DefaultArtifactRoot
	}
	if r.HealthPath == "" {
		r.HealthPath = DefaultHealthPath
	}
	r.WorkDir = expandHome(r.WorkDir)
	if r.URI == "" {
		r.URI = fmt.Sprintf("http://127.0.0.1:%d", r.Port)
	}
	r.URI = strings.TrimRight(r.URI, "/")
	if r.ReadyTimeoutSeconds <= 0 {
		r.ReadyTimeoutSeconds = defaultReadyTimeoutSeconds
	}
	if r.ReadyIntervalMS <= 0 {
		r.ReadyIntervalMS = defaultReadyIntervalMS
	}
	if r.RequestTimeoutSeconds <= 0 {
		r.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}

	if c.Training.Command == nil && !c.Training.Skip {
		c.Training.Command = []string{"python", "-m", "training.training"}
	}
	c.Training.Dir = expandHome(c.Training.Dir)

	s := &c.Serving
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port <= 0 {
		s.Port = DefaultServingPort
	}
	if s.Command == nil {
		s.Command = []string{"uvicorn", "deployment.app:app", "--host", s.Host, "--port", strconv.Itoa(s.Port)}
	}
	if s.StopGraceSeconds <= 0 {
		s.StopGraceSeconds = defaultStopGraceSeconds
	}
}

// expandHome resolves a leading '~'; the path is kept as is when the home
// directory is unknown.
func expandHome(path string) string {
	if p, err := fsutil.ExpandHome(path); err == nil {
		return p
	}
	return path
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("MLFLOW_TRACKING_URI"); ok && strings.TrimSpace(v) != "" {
		c.Registry.URI = strings.TrimSpace(v)
	}
	if v, ok := lookup("MODELOPS_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("MODELOPS_EXPORT_DIR"); ok && v != "" {
		c.ExportDir = v
	}
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string { return "config: " + e.Field + ": " + e.Reason }

// Validate checks a defaulted Config.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ModelName) == "" {
		return ValidationError{Field: "model_name", Reason: "must not be empty"}
	}
	if _, ok := types.ParseStage(c.Stage); !ok {
		return ValidationError{Field: "stage", Reason: fmt.Sprintf("unknown stage %q", c.Stage)}
	}
	if strings.TrimSpace(c.ArtifactPath) == "" {
		return ValidationError{Field: "artifact_path", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.ExportDir) == "" {
		return ValidationError{Field: "export_dir", Reason: "must not be empty"}
	}
	switch c.ArtifactStore {
	case "auto", "http", "local":
	default:
		return ValidationError{Field: "artifact_store", Reason: fmt.Sprintf("unsupported store %q", c.ArtifactStore)}
	}
	u, err := url.Parse(c.Registry.URI)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{Field: "registry.uri", Reason: fmt.Sprintf("invalid http uri %q", c.Registry.URI)}
	}
	if c.Registry.Port > 65535 {
		return ValidationError{Field: "registry.port", Reason: "out of range"}
	}
	if c.Serving.Port > 65535 {
		return ValidationError{Field: "serving.port", Reason: "out of range"}
	}
	if len(c.Serving.Command) == 0 {
		return ValidationError{Field: "serving.command", Reason: "must not be empty"}
	}
	return nil
}

// Atomic reports whether exports swap a staged copy into place.
func (c Config) Atomic() bool { return c.AtomicExport == nil || *c.AtomicExport }

// ExportAtStart reports whether Run exports before serving.
func (c Config) ExportAtStart() bool { return c.ExportOnStart == nil || *c.ExportOnStart }

// SpawnRegistry reports whether the registry server is started as a child.
func (r RegistryConfig) SpawnRegistry() bool { return r.Spawn == nil || *r.Spawn }

// ServerArgs returns the argv (without the binary) for the registry server.
func (r RegistryConfig) ServerArgs() []string {
	args := []string{
		"server",
		"--backend-store-uri", r.BackendStoreURI,
		"--default-artifact-root", r.ArtifactRoot,
		"--host", r.Host,
		"--port", strconv.Itoa(r.Port),
	}
	return append(args, r.ExtraArgs...)
}

// HealthURL returns the registry health endpoint.
func (r RegistryConfig) HealthURL() string { return r.URI + r.HealthPath }

// ReadyTimeout returns the readiness probe deadline.
func (r RegistryConfig) ReadyTimeout() time.Duration {
	return time.Duration(r.ReadyTimeoutSeconds) * time.Second
}

// ReadyInterval returns the readiness probe poll interval.
func (r RegistryConfig) ReadyInterval() time.Duration {
	return time.Duration(r.ReadyIntervalMS) * time.Millisecond
}

// RequestTimeout returns the per-request registry timeout.
func (r RegistryConfig) RequestTimeout() time.Duration {
	return time.Duration(r.RequestTimeoutSeconds) * time.Second
}

// HealthURL returns the serving probe URL, or "" when no probe is configured.
func (s ServingConfig) HealthURL() string {
	if s.HealthPath == "" {
		return ""
	}
	host := s.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d%s", host, s.Port, s.HealthPath)
}

// StopGrace returns how long a stop waits before killing.
func (s ServingConfig) StopGrace() time.Duration {
	return time.Duration(s.StopGraceSeconds) * time.Second
}
