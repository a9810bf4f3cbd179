package types

// ExportResult describes a completed export.
type ExportResult struct {
	// Model that was exported.
	// example: TitanicClassifier
	ModelName string `json:"model_name" example:"TitanicClassifier"`
	// Stage the version was resolved from.
	// example: Staging
	Stage string `json:"stage" example:"Staging"`
	// Exported version identifier.
	// example: 3
	Version string `json:"version" example:"3"`
	// Run the artifacts were retrieved from.
	// example: 8f1c2e0b9d2a4f0c
	RunID string `json:"run_id" example:"8f1c2e0b9d2a4f0c"`
	// Artifact path within the run.
	// example: spark-model
	ArtifactPath string `json:"artifact_path" example:"spark-model"`
	// Export directory on the local filesystem.
	// example: deployment/model
	ExportDir string `json:"export_dir" example:"deployment/model"`
	// Entries now present directly under the export directory.
	// example: ["MLmodel","sparkml"]
	Files []string `json:"files"`
	// Completion time (unix seconds).
	// example: 1700000000
	FinishedUnix int64 `json:"finished_unix" example:"1700000000"`
	// Duration of the export in milliseconds.
	// example: 420
	DurationMS int64 `json:"duration_ms" example:"420"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: No versions in stage Staging
	Error string `json:"error" example:"No versions in stage Staging"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// ProcessStatus summarizes a supervised child process.
type ProcessStatus struct {
	// Logical name of the process.
	// example: registry
	Name string `json:"name" example:"registry"`
	// Lifecycle state (pending, starting, ready, exited, stopped).
	// example: ready
	State string `json:"state" example:"ready"`
	// Process ID while running.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Exit error, if the process ended abnormally.
	Error string `json:"error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Current orchestrator phase (registry, training, exporting, serving, stopped).
	// example: serving
	Phase string `json:"phase" example:"serving"`
	// Supervised child processes.
	Processes []ProcessStatus `json:"processes"`
	// Most recent successful export, if any.
	LastExport *ExportResult `json:"last_export,omitempty"`
	// Last error observed by the orchestrator or exporter.
	LastError string `json:"last_error,omitempty"`
	// Uptime in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total number of exports attempted since start.
	// example: 2
	ExportsTotal uint64 `json:"exports_total" example:"2"`
}
