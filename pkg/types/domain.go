package types

// ModelVersion is a registered version of a named model.
type ModelVersion struct {
	// Registered model name.
	// example: TitanicClassifier
	Name string `json:"name" example:"TitanicClassifier"`
	// Version identifier as reported by the registry.
	// example: 3
	Version string `json:"version" example:"3"`
	// Stage currently held by this version.
	// example: Staging
	CurrentStage string `json:"current_stage,omitempty" example:"Staging"`
	// Run that produced the artifacts of this version.
	// example: 8f1c2e0b9d2a4f0c
	RunID string `json:"run_id" example:"8f1c2e0b9d2a4f0c"`
	// Source URI the version was registered from.
	Source string `json:"source,omitempty"`
	// Registration status (e.g., READY).
	Status string `json:"status,omitempty"`
	// Creation time in unix milliseconds.
	CreationTimestamp int64 `json:"creation_timestamp,omitempty"`
}

// RunInfo is the subset of tracking-run metadata used to locate artifacts.
type RunInfo struct {
	RunID        string `json:"run_id"`
	ExperimentID string `json:"experiment_id,omitempty"`
	Status       string `json:"status,omitempty"`
	ArtifactURI  string `json:"artifact_uri,omitempty"`
}

// ArtifactFile is one entry of a run's artifact listing.
type ArtifactFile struct {
	Path     string `json:"path"`
	IsDir    bool   `json:"is_dir,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}
