package registry

import (
	"errors"
	"fmt"
)

// noStagedVersionError signals that no version of a model holds a stage.
type noStagedVersionError struct {
	model string
	stage string
}

func (e noStagedVersionError) Error() string {
	return fmt.Sprintf("No versions in stage %s for model %q", e.stage, e.model)
}

// ErrNoStagedVersion constructs the error returned when a stage is empty.
func ErrNoStagedVersion(model, stage string) error {
	return noStagedVersionError{model: model, stage: stage}
}

// IsNoStagedVersion reports whether err indicates an empty stage.
func IsNoStagedVersion(err error) bool {
	var e noStagedVersionError
	return errors.As(err, &e)
}

// APIError is a non-2xx answer from the registry REST API.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("registry: %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("registry: %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a registry RESOURCE_DOES_NOT_EXIST answer.
func IsNotFound(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.ErrorCode == "RESOURCE_DOES_NOT_EXIST" || ae.StatusCode == 404
}
