package promote

import (
	"context"
	"errors"

	"modelops/internal/artifacts"
	"modelops/internal/exporter"
	"modelops/internal/registry"
)

// Failure classes used as metric labels and for HTTP status mapping.
const (
	ClassNoStagedVersion = "no_staged_version"
	ClassRetrieval       = "artifact_retrieval"
	ClassIO              = "export_io"
	ClassRegistry        = "registry"
	ClassCanceled        = "canceled"
	ClassOther           = "other"
)

// Classify maps a promotion error to its failure class.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case registry.IsNoStagedVersion(err):
		return ClassNoStagedVersion
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	case artifacts.IsRetrievalError(err):
		return ClassRetrieval
	case exporter.IsIOError(err):
		return ClassIO
	}
	var ae *registry.APIError
	if errors.As(err, &ae) {
		return ClassRegistry
	}
	return ClassOther
}
