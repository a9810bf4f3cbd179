// Package exporter installs a run's artifact bundle at a fixed export
// directory, the location a serving process loads the model from.
package exporter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"modelops/internal/artifacts"
	"modelops/internal/common/fsutil"
	"modelops/internal/events"
)

// Options tunes installation.
type Options struct {
	// Atomic stages the new bundle next to the export directory and swaps it
	// in, so readers see either the old or the new bundle. When false the old
	// export is removed before the copy starts.
	Atomic bool
}

// Exporter retrieves bundles from a Store and installs them.
type Exporter struct {
	store     artifacts.Store
	opts      Options
	log       zerolog.Logger
	publisher events.Publisher
}

// New returns an Exporter. publisher may be nil.
func New(store artifacts.Store, opts Options, log zerolog.Logger, publisher events.Publisher) *Exporter {
	return &Exporter{store: store, opts: opts, log: log, publisher: events.OrNoop(publisher)}
}

// Export retrieves (runID, artifactPath) and installs it so the bundle's
// manifest sits directly under exportDir. It returns the sorted entry names
// now present in exportDir.
//
// Retrieval failures are *artifacts.RetrievalError; filesystem failures are
// *IOError.
func (e *Exporter) Export(ctx context.Context, runID, artifactPath, exportDir string) ([]string, error) {
	start := time.Now()
	fields := map[string]any{"run_id": runID, "artifact_path": artifactPath, "export_dir": exportDir, "atomic": e.opts.Atomic}
	e.publisher.Publish(events.Event{Name: "export_start", Subject: exportDir, Fields: fields})

	names, err := e.export(ctx, runID, artifactPath, exportDir)
	if err != nil {
		e.log.Error().Err(err).Str("run_id", runID).Str("export_dir", exportDir).Msg("export failed")
		e.publisher.Publish(events.Event{Name: "export_failed", Subject: exportDir, Fields: map[string]any{"run_id": runID, "error": err.Error()}})
		return nil, err
	}
	e.log.Info().Str("run_id", runID).Str("export_dir", exportDir).Strs("files", names).Dur("dur", time.Since(start)).Msg("export installed")
	e.publisher.Publish(events.Event{Name: "export_installed", Subject: exportDir, Fields: map[string]any{"run_id": runID, "files": names}})
	return names, nil
}

func (e *Exporter) export(ctx context.Context, runID, artifactPath, exportDir string) ([]string, error) {
	if strings.TrimSpace(exportDir) == "" {
		return nil, ioErr("validate", exportDir, errors.New("export directory is empty"))
	}
	exportDir = filepath.Clean(exportDir)

	bundle, err := e.store.Download(ctx, runID, artifactPath)
	if err != nil {
		if !artifacts.IsRetrievalError(err) {
			err = &artifacts.RetrievalError{RunID: runID, Path: artifactPath, Err: err}
		}
		return nil, err
	}
	defer func() {
		if cerr := bundle.Cleanup(); cerr != nil {
			e.log.Warn().Err(cerr).Str("root", bundle.Root).Msg("remove artifact staging")
		}
	}()
	e.publisher.Publish(events.Event{Name: "export_retrieved", Subject: exportDir, Fields: map[string]any{"run_id": runID, "root": bundle.Root}})

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.opts.Atomic {
		err = installAtomic(bundle.Root, exportDir)
	} else {
		err = installInPlace(bundle.Root, exportDir)
	}
	if err != nil {
		return nil, err
	}
	names, err := fsutil.ListNames(exportDir)
	if err != nil {
		return nil, ioErr("list", exportDir, err)
	}
	return names, nil
}

// installInPlace removes exportDir and copies src into it. A reader running
// during the copy may see a missing or partial bundle.
func installInPlace(src, exportDir string) error {
	if fsutil.PathExists(exportDir) {
		if err := fsutil.RemoveTree(exportDir); err != nil {
			return ioErr("remove", exportDir, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(exportDir), 0o755); err != nil {
		return ioErr("mkdir", filepath.Dir(exportDir), err)
	}
	if err := fsutil.CopyTree(src, exportDir); err != nil {
		return ioErr("copy", exportDir, err)
	}
	if err := os.Chmod(exportDir, 0o755); err != nil {
		return ioErr("chmod", exportDir, err)
	}
	return nil
}

// installAtomic copies src into a sibling staging directory and swaps it
// into exportDir.
func installAtomic(src, exportDir string) error {
	parent := filepath.Dir(exportDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return ioErr("mkdir", parent, err)
	}
	staging, err := os.MkdirTemp(parent, "."+filepath.Base(exportDir)+".staging-*")
	if err != nil {
		return ioErr("mkdir", parent, err)
	}
	// staging holds the new bundle before the swap and the old one after it.
	defer func() { _ = fsutil.RemoveTree(staging) }()

	if err := fsutil.CopyTree(src, staging); err != nil {
		return ioErr("copy", staging, err)
	}
	// MkdirTemp creates 0700; match a regular directory.
	if err := os.Chmod(staging, 0o755); err != nil {
		return ioErr("chmod", staging, err)
	}
	if err := swapDir(staging, exportDir); err != nil {
		return ioErr("swap", exportDir, err)
	}
	return nil
}
