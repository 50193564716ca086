package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/mongo-provision/internal/logger"
)

const (
	// engineExecutable is the process name that signals a conflicting instance.
	engineExecutable = "mongod"

	// MarkerFilename marks that a provisioning run is in progress to avoid
	// parallel execution.
	MarkerFilename = "mongo-provision-marker.bin"

	// markerLifetime is the period after which a stale marker is reclaimed.
	// Provisioning downloads several hundred megabytes, so it is generous.
	markerLifetime = 30 * time.Minute
)

var (
	// ErrEngineRunning is returned when a database process is already running.
	ErrEngineRunning = errors.New("a mongod process is already running, stop it before provisioning")
	// ErrAlreadyProvisioning is returned when another provisioning run holds the marker.
	ErrAlreadyProvisioning = errors.New("another provisioning run is already in progress")
)

// Lister abstracts the process-table scan so the guard is testable.
type Lister interface {
	Processes() ([]ps.Process, error)
}

// SystemLister scans the real process table via go-ps.
type SystemLister struct{}

// Processes returns the current process table.
func (SystemLister) Processes() ([]ps.Process, error) {
	return ps.Processes() //nolint:wrapcheck // Thin adapter over go-ps.
}

// EnsureNoRunningEngine fails when a database process is found in the
// process table. Nothing has been changed at this point, so the failure
// path has no cleanup.
func EnsureNoRunningEngine(ctx context.Context, lister Lister) error {
	processes, err := lister.Processes()
	if err != nil {
		return fmt.Errorf("scan process table: %w", err)
	}

	for _, process := range processes {
		if process.Executable() != engineExecutable {
			continue
		}

		logger.WarnKV(ctx, "Conflicting engine process found", "pid", process.Pid())

		return ErrEngineRunning
	}

	return nil
}

// AcquireMarker writes the in-progress marker, reclaiming a stale one.
func AcquireMarker(ctx context.Context) error {
	fileInfo, err := os.Stat(MarkerFilename)

	switch {
	case err == nil:
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return ErrAlreadyProvisioning
		}

		logger.Info(ctx, "Provisioning marker is stale, reclaiming it")

		if err = os.Remove(MarkerFilename); err != nil {
			return fmt.Errorf("remove stale marker: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// Nothing in progress.
	default:
		return fmt.Errorf("read provisioning marker: %w", err)
	}

	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return fmt.Errorf("create provisioning marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		return fmt.Errorf("close provisioning marker: %w", err)
	}

	return nil
}

// ReleaseMarker removes the in-progress marker if present.
func ReleaseMarker(ctx context.Context) {
	if err := os.Remove(MarkerFilename); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Unable to remove provisioning marker", "error", err)
	}
}
