package process

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/oshokin/mongo-provision/internal/logger"
)

// pm2Binary is the external process manager the descriptor is handed to.
const pm2Binary = "pm2"

// CommandRunner abstracts external command execution so PM2 integration is testable.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands via os/exec.
type ExecRunner struct{}

// Run executes the command and returns its combined output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	//nolint:gosec // Command names are fixed constants, arguments come from validated config.
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Supervisor registers the engine with the external process manager for
// steady-state operation.
type Supervisor struct {
	runner CommandRunner
}

// NewSupervisor creates a PM2 supervisor using the provided runner,
// defaulting to real command execution.
func NewSupervisor(runner CommandRunner) *Supervisor {
	if runner == nil {
		runner = ExecRunner{}
	}

	return &Supervisor{runner: runner}
}

// Register hands the rendered descriptor to PM2 and persists the process list
// so the engine survives host restarts.
func (s *Supervisor) Register(ctx context.Context, descriptorPath string) error {
	output, err := s.runner.Run(ctx, pm2Binary, "start", descriptorPath)
	if err != nil {
		return fmt.Errorf("register with pm2: %w (output: %s)", err, output)
	}

	logger.InfoKV(ctx, "Engine registered with process manager", "descriptor", descriptorPath)

	if output, err = s.runner.Run(ctx, pm2Binary, "save"); err != nil {
		return fmt.Errorf("persist pm2 process list: %w (output: %s)", err, output)
	}

	return nil
}
