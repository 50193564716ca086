package process

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/oshokin/mongo-provision/internal/logger"
)

// State is the supervision state of the managed engine process.
type State string

// The engine moves strictly stopped -> starting -> running -> stopping -> stopped.
const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

const (
	// readyPollInterval is how often the listen socket is probed during start.
	readyPollInterval = 500 * time.Millisecond

	// defaultReadyTimeout bounds the wait for the engine to accept connections.
	defaultReadyTimeout = 60 * time.Second

	// defaultStopTimeout bounds the graceful shutdown wait before SIGKILL.
	defaultStopTimeout = 30 * time.Second
)

var (
	// ErrInvalidTransition is returned for operations not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid process state transition")
	// errNotReady is returned when the engine never accepted connections.
	errNotReady = errors.New("engine did not become ready")
	// errEngineExited is returned when the engine dies before accepting connections.
	errEngineExited = errors.New("engine exited during startup")
)

// Managed supervises one engine process through an explicit state machine.
// The provisioning steps (user creation) and the steady-state hand-over to
// PM2 operate on the same instance, so there is exactly one process
// identity throughout a run.
type Managed struct {
	mu    sync.Mutex
	state State

	// binary and args form the exec invocation.
	binary string
	args   []string
	// address is the host:port probed for readiness.
	address string

	cmd *exec.Cmd
	// done receives the process exit result once.
	done chan error

	readyTimeout time.Duration
	stopTimeout  time.Duration
}

// Option configures a managed process.
type Option func(*Managed)

// WithReadyTimeout overrides the readiness wait bound.
func WithReadyTimeout(timeout time.Duration) Option {
	return func(m *Managed) {
		if timeout > 0 {
			m.readyTimeout = timeout
		}
	}
}

// WithStopTimeout overrides the graceful shutdown bound.
func WithStopTimeout(timeout time.Duration) Option {
	return func(m *Managed) {
		if timeout > 0 {
			m.stopTimeout = timeout
		}
	}
}

// NewManaged creates a stopped managed process for the given invocation.
func NewManaged(binary string, args []string, address string, opts ...Option) *Managed {
	m := &Managed{
		state:        StateStopped,
		binary:       binary,
		args:         args,
		address:      address,
		readyTimeout: defaultReadyTimeout,
		stopTimeout:  defaultStopTimeout,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// State returns the current supervision state.
func (m *Managed) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Start launches the engine and waits until it accepts connections.
func (m *Managed) Start(ctx context.Context) error {
	if err := m.transition(StateStopped, StateStarting); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Starting engine", "binary", m.binary, "address", m.address)

	//nolint:gosec // The binary path is built from the validated configuration.
	cmd := exec.Command(m.binary, m.args...)
	if err := cmd.Start(); err != nil {
		m.setState(StateStopped)

		return fmt.Errorf("start engine: %w", err)
	}

	m.mu.Lock()
	m.cmd = cmd
	m.done = make(chan error, 1)
	done := m.done
	m.mu.Unlock()

	go func() {
		done <- cmd.Wait()
	}()

	if err := m.awaitReady(ctx, done); err != nil {
		// On exit the wait goroutine has already been drained.
		if !errors.Is(err, errEngineExited) {
			_ = cmd.Process.Kill()
			<-done
		}

		m.setState(StateStopped)

		return err
	}

	m.setState(StateRunning)

	logger.InfoKV(ctx, "Engine is ready", "address", m.address, "pid", cmd.Process.Pid)

	return nil
}

// Stop terminates the engine gracefully, escalating to SIGKILL on timeout.
func (m *Managed) Stop(ctx context.Context) error {
	if err := m.transition(StateRunning, StateStopping); err != nil {
		return err
	}

	m.mu.Lock()
	cmd, done := m.cmd, m.done
	m.mu.Unlock()

	logger.InfoKV(ctx, "Stopping engine", "pid", cmd.Process.Pid)

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone is fine.
		logger.WarnKV(ctx, "Signal engine failed", "error", err)
	}

	select {
	case <-done:
	case <-time.After(m.stopTimeout):
		logger.Warn(ctx, "Engine ignored SIGTERM, killing it")

		_ = cmd.Process.Kill()
		<-done
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
	}

	m.setState(StateStopped)

	logger.Info(ctx, "Engine stopped")

	return nil
}

// awaitReady polls the listen socket until it accepts, the process exits,
// or the timeout elapses.
func (m *Managed) awaitReady(ctx context.Context, done <-chan error) error {
	deadline := time.NewTimer(m.readyTimeout)
	defer deadline.Stop()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		conn, err := net.DialTimeout("tcp", m.address, readyPollInterval)
		if err == nil {
			_ = conn.Close()

			return nil
		}

		select {
		case exitErr := <-done:
			if exitErr != nil {
				return fmt.Errorf("%w: %s", errEngineExited, exitErr)
			}

			return errEngineExited
		case <-deadline.C:
			return fmt.Errorf("%w within %s", errNotReady, m.readyTimeout)
		case <-ctx.Done():
			return fmt.Errorf("await engine readiness: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// transition atomically moves the state machine or fails.
func (m *Managed) transition(from, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != from {
		return fmt.Errorf("%w: %s -> %s (current %s)", ErrInvalidTransition, from, to, m.state)
	}

	m.state = to

	return nil
}

func (m *Managed) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = s
}
