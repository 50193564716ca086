package process

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestStartStop runs a real process against a pre-listening socket and walks
// the full state machine.
func TestStartStop(t *testing.T) {
	t.Parallel()

	// The readiness probe dials this listener, standing in for the engine port.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	defer func() {
		_ = listener.Close()
	}()

	managed := NewManaged("sleep", []string{"60"}, listener.Addr().String(),
		WithReadyTimeout(5*time.Second),
		WithStopTimeout(5*time.Second))
	require.Equal(t, StateStopped, managed.State())

	ctx := context.Background()

	require.NoError(t, managed.Start(ctx))
	require.Equal(t, StateRunning, managed.State())

	// Starting twice from running is an invalid transition.
	require.ErrorIs(t, managed.Start(ctx), ErrInvalidTransition)

	require.NoError(t, managed.Stop(ctx))
	require.Equal(t, StateStopped, managed.State())

	// Stopping a stopped process is an invalid transition.
	require.ErrorIs(t, managed.Stop(ctx), ErrInvalidTransition)
}

// TestStartMissingBinary returns to stopped when exec fails.
func TestStartMissingBinary(t *testing.T) {
	t.Parallel()

	managed := NewManaged("definitely-not-a-binary", nil, "127.0.0.1:1",
		WithReadyTimeout(time.Second))

	require.Error(t, managed.Start(context.Background()))
	require.Equal(t, StateStopped, managed.State())
}

// TestStartEngineExit surfaces an early engine death during the readiness wait.
func TestStartEngineExit(t *testing.T) {
	t.Parallel()

	// Nothing listens on the probe address and `true` exits immediately.
	managed := NewManaged("true", nil, "127.0.0.1:1",
		WithReadyTimeout(10*time.Second))

	err := managed.Start(context.Background())
	require.ErrorIs(t, err, errEngineExited)
	require.Equal(t, StateStopped, managed.State())
}

// fakeRunner records PM2 invocations.
type fakeRunner struct {
	calls [][]string
	err   error
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil, r.err
}

// TestSupervisorRegister issues pm2 start followed by pm2 save.
func TestSupervisorRegister(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	supervisor := NewSupervisor(runner)

	require.NoError(t, supervisor.Register(context.Background(), "/home/user/mongodb/mydb.pm2.json"))
	require.Equal(t, [][]string{
		{"pm2", "start", "/home/user/mongodb/mydb.pm2.json"},
		{"pm2", "save"},
	}, runner.calls)
}

// TestSupervisorRegisterFailure wraps the runner error.
func TestSupervisorRegisterFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{err: context.DeadlineExceeded}
	supervisor := NewSupervisor(runner)

	require.Error(t, supervisor.Register(context.Background(), "x.pm2.json"))
}
