package provision

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mongo-provision/internal/config"
	"github.com/oshokin/mongo-provision/internal/prompt"
	"github.com/oshokin/mongo-provision/internal/repository/receipt"
)

// testRunner builds a runner over a temp base directory with scripted input.
func testRunner(t *testing.T, opts *Options, input string) *runner {
	t.Helper()

	cfg := &config.Config{
		BaseDir:     t.TempDir(),
		BindAddress: "127.0.0.1",
		Port:        config.DefaultPort,
	}
	require.NoError(t, config.Validate(cfg))

	return &runner{
		cfg:      cfg,
		opts:     opts,
		prompter: prompt.New(strings.NewReader(input), &bytes.Buffer{}),
		receipts: receipt.NewFileRepository(cfg.ReceiptPath()),
	}
}

// TestResolvePlanFromMenus walks the interactive selection: version "1",
// memory "3", application name "mydb".
func TestResolvePlanFromMenus(t *testing.T) {
	t.Parallel()

	r := testRunner(t, &Options{}, "1\n3\nmydb\n")

	require.NoError(t, r.resolvePlan())
	require.Equal(t, "7.0.5", r.plan.Release.Version)
	require.Equal(t, "1G", r.plan.MemoryLimit)
	require.Equal(t, "mydb", r.plan.AppName)
	require.True(t, strings.HasSuffix(r.cfg.DescriptorPath(), "mydb.pm2.json"))
}

// TestResolvePlanInvalidSelection fails fatally on input outside the menu.
func TestResolvePlanInvalidSelection(t *testing.T) {
	t.Parallel()

	r := testRunner(t, &Options{}, "9\n")

	require.ErrorIs(t, r.resolvePlan(), prompt.ErrInvalidChoice)
}

// TestResolvePlanFromFlags bypasses every prompt.
func TestResolvePlanFromFlags(t *testing.T) {
	t.Parallel()

	r := testRunner(t, &Options{EngineKey: "2", MemoryKey: "5", AppName: "store"}, "")

	require.NoError(t, r.resolvePlan())
	require.Equal(t, "6.0.14", r.plan.Release.Version)
	require.Equal(t, "3G", r.plan.MemoryLimit)
	require.Equal(t, "store", r.plan.AppName)
}

// TestBackupAndResetDeclinedEverything aborts with the data untouched when
// the operator declines both the backup and the destroy confirmation.
func TestBackupAndResetDeclinedEverything(t *testing.T) {
	t.Parallel()

	r := testRunner(t, &Options{}, "n\nn\n")

	dataFile := filepath.Join(r.cfg.DataDir(), "collection-0.wt")
	require.NoError(t, os.MkdirAll(r.cfg.DataDir(), 0o755))
	require.NoError(t, os.WriteFile(dataFile, []byte("data"), 0o600))

	require.ErrorIs(t, r.backupAndReset(context.Background()), ErrAborted)

	// Nothing deleted.
	_, err := os.Stat(dataFile)
	require.NoError(t, err)
}

// TestBackupAndResetWithBackup archives first, then leaves an empty layout.
func TestBackupAndResetWithBackup(t *testing.T) {
	t.Parallel()

	r := testRunner(t, &Options{}, "y\n")

	require.NoError(t, os.MkdirAll(r.cfg.DataDir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(r.cfg.DataDir(), "WiredTiger"), []byte("header"), 0o600))

	require.NoError(t, r.backupAndReset(context.Background()))

	// Archive produced next to the install.
	entries, err := os.ReadDir(r.cfg.BaseDir)
	require.NoError(t, err)

	var archived bool

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "mongodb-backup-") {
			archived = true
		}
	}

	require.True(t, archived)

	// Data directory emptied afterwards.
	files, err := os.ReadDir(r.cfg.DataDir())
	require.NoError(t, err)
	require.Empty(t, files)
}

// TestBackupAndResetFreshInstall needs no prompts when no data exists.
func TestBackupAndResetFreshInstall(t *testing.T) {
	t.Parallel()

	r := testRunner(t, &Options{}, "")

	require.NoError(t, r.backupAndReset(context.Background()))

	for _, dir := range []string{r.cfg.DataDir(), r.cfg.LogDir(), r.cfg.RunDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
}
