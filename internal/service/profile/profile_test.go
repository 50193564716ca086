package profile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mongo-provision/internal/config"
)

// TestEnsureLine adds a line once and leaves the file alone afterwards.
func TestEnsureLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".bashrc")

	added, err := EnsureLine(path, "export PATH=/opt/bin:$PATH")
	require.NoError(t, err)
	require.True(t, added)

	// Second write is a no-op.
	added, err = EnsureLine(path, "export PATH=/opt/bin:$PATH")
	require.NoError(t, err)
	require.False(t, added)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(contents), "export PATH=/opt/bin:$PATH"))
}

// TestEnsureLinePreservesExistingContent appends after prior lines,
// fixing up a missing trailing newline.
func TestEnsureLinePreservesExistingContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".bashrc")
	require.NoError(t, os.WriteFile(path, []byte("alias ll='ls -la'"), 0o644))

	added, err := EnsureLine(path, "export PATH=/opt/bin:$PATH")
	require.NoError(t, err)
	require.True(t, added)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "alias ll='ls -la'\nexport PATH=/opt/bin:$PATH\n", string(contents))
}

// TestEnsurePathExportsIdempotent verifies reruns do not duplicate exports.
func TestEnsurePathExportsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := &config.Config{
		BaseDir:     filepath.Join(dir, "mongodb"),
		ProfilePath: filepath.Join(dir, ".bashrc"),
	}

	ctx := context.Background()

	require.NoError(t, EnsurePathExports(ctx, cfg))
	require.NoError(t, EnsurePathExports(ctx, cfg))

	contents, err := os.ReadFile(cfg.ProfilePath)
	require.NoError(t, err)

	text := string(contents)
	require.Equal(t, 1, strings.Count(text, cfg.EngineDir()))
	require.Equal(t, 1, strings.Count(text, cfg.ShellDir()))
	require.Equal(t, 1, strings.Count(text, cfg.ToolsDir()))
}
