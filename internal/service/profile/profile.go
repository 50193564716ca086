package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/mongo-provision/internal/config"
	"github.com/oshokin/mongo-provision/internal/logger"
)

// profilePermissions matches the usual mode of shell profile files.
const profilePermissions = 0o644

// EnsurePathExports writes one PATH export per installed component into the
// shell profile. Lines are written through EnsureLine, so reruns never
// duplicate them.
func EnsurePathExports(ctx context.Context, cfg *config.Config) error {
	exports := []string{
		pathExport(cfg.EngineDir()),
		pathExport(cfg.ShellDir()),
		pathExport(cfg.ToolsDir()),
	}

	for _, line := range exports {
		added, err := EnsureLine(cfg.ProfilePath, line)
		if err != nil {
			return err
		}

		if added {
			logger.InfoKV(ctx, "Profile updated", "line", line)
		}
	}

	return nil
}

// EnsureLine appends a line to the file only when it is not already present.
// It reports whether the line was added.
func EnsureLine(path, line string) (bool, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("read profile: %w", err)
	}

	for _, existing := range strings.Split(string(contents), "\n") {
		if strings.TrimSpace(existing) == line {
			return false, nil
		}
	}

	var builder strings.Builder

	builder.Write(contents)

	if len(contents) > 0 && !strings.HasSuffix(string(contents), "\n") {
		builder.WriteByte('\n')
	}

	builder.WriteString(line)
	builder.WriteByte('\n')

	if err = os.WriteFile(filepath.Clean(path), []byte(builder.String()), profilePermissions); err != nil {
		return false, fmt.Errorf("write profile: %w", err)
	}

	return true, nil
}

// pathExport renders the export line for one component's bin directory.
func pathExport(componentDir string) string {
	return fmt.Sprintf("export PATH=%s:$PATH", filepath.Join(componentDir, "bin"))
}
