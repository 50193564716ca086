package render

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/mongo-provision/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		BaseDir:     t.TempDir(),
		BindAddress: "127.0.0.1",
		Port:        config.DefaultPort,
		MemoryLimit: "1G",
		AppName:     "mydb",
	}
}

// TestEngineConfig renders valid YAML with the loopback bind address and fixed port.
func TestEngineConfig(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)

	require.NoError(t, EngineConfig(ctx, cfg))

	contents, err := os.ReadFile(cfg.EngineConfigPath())
	require.NoError(t, err)

	var parsed struct {
		Storage struct {
			DBPath string `yaml:"dbPath"`
		} `yaml:"storage"`
		Net struct {
			BindIP string `yaml:"bindIp"`
			Port   int    `yaml:"port"`
		} `yaml:"net"`
	}
	require.NoError(t, yaml.Unmarshal(contents, &parsed))

	require.Equal(t, cfg.BindAddress, parsed.Net.BindIP)
	require.Equal(t, 5679, parsed.Net.Port)
	require.Equal(t, cfg.DataDir(), parsed.Storage.DBPath)
}

// TestEngineConfigOverwrites regenerates the file in full on every run.
func TestEngineConfigOverwrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)

	require.NoError(t, os.WriteFile(cfg.EngineConfigPath(), []byte("stale: true\n"), 0o600))
	require.NoError(t, EngineConfig(ctx, cfg))

	contents, err := os.ReadFile(cfg.EngineConfigPath())
	require.NoError(t, err)
	require.NotContains(t, string(contents), "stale")
}

// TestProcessDescriptor covers the end-to-end naming and content scenario:
// app "mydb" with the "1G" limit produces mydb.pm2.json supervising mongod.
func TestProcessDescriptor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)

	require.NoError(t, ProcessDescriptor(ctx, cfg))

	path := cfg.DescriptorPath()
	require.Equal(t, "mydb.pm2.json", filepath.Base(path))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	var descriptor Descriptor
	require.NoError(t, json.Unmarshal(contents, &descriptor))
	require.Len(t, descriptor.Apps, 1)

	app := descriptor.Apps[0]
	require.Equal(t, "mydb", app.Name)
	require.Equal(t, "1G", app.MaxMemoryRestart)
	require.True(t, strings.HasSuffix(app.Script, "mongodb-binary/bin/mongod"))
	require.Equal(t, []string{"--config", cfg.EngineConfigPath()}, app.Args)
	require.True(t, app.Autorestart)
}
