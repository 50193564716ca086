package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing base directory.
	err := Validate(new(Config))
	require.Error(t, err)

	// Bad bind address.
	cfg := &Config{
		BaseDir:     "/home/user/mongodb",
		BindAddress: "not-an-ip",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Bad application name.
	cfg = &Config{
		BaseDir: "/home/user/mongodb",
		AppName: "my db!",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Okay, defaults filled in.
	cfg = &Config{
		BaseDir:     "/home/user/mongodb",
		BindAddress: "127.0.0.1",
		AppName:     "mydb",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultUserDatabase, cfg.UserDatabase)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		BaseDir:       filepath.Join(dir, "mongodb"),
		BindAddress:   "127.0.0.1",
		EngineVersion: "7.0.5",
		MemoryLimit:   "1G",
		AppName:       "mydb",
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.BaseDir, loaded.BaseDir)
	require.Equal(t, cfg.EngineVersion, loaded.EngineVersion)
	require.Equal(t, cfg.MemoryLimit, loaded.MemoryLimit)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestDerivedPaths verifies the install layout derived from the base directory.
func TestDerivedPaths(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		BaseDir:     "/home/user/mongodb",
		BindAddress: "127.0.0.1",
		AppName:     "mydb",
		Port:        DefaultPort,
	}

	require.Equal(t, "/home/user/mongodb/db", cfg.DataDir())
	require.Equal(t, "/home/user/mongodb/mongodb-binary/bin/mongod", cfg.EngineBinary())
	require.Equal(t, "/home/user/mongodb/mydb.pm2.json", cfg.DescriptorPath())
	require.Equal(t, "127.0.0.1:5679", cfg.Address())
}
