package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/oshokin/mongo-provision/internal/config"
	"github.com/oshokin/mongo-provision/internal/logger"
)

// engineConfigTemplate is the full engine configuration. Every run renders
// and overwrites the file completely; there is no merge with prior content.
const engineConfigTemplate = `systemLog:
  destination: file
  path: {{ .LogPath }}
  logAppend: true
storage:
  dbPath: {{ .DataPath }}
  wiredTiger:
    engineConfig:
      journalCompressor: snappy
    collectionConfig:
      blockCompressor: zlib
processManagement:
  fork: false
  pidFilePath: {{ .PidPath }}
net:
  bindIp: {{ .BindAddress }}
  port: {{ .Port }}
  unixDomainSocket:
    enabled: false
`

// engineConfigData carries the few substituted values of the template.
type engineConfigData struct {
	LogPath     string
	DataPath    string
	PidPath     string
	BindAddress string
	Port        int
}

// Descriptor is the PM2 process file consumed by `pm2 start`.
type Descriptor struct {
	Apps []DescriptorApp `json:"apps"`
}

// DescriptorApp describes how PM2 supervises the engine.
type DescriptorApp struct {
	// Name is the operator-chosen application name.
	Name string `json:"name"`
	// Script is the supervised binary, the engine's mongod.
	Script string `json:"script"`
	// Args passes the rendered configuration file.
	Args []string `json:"args"`
	// Cwd is the installation root.
	Cwd string `json:"cwd"`
	// Interpreter none keeps PM2 from wrapping the binary in node.
	Interpreter string `json:"interpreter"`
	// MaxMemoryRestart is one of the five enumerated limits.
	MaxMemoryRestart string `json:"max_memory_restart"`
	// Autorestart keeps the engine alive across crashes.
	Autorestart bool `json:"autorestart"`
}

// EngineConfig renders mongod.conf from the fixed template.
func EngineConfig(ctx context.Context, cfg *config.Config) error {
	tmpl, err := template.New("mongod.conf").Parse(engineConfigTemplate)
	if err != nil {
		return fmt.Errorf("parse engine config template: %w", err)
	}

	data := engineConfigData{
		LogPath:     filepath.Join(cfg.LogDir(), "mongod.log"),
		DataPath:    cfg.DataDir(),
		PidPath:     filepath.Join(cfg.RunDir(), "mongod.pid"),
		BindAddress: cfg.BindAddress,
		Port:        cfg.Port,
	}

	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render engine config: %w", err)
	}

	path := cfg.EngineConfigPath()
	if err = os.WriteFile(path, buf.Bytes(), config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write engine config: %w", err)
	}

	logger.InfoKV(ctx, "Engine configuration written", "path", path)

	return nil
}

// ProcessDescriptor renders the PM2 descriptor named after the application.
func ProcessDescriptor(ctx context.Context, cfg *config.Config) error {
	descriptor := Descriptor{
		Apps: []DescriptorApp{
			{
				Name:             cfg.AppName,
				Script:           cfg.EngineBinary(),
				Args:             []string{"--config", cfg.EngineConfigPath()},
				Cwd:              cfg.BaseDir,
				Interpreter:      "none",
				MaxMemoryRestart: cfg.MemoryLimit,
				Autorestart:      true,
			},
		},
	}

	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return fmt.Errorf("encode process descriptor: %w", err)
	}

	path := cfg.DescriptorPath()
	if err = os.WriteFile(path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write process descriptor: %w", err)
	}

	logger.InfoKV(ctx, "Process descriptor written", "path", path)

	return nil
}
