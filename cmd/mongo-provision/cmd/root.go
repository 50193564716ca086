package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/mongo-provision/internal/config"
	"github.com/oshokin/mongo-provision/internal/logger"
	"github.com/oshokin/mongo-provision/internal/service/provision"
	"github.com/oshokin/mongo-provision/internal/version"
)

var (
	// configPath to the settings YAML file.
	configPath string
	// baseDir overrides the installation root.
	baseDir string
	// engineKey and memoryKey bypass the interactive menus.
	engineKey string
	memoryKey string
	// appName bypasses the application name prompt.
	appName string
	// assumeYes accepts the backup and destroy prompts.
	assumeYes bool
	// skipUsers skips the user provisioning step.
	skipUsers bool
	// logLevel sets the minimum log level.
	logLevel string

	// rootCmd represents the base command provisioning a MongoDB instance.
	rootCmd = &cobra.Command{
		Use:   "mongo-provision",
		Short: "Provision a single-node MongoDB instance on a shared hosting account.",
		Long: `Provisions a single-node MongoDB instance without root access.

The workflow detects a conflicting running instance, optionally archives an
existing database, downloads and verifies the chosen MongoDB release with
its shell client and tools, renders the engine configuration and a PM2
process descriptor, provisions database users over the loopback address and
hands the engine to PM2 for steady-state supervision.

All choices can be answered interactively or provided via flags.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &provision.Options{
				ConfigPath: configPath,
				BaseDir:    baseDir,
				EngineKey:  engineKey,
				MemoryKey:  memoryKey,
				AppName:    appName,
				AssumeYes:  assumeYes,
				SkipUsers:  skipUsers,
			}

			return provision.Run(ctx, options)
		},
	}
)

// Execute runs the mongo-provision CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to settings file")
	rootCmd.Flags().StringVarP(&baseDir, "base-dir", "b", "", "installation root (default $HOME/mongodb)")
	rootCmd.Flags().StringVarP(&engineKey, "engine", "e", "", "engine version menu key (skips the version menu)")
	rootCmd.Flags().StringVarP(&memoryKey, "memory", "m", "", "memory limit menu key (skips the memory menu)")
	rootCmd.Flags().StringVarP(&appName, "app-name", "a", "", "process manager application name")
	rootCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "accept the backup and destroy prompts")
	rootCmd.Flags().BoolVar(&skipUsers, "skip-users", false, "skip database user provisioning")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
}
