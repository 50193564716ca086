package provision

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oshokin/mongo-provision/internal/config"
	"github.com/oshokin/mongo-provision/internal/domain/install"
	"github.com/oshokin/mongo-provision/internal/logger"
	"github.com/oshokin/mongo-provision/internal/prompt"
	"github.com/oshokin/mongo-provision/internal/repository/receipt"
	"github.com/oshokin/mongo-provision/internal/service/backup"
	"github.com/oshokin/mongo-provision/internal/service/common"
	"github.com/oshokin/mongo-provision/internal/service/fetch"
	"github.com/oshokin/mongo-provision/internal/service/preflight"
	"github.com/oshokin/mongo-provision/internal/service/process"
	"github.com/oshokin/mongo-provision/internal/service/profile"
	"github.com/oshokin/mongo-provision/internal/service/render"
	"github.com/oshokin/mongo-provision/internal/service/users"
)

// ErrAborted is returned when the operator declines the destroy confirmation.
var ErrAborted = errors.New("provisioning aborted by operator")

// Options are inputs accepted by the provisioning entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// BaseDir overrides the installation root.
	BaseDir string
	// EngineKey and MemoryKey bypass the interactive menus when set.
	EngineKey string
	MemoryKey string
	// AppName bypasses the application name prompt when set.
	AppName string
	// AssumeYes accepts the backup and destroy prompts.
	AssumeYes bool
	// SkipUsers skips the user provisioning step entirely.
	SkipUsers bool

	// Prompter drives the operator dialogue; defaults to stdio.
	Prompter *prompt.Prompter
	// Lister scans the process table; defaults to the real one.
	Lister preflight.Lister
	// HTTPClient downloads artifacts; defaults to http.DefaultClient.
	HTTPClient *http.Client
	// Runner executes the process manager CLI; defaults to os/exec.
	Runner process.CommandRunner
}

// runner holds the state of a single provisioning execution.
// It is intentionally unexported, call Run(ctx, Options) from callers.
type runner struct {
	cfg      *config.Config
	opts     *Options
	prompter *prompt.Prompter
	plan     install.Plan
	receipts receipt.Repository
}

// Run executes the provisioning workflow and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "mongo-provision")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer preflight.ReleaseMarker(ctx)

	if err = r.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Provisioning failed", "error", err)
		return err
	}

	logger.Info(ctx, "Provisioning completed")

	return nil
}

// newRunner guards the run and resolves the base configuration.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	lister := opts.Lister
	if lister == nil {
		lister = preflight.SystemLister{}
	}

	// The conflict check runs before any side effect, including the marker.
	if err := preflight.EnsureNoRunningEngine(ctx, lister); err != nil {
		return nil, err
	}

	if err := preflight.AcquireMarker(ctx); err != nil {
		return nil, err
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}

	prompter := opts.Prompter
	if prompter == nil {
		prompter = prompt.NewStdio()
	}

	return &runner{
		cfg:      cfg,
		opts:     opts,
		prompter: prompter,
		receipts: receipt.NewFileRepository(cfg.ReceiptPath()),
	}, nil
}

// resolveConfig builds the run configuration from defaults, overrides and
// the detected loopback address.
func resolveConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Default()
	if err != nil {
		return nil, err
	}

	if opts.BaseDir != "" {
		cfg.BaseDir = opts.BaseDir
	}

	loopback, err := common.DetectLoopback()
	if err != nil {
		return nil, err
	}

	cfg.BindAddress = loopback

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// run sequences the workflow:
// 1) Report any prior installation.
// 2) Resolve the operator's selections.
// 3) Back up and reset the data directory.
// 4) Fetch, verify and install the three artifacts.
// 5) Maintain the shell profile PATH exports.
// 6) Render the engine configuration and the process descriptor.
// 7) Provision users against a directly started engine.
// 8) Hand the engine over to the process manager.
// 9) Persist settings and the install receipt.
func (r *runner) run(ctx context.Context) error {
	r.reportExistingInstall(ctx)

	if err := r.resolvePlan(); err != nil {
		return err
	}

	if err := r.backupAndReset(ctx); err != nil {
		return err
	}

	if err := fetch.Install(ctx, r.opts.HTTPClient, r.cfg, r.plan.Release); err != nil {
		return err
	}

	if err := profile.EnsurePathExports(ctx, r.cfg); err != nil {
		return err
	}

	if err := render.EngineConfig(ctx, r.cfg); err != nil {
		return err
	}

	if err := render.ProcessDescriptor(ctx, r.cfg); err != nil {
		return err
	}

	if !r.opts.SkipUsers {
		if err := r.provisionUsers(ctx); err != nil {
			return err
		}
	}

	supervisor := process.NewSupervisor(r.opts.Runner)
	if err := supervisor.Register(ctx, r.cfg.DescriptorPath()); err != nil {
		return err
	}

	if err := r.persist(ctx); err != nil {
		return err
	}

	r.printNextSteps(ctx)

	return nil
}

// reportExistingInstall logs the prior receipt when one exists.
func (r *runner) reportExistingInstall(ctx context.Context) {
	existing, err := r.receipts.Load(ctx)
	if err != nil {
		if !errors.Is(err, receipt.ErrNotFound) {
			logger.WarnKV(ctx, "Unable to read install receipt", "error", err)
		}

		return
	}

	logger.InfoKV(ctx, "Previous installation found",
		"engine_version", existing.EngineVersion,
		"app_name", existing.AppName,
		"installed_at", existing.InstalledAt.Format(time.RFC3339))
}

// resolvePlan turns flags or menu selections into a concrete plan.
func (r *runner) resolvePlan() error {
	engineKey := r.opts.EngineKey
	if engineKey == "" {
		options := make([]prompt.Option, 0, len(install.ReleaseKeys()))
		for _, key := range install.ReleaseKeys() {
			release, _ := install.ReleaseByKey(key)
			options = append(options, prompt.Option{Key: key, Label: "MongoDB " + release.Version})
		}

		selected, err := r.prompter.Select("Select the MongoDB version to install", options)
		if err != nil {
			return err
		}

		engineKey = selected
	}

	release, err := install.ReleaseByKey(engineKey)
	if err != nil {
		return err
	}

	memoryKey := r.opts.MemoryKey
	if memoryKey == "" {
		options := make([]prompt.Option, 0, len(install.MemoryLimitKeys()))
		for _, key := range install.MemoryLimitKeys() {
			limit, _ := install.MemoryLimitByKey(key)
			options = append(options, prompt.Option{Key: key, Label: limit})
		}

		selected, err := r.prompter.Select("Select the memory limit for the engine", options)
		if err != nil {
			return err
		}

		memoryKey = selected
	}

	memoryLimit, err := install.MemoryLimitByKey(memoryKey)
	if err != nil {
		return err
	}

	appName := r.opts.AppName
	if appName == "" {
		answer, err := r.prompter.Line("Application name for the process manager")
		if err != nil {
			return err
		}

		appName = answer
	}

	r.plan = install.Plan{
		Release:     release,
		MemoryLimit: memoryLimit,
		AppName:     appName,
	}

	r.cfg.EngineVersion = release.Version
	r.cfg.MemoryLimit = memoryLimit
	r.cfg.AppName = appName

	return config.Validate(r.cfg)
}

// backupAndReset archives existing data when accepted and wipes the data
// directory. Declining both the backup and the destroy confirmation aborts
// the run with nothing deleted.
func (r *runner) backupAndReset(ctx context.Context) error {
	hasData, err := backup.HasData(r.cfg.DataDir())
	if err != nil {
		return err
	}

	if hasData {
		wantBackup := r.opts.AssumeYes
		if !wantBackup {
			wantBackup, err = r.prompter.YesNo("Existing database found. Create a backup archive first?")
			if err != nil {
				return err
			}
		}

		if wantBackup {
			archivePath, archiveErr := backup.Archive(ctx, r.cfg.DataDir(), r.cfg.BaseDir)
			if archiveErr != nil {
				// Fatal before any deletion, the data stays untouched.
				return fmt.Errorf("backup failed, nothing was deleted: %w", archiveErr)
			}

			logger.InfoKV(ctx, "Backup archive created", "path", archivePath)
		} else if !r.opts.AssumeYes {
			confirmed, confirmErr := r.prompter.YesNo("Delete the existing database WITHOUT a backup?")
			if confirmErr != nil {
				return confirmErr
			}

			if !confirmed {
				return ErrAborted
			}
		}
	}

	return backup.Reset(ctx, r.cfg)
}

// provisionUsers starts the engine directly, creates the accounts over
// loopback and stops the same managed instance before the supervisor takes over.
func (r *runner) provisionUsers(ctx context.Context) error {
	admin, limited, err := r.promptCredentials()
	if err != nil {
		return err
	}

	managed := process.NewManaged(
		r.cfg.EngineBinary(),
		[]string{"--config", r.cfg.EngineConfigPath()},
		r.cfg.Address(),
	)

	if err = managed.Start(ctx); err != nil {
		return err
	}

	provisionErr := users.Provision(ctx, &users.Options{
		Address:  r.cfg.Address(),
		Admin:    admin,
		Limited:  limited,
		Database: r.cfg.UserDatabase,
		Timeout:  r.cfg.Timeout,
	})

	// The engine is stopped either way so the supervisor can claim the port.
	if stopErr := managed.Stop(ctx); stopErr != nil && provisionErr == nil {
		provisionErr = stopErr
	}

	return provisionErr
}

// promptCredentials asks for the administrator and the optional limited user.
func (r *runner) promptCredentials() (users.Credentials, *users.Credentials, error) {
	var admin users.Credentials

	username, err := r.prompter.Line("Administrator username")
	if err != nil {
		return admin, nil, err
	}

	password, err := r.prompter.Password("Administrator password")
	if err != nil {
		return admin, nil, err
	}

	admin = users.Credentials{Username: username, Password: password}

	wantLimited, err := r.prompter.YesNo(
		fmt.Sprintf("Create an additional read/write user for database %q?", r.cfg.UserDatabase))
	if err != nil {
		return admin, nil, err
	}

	if !wantLimited {
		return admin, nil, nil
	}

	limitedUsername, err := r.prompter.Line("Read/write username")
	if err != nil {
		return admin, nil, err
	}

	limitedPassword, err := r.prompter.Password("Read/write password")
	if err != nil {
		return admin, nil, err
	}

	return admin, &users.Credentials{Username: limitedUsername, Password: limitedPassword}, nil
}

// persist saves the settings file and the install receipt.
func (r *runner) persist(ctx context.Context) error {
	if err := config.Save(r.opts.ConfigPath, r.cfg); err != nil {
		return err
	}

	return r.receipts.Save(ctx, &install.Receipt{
		EngineVersion: r.plan.Release.Version,
		AppName:       r.plan.AppName,
		BindAddress:   r.cfg.BindAddress,
		Port:          r.cfg.Port,
		MemoryLimit:   r.plan.MemoryLimit,
		InstalledAt:   time.Now().UTC(),
	})
}

// printNextSteps summarizes the result for the operator.
func (r *runner) printNextSteps(ctx context.Context) {
	actor, err := common.DetectActor()
	if err == nil {
		logger.InfoKV(ctx, "Provisioned by", "host", actor.Hostname, "user", actor.Username)
	}

	logger.Infof(ctx, "MongoDB %s is supervised as %q on %s",
		r.plan.Release.Version, r.plan.AppName, r.cfg.Address())
	logger.Infof(ctx, "Reload your shell or `source %s` to pick up the PATH exports", r.cfg.ProfilePath)
	logger.Infof(ctx, "Connect with: mongosh mongodb://%s", r.cfg.Address())
}
