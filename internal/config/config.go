package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds provisioning parameters threaded through every step.
// It replaces the shell-global state (exported variables, PATH mutations)
// of ad-hoc install scripts with one explicit struct.
type Config struct {
	// BaseDir is the installation root, usually $HOME/mongodb.
	BaseDir string `yaml:"base_dir"`
	// BindAddress is the loopback address the engine binds and is reached on.
	BindAddress string `yaml:"bind_address"`
	// Port is the engine listen port. It is fixed across installs.
	Port int `yaml:"port"`
	// EngineVersion is the selected MongoDB release, e.g. "7.0.5".
	EngineVersion string `yaml:"engine_version"`
	// MemoryLimit is the PM2 restart threshold, e.g. "1G".
	MemoryLimit string `yaml:"memory_limit"`
	// AppName is the operator-chosen PM2 application name.
	AppName string `yaml:"app_name"`
	// UserDatabase is the database the optional limited user gets
	// readWrite on.
	UserDatabase string `yaml:"user_database"`
	// ProfilePath is the shell profile receiving PATH exports.
	ProfilePath string `yaml:"profile_path"`
	// Timeout bounds network and engine readiness operations.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the default filename for provisioning settings.
	DefaultConfigFilename = "mongo-provision-settings.yaml"

	// DefaultPort is the fixed engine listen port for every install.
	DefaultPort = 5679

	// DefaultUserDatabase is the database the limited-privilege user is scoped to.
	DefaultUserDatabase = "mydb"

	// DefaultTimeout is the default duration for network and readiness operations.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions is the default file permission for generated files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the default permission for created directories.
	DefaultDirPermissions = 0o755

	// baseDirName is the directory created under the operator's home.
	baseDirName = "mongodb"

	// profileName is the shell profile mutated with PATH exports.
	profileName = ".bashrc"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBaseDirRequired is returned when the installation root is missing.
	errBaseDirRequired = errors.New("base directory must be provided")
	// errInvalidBindAddress is returned when the bind address is not an IP.
	errInvalidBindAddress = errors.New("bind address must be a valid IP address")
	// errInvalidAppName is returned when the application name has unsafe characters.
	errInvalidAppName = errors.New("application name may contain only letters, digits, '-' and '_'")

	// appNamePattern restricts names used in generated filenames.
	appNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Default returns a configuration populated with home-relative defaults.
func Default() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	return &Config{
		BaseDir:      filepath.Join(home, baseDirName),
		Port:         DefaultPort,
		UserDatabase: DefaultUserDatabase,
		ProfilePath:  filepath.Join(home, profileName),
		Timeout:      DefaultTimeout,
	}, nil
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may reference credentials locations.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided configuration for required fields and formatting.
// Unset optional fields are filled with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.BaseDir == "" {
		return errBaseDirRequired
	}

	if cfg.BindAddress != "" && net.ParseIP(cfg.BindAddress) == nil {
		return fmt.Errorf("%w: %q", errInvalidBindAddress, cfg.BindAddress)
	}

	if cfg.AppName != "" && !appNamePattern.MatchString(cfg.AppName) {
		return fmt.Errorf("%w: %q", errInvalidAppName, cfg.AppName)
	}

	if cfg.Port <= 0 {
		cfg.Port = DefaultPort
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.UserDatabase == "" {
		cfg.UserDatabase = DefaultUserDatabase
	}

	return nil
}

// DataDir is where the engine stores database files.
func (c *Config) DataDir() string {
	return filepath.Join(c.BaseDir, "db")
}

// LogDir is where the engine writes its log file.
func (c *Config) LogDir() string {
	return filepath.Join(c.BaseDir, "log")
}

// RunDir holds the engine pid file.
func (c *Config) RunDir() string {
	return filepath.Join(c.BaseDir, "run")
}

// EngineDir is the extracted engine installation directory.
func (c *Config) EngineDir() string {
	return filepath.Join(c.BaseDir, "mongodb-binary")
}

// ShellDir is the extracted shell client installation directory.
func (c *Config) ShellDir() string {
	return filepath.Join(c.BaseDir, "mongosh-binary")
}

// ToolsDir is the extracted database tools installation directory.
func (c *Config) ToolsDir() string {
	return filepath.Join(c.BaseDir, "mongodb-tools")
}

// EngineBinary is the path to the mongod executable.
func (c *Config) EngineBinary() string {
	return filepath.Join(c.EngineDir(), "bin", "mongod")
}

// EngineConfigPath is the generated engine configuration file.
func (c *Config) EngineConfigPath() string {
	return filepath.Join(c.BaseDir, "mongod.conf")
}

// DescriptorPath is the generated PM2 descriptor, named after the application.
func (c *Config) DescriptorPath() string {
	return filepath.Join(c.BaseDir, c.AppName+".pm2.json")
}

// ReceiptPath is the JSON install receipt recording what was provisioned.
func (c *Config) ReceiptPath() string {
	return filepath.Join(c.BaseDir, "install-receipt.json")
}

// Address returns the host:port the engine is reached on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.BindAddress, fmt.Sprint(c.Port))
}
