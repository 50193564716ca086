package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oshokin/mongo-provision/internal/logger"
)

const (
	// adminDatabase hosts the administrator account and the createUser commands.
	adminDatabase = "admin"

	// adminRole grants full administrative access.
	adminRole = "root"

	// limitedRole grants read/write scoped to one database.
	limitedRole = "readWrite"

	// defaultTimeout bounds connection establishment and each command.
	defaultTimeout = 15 * time.Second
)

var (
	// errAddressRequired is returned when no engine address is provided.
	errAddressRequired = errors.New("engine address must be provided")
	// errAdminRequired is returned when administrator credentials are missing.
	errAdminRequired = errors.New("administrator username must be provided")
	// errDatabaseRequired is returned when a limited user has no target database.
	errDatabaseRequired = errors.New("database for the limited user must be provided")
)

// Credentials is one username/password pair entered by the operator.
// It is passed to the engine's createUser command and never persisted.
type Credentials struct {
	Username string
	Password string
}

// Options are inputs for the provisioning entry point.
type Options struct {
	// Address is the loopback host:port of the running engine.
	Address string
	// Admin receives the root role on the admin database.
	Admin Credentials
	// Limited optionally receives readWrite on Database.
	Limited *Credentials
	// Database is the target of the limited user's role.
	Database string
	// Timeout bounds connection and command execution.
	Timeout time.Duration
}

// Validate checks the provided options for required fields.
func (o *Options) Validate() error {
	if o.Address == "" {
		return errAddressRequired
	}

	if o.Admin.Username == "" {
		return errAdminRequired
	}

	if o.Limited != nil && o.Database == "" {
		return errDatabaseRequired
	}

	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}

	return nil
}

// URI builds the direct loopback connection string.
func (o *Options) URI() string {
	return fmt.Sprintf("mongodb://%s", o.Address)
}

// Provision connects to the freshly started engine over loopback and creates
// the administrator plus the optional limited user. Command errors are
// checked and fatal; the engine's error reporting is surfaced to the caller.
func Provision(ctx context.Context, opts *Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	clientOpts := mongoopts.Client().
		ApplyURI(opts.URI()).
		SetDirect(true).
		SetConnectTimeout(opts.Timeout).
		SetServerSelectionTimeout(opts.Timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("connect to engine: %w", err)
	}

	defer func() {
		_ = client.Disconnect(ctx)
	}()

	if err = client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping engine: %w", err)
	}

	if err = createUser(ctx, client, opts.Admin, adminRole, adminDatabase); err != nil {
		return fmt.Errorf("create administrator: %w", err)
	}

	logger.InfoKV(ctx, "Administrator created", "username", opts.Admin.Username)

	if opts.Limited == nil {
		return nil
	}

	if err = createUser(ctx, client, *opts.Limited, limitedRole, opts.Database); err != nil {
		return fmt.Errorf("create limited user: %w", err)
	}

	logger.InfoKV(ctx, "Limited user created",
		"username", opts.Limited.Username, "database", opts.Database)

	return nil
}

// createUser issues the engine's createUser command with a single role.
func createUser(ctx context.Context, client *mongo.Client, creds Credentials, role, database string) error {
	command := bson.D{
		{Key: "createUser", Value: creds.Username},
		{Key: "pwd", Value: creds.Password},
		{Key: "roles", Value: bson.A{
			bson.D{
				{Key: "role", Value: role},
				{Key: "db", Value: database},
			},
		}},
	}

	// createUser always runs against the admin database.
	if err := client.Database(adminDatabase).RunCommand(ctx, command).Err(); err != nil {
		return fmt.Errorf("run createUser: %w", err)
	}

	return nil
}
