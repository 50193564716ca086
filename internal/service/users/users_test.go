package users

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestOptionsValidate covers required fields and defaulting.
func TestOptionsValidate(t *testing.T) {
	t.Parallel()

	// Missing address.
	opts := &Options{Admin: Credentials{Username: "admin"}}
	require.ErrorIs(t, opts.Validate(), errAddressRequired)

	// Missing administrator.
	opts = &Options{Address: "127.0.0.1:5679"}
	require.ErrorIs(t, opts.Validate(), errAdminRequired)

	// Limited user without a database.
	opts = &Options{
		Address: "127.0.0.1:5679",
		Admin:   Credentials{Username: "admin"},
		Limited: &Credentials{Username: "app"},
	}
	require.ErrorIs(t, opts.Validate(), errDatabaseRequired)

	// Okay, timeout defaulted.
	opts = &Options{
		Address:  "127.0.0.1:5679",
		Admin:    Credentials{Username: "admin", Password: "secret"},
		Limited:  &Credentials{Username: "app", Password: "secret"},
		Database: "mydb",
	}
	require.NoError(t, opts.Validate())
	require.Equal(t, 15*time.Second, opts.Timeout)
}

// TestURI builds a direct loopback connection string.
func TestURI(t *testing.T) {
	t.Parallel()

	opts := &Options{Address: "127.0.0.1:5679"}
	require.Equal(t, "mongodb://127.0.0.1:5679", opts.URI())
}
