//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
)

// Actor identifies the host and system user running the provisioner,
// recorded in logs and the run summary.
type Actor struct {
	// Hostname is the machine the provisioner runs on.
	Hostname string
	// Username is the system user performing the install.
	Username string
}

// DetectActor gathers host and user information for the run summary.
func DetectActor() (*Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
