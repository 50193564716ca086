// Package config defines the provisioning configuration threaded through
// every workflow step, with YAML persistence and validation.
package config
