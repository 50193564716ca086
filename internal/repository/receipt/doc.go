// Package receipt persists a JSON record of what a provisioning run
// installed, so reruns can report the existing installation.
package receipt
