// Package preflight guards a provisioning run: it refuses to start while a
// database process is running and prevents two concurrent runs via a
// marker file with stale recovery.
package preflight
