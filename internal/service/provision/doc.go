// Package provision sequences the full workflow: preflight guard,
// backup/reset, release selection, artifact fetch, configuration and
// descriptor rendering, user provisioning against a directly started
// engine, supervisor hand-over and receipt persistence.
package provision
