// Package process supervises the engine through an explicit state machine
// (stopped, starting, running, stopping) and registers it with the external
// PM2 process manager for steady-state operation. User provisioning and the
// supervisor hand-over operate on the same managed instance.
package process
