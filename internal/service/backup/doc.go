// Package backup archives an existing data directory into a timestamped
// tar.gz before the reset step wipes it. Archive failure is fatal and
// happens strictly before any deletion.
package backup
