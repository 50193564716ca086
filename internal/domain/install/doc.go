// Package install holds the domain model of a provisioning run: the
// enumerated release and memory-limit catalogs, the resolved plan, and the
// install receipt persisted after a successful run.
package install
