// Package profile maintains the shell profile PATH exports through one
// idempotent ensure-line-present operation instead of blind appends.
package profile
