// Package users provisions database accounts over the loopback address:
// an administrator with the root role and an optional limited user with
// readWrite on one database.
package users
