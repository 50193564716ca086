// Package fetch implements the artifact pipeline: sequential downloads of
// the engine, shell client and tools archives, checksum verification
// against the published .sha256 companions, extraction into a staging
// directory and an atomic move into the install location.
package fetch
