package install

import (
	"errors"
	"fmt"
	"sort"
)

// Release describes one installable MongoDB version and its download artifacts.
type Release struct {
	// Version is the engine release number, e.g. "7.0.5".
	Version string
	// EngineArchive is the engine tarball name on the download host.
	EngineArchive string
	// ShellArchive is the shell client (mongosh) tarball name.
	ShellArchive string
	// ToolsArchive is the database tools tarball name.
	ToolsArchive string
}

// Download hosts are fixed; only the artifact name varies per release.
const (
	EngineDownloadBase = "https://fastdl.mongodb.org/linux"
	ShellDownloadBase  = "https://downloads.mongodb.com/compass"
	ToolsDownloadBase  = "https://fastdl.mongodb.org/tools/db"
)

// Shell client and tools releases are versioned independently from the engine.
const (
	shellVersion = "2.1.5"
	toolsVersion = "100.9.4"
)

var (
	// ErrUnknownRelease is returned for a menu key outside the release catalog.
	ErrUnknownRelease = errors.New("unknown release selection")
	// ErrUnknownMemoryLimit is returned for a menu key outside the memory catalog.
	ErrUnknownMemoryLimit = errors.New("unknown memory limit selection")
)

// Releases returns the enumerated engine menu: key -> release.
// The catalog is exhaustive; any other key is a fatal selection error.
func Releases() map[string]Release {
	return map[string]Release{
		"1": newRelease("7.0.5"),
		"2": newRelease("6.0.14"),
	}
}

// MemoryLimits returns the enumerated memory menu: key -> PM2 restart threshold.
func MemoryLimits() map[string]string {
	return map[string]string{
		"1": "256M",
		"2": "512M",
		"3": "1G",
		"4": "2G",
		"5": "3G",
	}
}

// ReleaseByKey resolves a menu key to a release.
func ReleaseByKey(key string) (Release, error) {
	release, ok := Releases()[key]
	if !ok {
		return Release{}, fmt.Errorf("%w: %q", ErrUnknownRelease, key)
	}

	return release, nil
}

// MemoryLimitByKey resolves a menu key to a memory limit literal.
func MemoryLimitByKey(key string) (string, error) {
	limit, ok := MemoryLimits()[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMemoryLimit, key)
	}

	return limit, nil
}

// ReleaseKeys returns the engine menu keys in display order.
func ReleaseKeys() []string {
	return sortedKeys(Releases())
}

// MemoryLimitKeys returns the memory menu keys in display order.
func MemoryLimitKeys() []string {
	return sortedKeys(MemoryLimits())
}

// EngineURL is the engine tarball download location.
func (r Release) EngineURL() string {
	return EngineDownloadBase + "/" + r.EngineArchive
}

// ShellURL is the shell client tarball download location.
func (r Release) ShellURL() string {
	return ShellDownloadBase + "/" + r.ShellArchive
}

// ToolsURL is the database tools tarball download location.
func (r Release) ToolsURL() string {
	return ToolsDownloadBase + "/" + r.ToolsArchive
}

func newRelease(version string) Release {
	return Release{
		Version:       version,
		EngineArchive: fmt.Sprintf("mongodb-linux-x86_64-ubuntu2204-%s.tgz", version),
		ShellArchive:  fmt.Sprintf("mongosh-%s-linux-x64.tgz", shellVersion),
		ToolsArchive:  fmt.Sprintf("mongodb-database-tools-ubuntu2204-x86_64-%s.tgz", toolsVersion),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
