package fetch

import (
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/mongo-provision/internal/config"
	"github.com/oshokin/mongo-provision/internal/domain/install"
	"github.com/oshokin/mongo-provision/internal/logger"

	// Ensure SHA256 is available for download verification.
	_ "crypto/sha256"
)

const (
	// checksumSuffix is the companion file published next to every artifact.
	checksumSuffix = ".sha256"

	// checksumFunction verifies downloads before extraction.
	checksumFunction crypto.Hash = crypto.SHA256

	// archiveFileMode is used for staged archive files.
	archiveFileMode os.FileMode = 0o644

	// stagingPattern names the transactional staging directory.
	stagingPattern = "mongo-provision-staging-"
)

var (
	// errBadHTTPStatus is returned on any non-200 download response.
	errBadHTTPStatus = errors.New("unexpected http status")
	// errEmptyChecksum is returned when the companion checksum file is unusable.
	errEmptyChecksum = errors.New("empty checksum file")
)

// Artifact is one downloadable component of the installation.
type Artifact struct {
	// Name is the component label used in logs ("engine", "shell client", "tools").
	Name string
	// URL is the archive download location.
	URL string
	// InstallDir is the final extraction target.
	InstallDir string
}

// Artifacts returns the three components of a release in install order.
func Artifacts(cfg *config.Config, release install.Release) []Artifact {
	return []Artifact{
		{Name: "engine", URL: release.EngineURL(), InstallDir: cfg.EngineDir()},
		{Name: "shell client", URL: release.ShellURL(), InstallDir: cfg.ShellDir()},
		{Name: "tools", URL: release.ToolsURL(), InstallDir: cfg.ToolsDir()},
	}
}

// Install downloads, verifies and extracts every artifact of the release.
// All work happens in a staging directory that is removed on exit, so a
// failed step never leaves a half-installed tree in place. Downloads are
// sequential and abort the whole run on the first failure.
func Install(ctx context.Context, client *http.Client, cfg *config.Config, release install.Release) error {
	if client == nil {
		client = http.DefaultClient
	}

	stagingDir, err := os.MkdirTemp(cfg.BaseDir, stagingPattern)
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}

	defer func() {
		_ = os.RemoveAll(stagingDir)
	}()

	for _, artifact := range Artifacts(cfg, release) {
		if err = InstallArtifact(ctx, client, artifact, stagingDir); err != nil {
			return fmt.Errorf("install %s: %w", artifact.Name, err)
		}
	}

	return nil
}

// InstallArtifact fetches one artifact into the staging directory, verifies
// its published checksum, extracts it and atomically moves it into place.
func InstallArtifact(ctx context.Context, client *http.Client, artifact Artifact, stagingDir string) error {
	logger.InfoKV(ctx, "Downloading artifact", "component", artifact.Name, "url", artifact.URL)

	checksum, err := fetchChecksum(ctx, client, artifact.URL+checksumSuffix)
	if err != nil {
		return fmt.Errorf("fetch checksum: %w", err)
	}

	archivePath := filepath.Join(stagingDir, path.Base(artifact.URL))

	if err = downloadVerified(ctx, client, artifact.URL, archivePath, checksum); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Extracting artifact", "component", artifact.Name, "archive", archivePath)

	extractDir := archivePath + ".extracted"
	if err = extractTarGz(archivePath, extractDir); err != nil {
		return fmt.Errorf("extract archive: %w", err)
	}

	// Atomic hand-over: the final directory either holds the previous
	// install or the fully extracted new one, never a mix.
	if err = os.RemoveAll(artifact.InstallDir); err != nil {
		return fmt.Errorf("remove previous install: %w", err)
	}

	if err = os.Rename(extractDir, artifact.InstallDir); err != nil {
		return fmt.Errorf("move artifact into place: %w", err)
	}

	logger.InfoKV(ctx, "Artifact installed", "component", artifact.Name, "path", artifact.InstallDir)

	return nil
}

// downloadVerified streams the archive through a checksum-verified atomic
// file apply into the staging area.
func downloadVerified(ctx context.Context, client *http.Client, url, targetPath string, checksum []byte) error {
	response, err := get(ctx, client, url)
	if err != nil {
		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	options := goupdate.Options{
		TargetPath: targetPath,
		TargetMode: archiveFileMode,
		Checksum:   checksum,
		Hash:       checksumFunction,
	}

	if err = goupdate.Apply(response.Body, options); err != nil {
		return fmt.Errorf("verify and stage download: %w", err)
	}

	return nil
}

// fetchChecksum downloads and parses a published "<hex>  <filename>" checksum file.
func fetchChecksum(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	response, err := get(ctx, client, url)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read checksum body: %w", err)
	}

	return parseChecksum(data)
}

// parseChecksum extracts the hex digest from a checksum file body.
func parseChecksum(data []byte) ([]byte, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil, errEmptyChecksum
	}

	digest, err := hex.DecodeString(fields[0])
	if err != nil {
		return nil, fmt.Errorf("decode checksum: %w", err)
	}

	if len(digest) != checksumFunction.Size() {
		return nil, fmt.Errorf("%w: digest length %d", errEmptyChecksum, len(digest))
	}

	return digest, nil
}

// get issues a context-bound GET and validates the status code.
func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	response, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}

	if response.StatusCode != http.StatusOK {
		_ = response.Body.Close()
		return nil, fmt.Errorf("%s, %s: %w", url, response.Status, errBadHTTPStatus)
	}

	return response, nil
}
