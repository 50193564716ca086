package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/mongo-provision/internal/config"
	"github.com/oshokin/mongo-provision/internal/logger"
)

const (
	// archivePrefix and archiveSuffix form the timestamped backup name.
	archivePrefix = "mongodb-backup-"
	archiveSuffix = ".tar.gz"

	// archiveTimeLayout names archives sortably, e.g. 20260825-141530.
	archiveTimeLayout = "20060102-150405"
)

// errNotDirectory is returned when the data path exists but is not a directory.
var errNotDirectory = errors.New("data path exists but is not a directory")

// HasData reports whether the data directory exists and contains anything.
func HasData(dataDir string) (bool, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("stat data directory: %w", err)
	}

	if !info.IsDir() {
		return false, fmt.Errorf("%w: %s", errNotDirectory, dataDir)
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return false, fmt.Errorf("read data directory: %w", err)
	}

	return len(entries) > 0, nil
}

// Archive produces a timestamped tar.gz of the entire data directory inside
// archiveDir and returns its path. A failed archive leaves no partial file
// behind; callers MUST treat the error as fatal and not delete anything.
func Archive(ctx context.Context, dataDir, archiveDir string) (string, error) {
	name := archivePrefix + time.Now().Format(archiveTimeLayout) + archiveSuffix
	archivePath := filepath.Join(archiveDir, name)

	logger.InfoKV(ctx, "Archiving data directory", "source", dataDir, "archive", archivePath)

	out, err := os.OpenFile(filepath.Clean(archivePath), os.O_CREATE|os.O_WRONLY|os.O_EXCL, config.DefaultFilePermissions)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	if err = writeArchive(out, dataDir); err != nil {
		_ = out.Close()
		_ = os.Remove(archivePath)

		return "", err
	}

	if err = out.Close(); err != nil {
		_ = os.Remove(archivePath)

		return "", fmt.Errorf("close archive: %w", err)
	}

	return archivePath, nil
}

// Reset removes the data directory contents and recreates the standard
// db/log/run layout under the base directory.
func Reset(ctx context.Context, cfg *config.Config) error {
	logger.InfoKV(ctx, "Resetting data directory", "path", cfg.DataDir())

	if err := os.RemoveAll(cfg.DataDir()); err != nil {
		return fmt.Errorf("remove data directory: %w", err)
	}

	return EnsureLayout(cfg)
}

// EnsureLayout creates the db/log/run directory tree.
func EnsureLayout(cfg *config.Config) error {
	for _, dir := range []string{cfg.DataDir(), cfg.LogDir(), cfg.RunDir()} {
		if err := os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}

// writeArchive streams dataDir into a gzipped tarball.
func writeArchive(out io.Writer, dataDir string) error {
	gzipWriter := gzip.NewWriter(out)
	tarWriter := tar.NewWriter(gzipWriter)

	root := filepath.Clean(dataDir)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if path == root {
			return nil
		}

		relative, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("tar header for %s: %w", path, err)
		}

		header.Name = filepath.ToSlash(relative)

		if err = tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("write tar header for %s: %w", path, err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}

		defer func() {
			_ = file.Close()
		}()

		if _, err = io.Copy(tarWriter, file); err != nil {
			return fmt.Errorf("archive %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("walk data directory: %w", err)
	}

	if err = tarWriter.Close(); err != nil {
		return fmt.Errorf("finalize tar stream: %w", err)
	}

	if err = gzipWriter.Close(); err != nil {
		return fmt.Errorf("finalize gzip stream: %w", err)
	}

	return nil
}
