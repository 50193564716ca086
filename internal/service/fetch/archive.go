package fetch

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/mongo-provision/internal/config"
)

var (
	// errUnsafePath is returned for archive entries escaping the target directory.
	errUnsafePath = errors.New("archive entry escapes extraction directory")
	// errEmptyArchive is returned when a tarball has no entries.
	errEmptyArchive = errors.New("archive contains no entries")
)

// extractTarGz unpacks a gzipped tarball into targetDir, stripping the
// release's single top-level directory so binaries land at a stable path
// (bin/mongod rather than mongodb-linux-.../bin/mongod).
func extractTarGz(archivePath, targetDir string) error {
	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}

	defer func() {
		_ = gzipReader.Close()
	}()

	if err = os.MkdirAll(targetDir, config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create extraction directory: %w", err)
	}

	var (
		tarReader = tar.NewReader(gzipReader)
		extracted int
	)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		name := stripTopLevel(header.Name)
		if name == "" {
			continue
		}

		targetPath, err := securePath(targetDir, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(targetPath, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("create directory %s: %w", name, err)
			}
		case tar.TypeReg:
			if err = writeFile(targetPath, tarReader, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("extract %s: %w", name, err)
			}
		case tar.TypeSymlink:
			if err = os.Symlink(header.Linkname, targetPath); err != nil {
				return fmt.Errorf("create symlink %s: %w", name, err)
			}
		default:
			// Hard links and special files do not appear in release tarballs.
			continue
		}

		extracted++
	}

	if extracted == 0 {
		return errEmptyArchive
	}

	return nil
}

// stripTopLevel removes the first path element of an archive entry.
func stripTopLevel(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")

	index := strings.IndexByte(name, '/')
	if index < 0 {
		return ""
	}

	return name[index+1:]
}

// securePath joins an entry name with the target directory and rejects escapes.
func securePath(targetDir, name string) (string, error) {
	targetPath := filepath.Join(targetDir, filepath.FromSlash(name))
	if !strings.HasPrefix(targetPath, filepath.Clean(targetDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", errUnsafePath, name)
	}

	return targetPath, nil
}

// writeFile copies one tar entry to disk, creating parent directories.
func writeFile(path string, contents io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), config.DefaultDirPermissions); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err = io.Copy(file, contents); err != nil { //nolint:gosec // Release tarballs are checksum-verified upstream.
		_ = file.Close()
		return fmt.Errorf("write file: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	return nil
}
