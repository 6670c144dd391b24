package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// FileBackend stores each document as <dir>/<name>.
type FileBackend struct {
	dir          string
	enableBackup bool
}

// NewFileBackend returns a backend rooted at dir. The directory is created on first write.
// With enableBackup the previous version of a document is kept as <name>.bak.
func NewFileBackend(dir string, enableBackup bool) *FileBackend {
	return &FileBackend{dir: dir, enableBackup: enableBackup}
}

// Path returns the file path a document is stored at.
func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.dir, name)
}

func (b *FileBackend) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(b.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return data, nil
}

// Write replaces the document atomically: the data goes to a temporary file that is
// renamed over the target, so readers never observe a half-written document.
func (b *FileBackend) Write(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory '%s': %w", b.dir, err)
	}

	path := b.Path(name)
	tempPath := path + ".tmp"
	backupPath := path + ".bak"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary file '%s': %w", tempPath, err)
	}

	if b.enableBackup {
		if _, err := os.Stat(path); err == nil {
			if err := os.Rename(path, backupPath); err != nil {
				// Not fatal: the new version is still written below.
				log.Warn("failed to create backup", "path", path, "backup", backupPath, "error", err)
			} else {
				log.Debug("created backup file", "backup", backupPath)
			}
		} else if !os.IsNotExist(err) {
			log.Warn("failed to stat document before backup", "path", path, "error", err)
		}
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename '%s' to '%s': %w", tempPath, path, err)
	}
	return nil
}
