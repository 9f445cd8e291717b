package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/home-security/internal/codec"
	"github.com/oshokin/home-security/internal/config"
	"github.com/oshokin/home-security/internal/domain/security"
)

// FileRepository persists the alarm config to a JSON file on disk.
// JSON is produced and consumed via protojson so the file matches the wire shape.
type FileRepository struct {
	// path is the filesystem location of the JSON config file.
	path string
	// mu protects concurrent access to the config file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the location of the config file.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the config from disk.
func (r *FileRepository) Load(_ context.Context) (security.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return security.Config{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}

		return security.Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := codec.UnmarshalJSON(contents)
	if err != nil {
		return security.Config{}, fmt.Errorf("decode config file %s: %w", r.path, err)
	}

	return cfg, nil
}

// Save writes the config next to the target and renames it into place,
// so readers never observe a partially written file.
func (r *FileRepository) Save(_ context.Context, cfg security.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := codec.MarshalJSON(cfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err = os.MkdirAll(dir, config.DefaultDirPermissions); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	temporaryPath := r.path + ".tmp"
	if err = os.WriteFile(temporaryPath, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	if err = os.Rename(temporaryPath, r.path); err != nil {
		_ = os.Remove(temporaryPath)

		return fmt.Errorf("replace config file: %w", err)
	}

	return nil
}
