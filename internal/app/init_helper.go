package app

import (
	"fmt"
	"path/filepath"

	"github.com/uvyne-rop/movie-watchlist/internal/storage"
)

// InitStore creates the database at path and applies all migrations. It is
// safe to run against an existing database.
func InitStore(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("%w: database path is required", ErrValidation)
	}

	store, err := storage.Open(filepath.Clean(path))
	if err != nil {
		return 0, fmt.Errorf("init store: %w", err)
	}
	if err := store.Close(); err != nil {
		return 0, fmt.Errorf("init store: close: %w", err)
	}
	return storage.CurrentSchemaVersion(), nil
}
