package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// readSessionToken returns the saved login token, or "" when nobody is
// logged in.
func readSessionToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read session file %q: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func writeSessionToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session file %q: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("chmod session file %q: %w", path, err)
	}
	return nil
}

func removeSessionToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file %q: %w", path, err)
	}
	return nil
}

func sessionFileMode(path string) (os.FileMode, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat session file %q: %w", path, err)
	}
	return info.Mode().Perm(), true, nil
}
