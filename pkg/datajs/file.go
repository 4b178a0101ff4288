package datajs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/benchboard/benchboard/pkg/types"
)

// ReadFile loads the data file at path. A missing file yields an empty Data
// so that the first append creates the history.
func ReadFile(path string) (*types.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.New(""), nil
		}
		return nil, fmt.Errorf("datajs: read %q: %w", path, err)
	}
	d, err := Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// WriteFile atomically replaces the data file at path with d. Readers never
// observe a partially written file.
func WriteFile(path string, d *types.Data) error {
	b, err := Marshal(d)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("datajs: create dir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".data.js-*")
	if err != nil {
		return fmt.Errorf("datajs: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("datajs: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("datajs: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("datajs: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("datajs: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("datajs: replace %q: %w", path, err)
	}
	return nil
}
