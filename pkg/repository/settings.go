package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/umputun/newsdigest/pkg/domain"
)

// ErrNotFound is returned by Load when no settings were saved yet
var ErrNotFound = errors.New("settings not found")

// SettingsRepository keeps the digest settings as a single JSON file
type SettingsRepository struct {
	path string
}

// NewSettingsRepository creates a repository backed by the file at path
func NewSettingsRepository(path string) *SettingsRepository {
	return &SettingsRepository{path: path}
}

// Path returns the settings file location
func (r *SettingsRepository) Path() string {
	return r.path
}

// Load reads and validates the stored settings
func (r *SettingsRepository) Load() (domain.Settings, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Settings{}, ErrNotFound
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("read settings %s: %w", r.path, err)
	}

	var settings domain.Settings
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&settings); err != nil {
		return domain.Settings{}, fmt.Errorf("parse settings %s: %w", r.path, err)
	}

	if err := settings.Validate(); err != nil {
		return domain.Settings{}, fmt.Errorf("invalid settings %s: %w", r.path, err)
	}
	return settings, nil
}

// Save overwrites the settings file with the given record.
// The record is written to a temp file first and renamed over the target.
func (r *SettingsRepository) Save(settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod settings: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace settings %s: %w", r.path, err)
	}
	return nil
}
