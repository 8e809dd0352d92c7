// Package settings persists application settings as a small JSON file next to
// the data directory. A missing or unreadable file yields defaults; the file
// is created on first save.
package settings

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"stoktakip/internal/domain"
)

func Defaults() domain.Settings {
	return domain.Settings{
		CompanyName: "My Company",
		ExportDir:   "./exports",
	}
}

type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() (domain.Settings, error) {
	settings := Defaults()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return settings, err
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		// A corrupt file should not brick the application.
		return Defaults(), nil
	}
	if settings.CompanyName == "" {
		settings.CompanyName = Defaults().CompanyName
	}
	if settings.ExportDir == "" {
		settings.ExportDir = Defaults().ExportDir
	}
	return settings, nil
}

func (s *FileStore) Save(settings domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(settings)
}

func (s *FileStore) save(settings domain.Settings) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}

// Update applies the non-empty fields of patch over the stored settings and
// persists the result.
func (s *FileStore) Update(patch domain.Settings) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return current, err
	}
	if patch.CompanyName != "" {
		current.CompanyName = patch.CompanyName
	}
	if patch.ExportDir != "" {
		current.ExportDir = patch.ExportDir
	}
	if err := s.save(current); err != nil {
		return current, err
	}
	return current, nil
}
