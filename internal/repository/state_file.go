package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"grow_controller/internal/models"

	"github.com/spf13/afero"
)

// StateFile keeps the state as an indented JSON document, the layout used by
// older controllers. Writes go to a temp file that is renamed into place.
type StateFile struct {
	fs   afero.Fs
	path string
}

func NewStateFile(fs afero.Fs, path string) *StateFile {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &StateFile{fs: fs, path: path}
}

var _ StateRepo = (*StateFile)(nil)

func (f *StateFile) Save(_ context.Context, s models.AppState) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if dir := filepath.Dir(f.path); dir != "." {
		if err := f.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := afero.WriteFile(f.fs, tmp, b, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Load returns an empty state when the file does not exist.
func (f *StateFile) Load(context.Context) (models.AppState, bool, error) {
	b, err := afero.ReadFile(f.fs, f.path)
	if errors.Is(err, os.ErrNotExist) {
		return *models.NewAppState(), false, nil
	}
	if err != nil {
		return models.AppState{}, false, fmt.Errorf("read state file: %w", err)
	}
	var s models.AppState
	if err := json.Unmarshal(b, &s); err != nil {
		return models.AppState{}, false, fmt.Errorf("decode state file %s: %w", f.path, err)
	}
	s.Normalize()
	return s, true, nil
}
