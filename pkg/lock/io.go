package lock

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/closure"
)

// Write serializes f as pretty-printed JSON with a trailing newline,
// following the teacher's saveInstalledBundleList convention.
func Write(fs afero.Fs, path string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock file: %w", err)
	}
	data = append(data, '\n')
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write lock file %s: %w", path, err)
	}
	return nil
}

// Read loads and validates a lock file from path.
func Read(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}

	if f.LockfileVersion != LockfileVersion {
		return nil, &ReadError{Path: path, Err: fmt.Errorf("unsupported lockfileVersion %d", f.LockfileVersion)}
	}
	if f.Spaces == nil {
		f.Spaces = make(map[closure.SpaceKey]SpaceEntry)
	}
	if f.Targets == nil {
		f.Targets = make(map[string]TargetEntry)
	}
	return &f, nil
}
