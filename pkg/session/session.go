// Package session persists external run-session records under
// $ASP_HOME/sessions (spec §6), keyed by sha256 of the caller-supplied
// external session id.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/agentspaces/asp/pkg/harness"
)

// Record is one persisted session.
type Record struct {
	ExternalSessionID string     `json:"externalSessionId"`
	Harness           harness.ID `json:"harness"`
	HarnessSessionID  string     `json:"harnessSessionId,omitempty"`
	Model             string     `json:"model,omitempty"`
	CreatedAt         string     `json:"createdAt"`
	UpdatedAt         string     `json:"updatedAt"`
}

// HarnessMismatchError is returned when an existing session record names a
// different harness than the one requesting reuse (spec §6: "Harness
// mismatch on reuse is a fatal error").
type HarnessMismatchError struct {
	ExternalSessionID string
	Recorded          harness.ID
	Requested         harness.ID
}

func (e *HarnessMismatchError) Error() string {
	return fmt.Sprintf("session %s was recorded for harness %q, cannot reuse with %q",
		e.ExternalSessionID, e.Recorded, e.Requested)
}

// Path returns $ASP_HOME/sessions/<sha256(externalSessionID)>.json.
func Path(aspHome, externalSessionID string) string {
	sum := sha256.Sum256([]byte(externalSessionID))
	return filepath.Join(aspHome, "sessions", hex.EncodeToString(sum[:])+".json")
}

// Load reads a session record, returning (nil, nil) if it doesn't exist.
func Load(fs afero.Fs, aspHome, externalSessionID string) (*Record, error) {
	path := Path(aspHome, externalSessionID)
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat session record: %w", err)
	}
	if !exists {
		return nil, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session record %s: %w", path, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse session record %s: %w", path, err)
	}
	return &rec, nil
}

// Open loads an existing record or creates a fresh one, enforcing that an
// existing record's harness matches h.
func Open(fs afero.Fs, aspHome, externalSessionID string, h harness.ID, now string) (*Record, error) {
	existing, err := Load(fs, aspHome, externalSessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Harness != h {
			return nil, &HarnessMismatchError{ExternalSessionID: externalSessionID, Recorded: existing.Harness, Requested: h}
		}
		return existing, nil
	}

	return &Record{
		ExternalSessionID: externalSessionID,
		Harness:           h,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Save writes the record, creating parent directories as needed.
func Save(fs afero.Fs, aspHome string, rec *Record) error {
	path := Path(aspHome, rec.ExternalSessionID)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}
	data = append(data, '\n')

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create sessions dir: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session record %s: %w", path, err)
	}
	return nil
}
