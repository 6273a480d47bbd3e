package study

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// Files written by a study.
const (
	ManifestFile = "study.json"
	CaseFile     = "case.json"
	StdoutFile   = "out.txt"
	StderrFile   = "err.txt"
)

// Manifest is the record of a study written to <results>/study.json.
type Manifest struct {
	Input      string          `json:"input"`
	Model      string          `json:"model"`
	Calculator string          `json:"calculator"`
	Command    string          `json:"command"`
	Variables  types.Variables `json:"variables"`
	Started    time.Time       `json:"started"`
	Finished   time.Time       `json:"finished"`
	Table      *types.Table    `json:"table"`
}

// ReadManifest loads the manifest of a previous study.
func ReadManifest(resultsDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(resultsDir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// writeJSON writes v to path atomically using a temp file and rename.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
