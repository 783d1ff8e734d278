package detect

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

// MetadataFile is the artifact manifest written by the training job.
const MetadataFile = "metadata.json"

// #region metadata

// Metadata describes a trained classifier artifact.
type Metadata struct {
	PhaseLabels     []string          `json:"phase_labels"`
	IDToPhase       map[string]string `json:"id_to_phase"`
	Accuracy        float64           `json:"accuracy"`
	TrainingSamples int               `json:"training_samples"`
	ModelName       string            `json:"model_name,omitempty"`
	Dir             string            `json:"-"`
}

// Validate checks the manifest is well-formed: every label is a catalog
// phase and the id map only points at declared labels.
func (m Metadata) Validate() error {
	if len(m.PhaseLabels) == 0 {
		return fmt.Errorf("metadata: no phase_labels")
	}
	labels := make(map[string]bool, len(m.PhaseLabels))
	for _, l := range m.PhaseLabels {
		if !phase.Known(phase.ID(l)) {
			return fmt.Errorf("metadata: unknown phase label %q", l)
		}
		labels[l] = true
	}
	for k, v := range m.IDToPhase {
		if !labels[v] {
			return fmt.Errorf("metadata: id %s maps to undeclared label %q", k, v)
		}
	}
	return nil
}

// LoadMetadata reads dir/metadata.json. A missing file returns ErrNoArtifact.
func LoadMetadata(dir string) (Metadata, error) {
	if dir == "" {
		return Metadata{}, ErrNoArtifact
	}
	path := filepath.Join(dir, MetadataFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Metadata{}, ErrNoArtifact
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("read %s: %w", path, err)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("parse %s: %w", path, err)
	}
	m.Dir = dir
	return m, m.Validate()
}

// #endregion

// #region probe

// ProbeClassifier loads and validates the artifact in dir and hands it to factory.
// Any failure means the caller should run keyword-only.
func ProbeClassifier(dir string, factory ClassifierFactory) (Classifier, Metadata, error) {
	meta, err := LoadMetadata(dir)
	if err != nil {
		return nil, Metadata{}, err
	}
	if factory == nil {
		return nil, meta, fmt.Errorf("probe %s: no classifier factory", dir)
	}
	clf, err := factory(meta)
	if err != nil {
		return nil, meta, fmt.Errorf("load classifier %s: %w", dir, err)
	}
	if clf == nil {
		return nil, meta, fmt.Errorf("load classifier %s: factory returned nil", dir)
	}
	return clf, meta, nil
}

// #endregion
