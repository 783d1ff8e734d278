package orchestrator

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

//go:embed templates.yaml
var defaultTablesYAML []byte

// #region tables

// Tables holds the declarative phase -> strings mappings.
type Tables struct {
	Templates         map[phase.ID][]string `yaml:"templates"`
	FallbackTemplates []string              `yaml:"fallback_templates"`
	Questions         map[phase.ID][]string `yaml:"questions"`
	FallbackQuestions []string              `yaml:"fallback_questions"`
}

// DefaultTables returns the built-in tables.
func DefaultTables() *Tables {
	t, err := ParseTables(defaultTablesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded templates.yaml: %v", err))
	}
	return t
}

// LoadTables reads a YAML table file. An empty path returns the built-in tables.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates %s: %w", path, err)
	}
	t, err := ParseTables(data)
	if err != nil {
		return nil, fmt.Errorf("templates %s: %w", path, err)
	}
	return t, nil
}

// ParseTables decodes and validates a YAML table document.
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate requires a non-empty fallback template list and only catalog phase keys.
func (t *Tables) Validate() error {
	if len(t.FallbackTemplates) == 0 {
		return fmt.Errorf("fallback_templates must not be empty")
	}
	for id := range t.Templates {
		if !phase.Known(id) {
			return fmt.Errorf("templates: unknown phase %q", id)
		}
	}
	for id := range t.Questions {
		if !phase.Known(id) {
			return fmt.Errorf("questions: unknown phase %q", id)
		}
	}
	return nil
}

// #endregion

// #region lookup

// TemplatesFor returns the templates for id, or the fallback list.
func (t *Tables) TemplatesFor(id phase.ID) []string {
	if list := t.Templates[id]; len(list) > 0 {
		return list
	}
	return t.FallbackTemplates
}

// QuestionsFor returns the follow-up questions for id, or the fallback list.
func (t *Tables) QuestionsFor(id phase.ID) []string {
	if list := t.Questions[id]; len(list) > 0 {
		return list
	}
	return t.FallbackQuestions
}

// firstN returns at most n leading entries as a fresh slice.
func firstN(list []string, n int) []string {
	if n > len(list) {
		n = len(list)
	}
	out := make([]string, n)
	copy(out, list[:n])
	return out
}

// #endregion
