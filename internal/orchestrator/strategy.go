package orchestrator

import (
	"fmt"
	"strings"
)

// #region mode-definitions

// ModeConfig describes one response mode.
type ModeConfig struct {
	ID             Mode
	Name           string
	Description    string
	Generative     bool
	DefaultOptions int
	MaxOptions     int
	// Steps lists the non-composite modes a composite runs, in order.
	Steps []Mode
}

// Modes is the full set of built-in mode configs.
var Modes = map[Mode]ModeConfig{
	ModeTemplate: {
		ID:             ModeTemplate,
		Name:           "Template Only (Fast)",
		Description:    "Pre-written professional templates",
		DefaultOptions: 3,
		MaxOptions:     5,
	},
	ModeHybrid: {
		ID:             ModeHybrid,
		Name:           "Hybrid (Template + AI)",
		Description:    "Template base with AI personalization",
		Generative:     true,
		DefaultOptions: 1,
		MaxOptions:     1,
	},
	ModePure: {
		ID:             ModePure,
		Name:           "Pure AI Generation",
		Description:    "Fully AI-generated from context",
		Generative:     true,
		DefaultOptions: 1,
		MaxOptions:     3,
	},
	ModeSummary: {
		ID:             ModeSummary,
		Name:           "Template + AI Summary",
		Description:    "Template with AI context summary",
		Generative:     true,
		DefaultOptions: 1,
		MaxOptions:     1,
	},
	ModeAll: {
		ID:          ModeAll,
		Name:        "All Modes",
		Description: "Every mode, cheapest first",
		Steps:       []Mode{ModeTemplate, ModeHybrid, ModePure, ModeSummary},
	},
	ModeBoth: {
		ID:          ModeBoth,
		Name:        "Template + AI",
		Description: "One template and one generated reply",
		Steps:       []Mode{ModeTemplate, ModePure},
	},
}

// #endregion

// #region parse

// modeAliases maps alternative command spellings onto modes.
var modeAliases = map[string]Mode{
	"ai":        ModePure,
	"all_modes": ModeAll,
}

// ParseMode resolves a mode name. Unknown names return ErrInvalidMode.
func ParseMode(s string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if m, ok := modeAliases[key]; ok {
		return m, nil
	}
	if _, ok := Modes[Mode(key)]; ok {
		return Mode(key), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// #endregion

// #region plan

type step struct {
	mode    Mode
	options int
}

// plan expands a mode into ordered non-composite steps. Inside a composite the
// requested count applies to the template step only; the rest yield one option.
// In all the template step never drops below its default, so it stays the
// largest entry.
func plan(m Mode, options int) ([]step, error) {
	cfg, ok := Modes[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, m)
	}
	if len(cfg.Steps) == 0 {
		return []step{{mode: m, options: cfg.clamp(options)}}, nil
	}

	steps := make([]step, 0, len(cfg.Steps))
	for _, sub := range cfg.Steps {
		n := 1
		if sub == ModeTemplate && m == ModeAll {
			tpl := Modes[ModeTemplate]
			n = max(tpl.clamp(options), tpl.DefaultOptions)
		}
		steps = append(steps, step{mode: sub, options: n})
	}
	return steps, nil
}

func (c ModeConfig) clamp(n int) int {
	if n <= 0 {
		n = c.DefaultOptions
	}
	if n > c.MaxOptions {
		n = c.MaxOptions
	}
	if n < 1 {
		n = 1
	}
	return n
}

// #endregion
