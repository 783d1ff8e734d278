package orchestrator

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// #endregion

// #region generation-config

// GenerationConfig holds the sampling policy for backend calls.
type GenerationConfig struct {
	MaxNewTokens int
	// Temperatures is the per-variant schedule; variant i uses entry i, and
	// variants past the end step up by 0.1 from the last entry.
	Temperatures []float64
	// MinChars rejects cleaned outputs shorter than this.
	MinChars int
	// ContextChars is how much trailing transcript each prompt embeds.
	PureContextChars    int
	HybridContextChars  int
	SummaryContextChars int
}

// DefaultGenerationConfig returns 100 new tokens at temperatures 0.7, 0.8, 0.9.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		MaxNewTokens:        100,
		Temperatures:        []float64{0.7, 0.8, 0.9},
		MinChars:            10,
		PureContextChars:    300,
		HybridContextChars:  250,
		SummaryContextChars: 300,
	}
}

func (c GenerationConfig) temperature(i int) float64 {
	if len(c.Temperatures) == 0 {
		return 0.7 + 0.1*float64(i)
	}
	if i < len(c.Temperatures) {
		return c.Temperatures[i]
	}
	last := c.Temperatures[len(c.Temperatures)-1]
	return last + 0.1*float64(i-len(c.Temperatures)+1)
}

// #endregion

// #region errors

var (
	errNoBackend   = errors.New("no generation backend")
	errEmptyOutput = errors.New("empty or too short output")
)

// #endregion

// #region sample

// generateOnce runs one cleaned completion. Empty or short output is an error.
func (o *Orchestrator) generateOnce(ctx context.Context, prompt string, temperature float64) (string, error) {
	if o.backend == nil {
		return "", errNoBackend
	}
	raw, err := o.backend.Complete(ctx, prompt, o.gen.MaxNewTokens, temperature)
	if err != nil {
		return "", err
	}
	text := CleanResponse(raw)
	if utf8.RuneCountInString(text) < o.gen.MinChars {
		return "", fmt.Errorf("%w (%d chars)", errEmptyOutput, utf8.RuneCountInString(text))
	}
	return text, nil
}

// sampleVariants asks for n completions at distinct temperatures and keeps
// the distinct successful ones in order. The last error is returned when
// nothing usable came back.
func (o *Orchestrator) sampleVariants(ctx context.Context, prompt string, n int) ([]string, error) {
	var (
		out     []string
		lastErr error
	)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		text, err := o.generateOnce(ctx, prompt, o.gen.temperature(i))
		if err != nil {
			lastErr = err
			continue
		}
		if seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
	}
	if len(out) == 0 {
		if lastErr == nil {
			lastErr = errEmptyOutput
		}
		return nil, lastErr
	}
	return out, nil
}

// #endregion
