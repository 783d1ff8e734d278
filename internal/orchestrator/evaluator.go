package orchestrator

// #region imports
import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// #endregion

// #region weights

// QualityWeights parameterizes the generated-text heuristic.
// The heuristic is a cheap proxy for "looks like a complete sentence",
// not a semantic quality measure.
type QualityWeights struct {
	Base        float64 `yaml:"base"`
	Length      float64 `yaml:"length"`
	Punctuation float64 `yaml:"punctuation"`
	Words       float64 `yaml:"words"`
	MinChars    int     `yaml:"min_chars"`
	MaxChars    int     `yaml:"max_chars"`
	MinWords    int     `yaml:"min_words"`
	MaxWords    int     `yaml:"max_words"`
}

// DefaultQualityWeights returns 0.5 base, +0.2 for 10-150 chars, +0.2 for
// terminal punctuation and +0.1 for 5-30 words.
func DefaultQualityWeights() QualityWeights {
	return QualityWeights{
		Base:        0.5,
		Length:      0.2,
		Punctuation: 0.2,
		Words:       0.1,
		MinChars:    10,
		MaxChars:    150,
		MinWords:    5,
		MaxWords:    30,
	}
}

// #endregion

// #region quality-score

// ScoreText scores one generated item, capped at 1.
func ScoreText(text string, w QualityWeights) float64 {
	score := w.Base

	n := utf8.RuneCountInString(text)
	if n >= w.MinChars && n <= w.MaxChars {
		score += w.Length
	}
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		score += w.Punctuation
	}
	words := len(strings.Fields(text))
	if words >= w.MinWords && words <= w.MaxWords {
		score += w.Words
	}
	return math.Min(score, 1.0)
}

// ScoreResponses is the mean item score rounded to 2 decimals. Empty input scores 0.
func ScoreResponses(items []string, w QualityWeights) float64 {
	if len(items) == 0 {
		return 0
	}
	var total float64
	for _, it := range items {
		total += ScoreText(it, w)
	}
	return math.Round(total/float64(len(items))*100) / 100
}

// #endregion

// #region clean

const maxResponseRunes = 200

// CleanResponse trims generated text to something sendable: the first
// sentence when it is long enough, no dangling fragment, capitalized, and
// at most 200 characters.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if first, _, found := strings.Cut(s, "."); found && utf8.RuneCountInString(first) > 10 {
		s = first + "."
	}

	if !strings.HasSuffix(s, ".") && !strings.HasSuffix(s, "!") && !strings.HasSuffix(s, "?") {
		if words := strings.Fields(s); len(words) > 3 {
			s = strings.Join(words[:len(words)-1], " ") + "."
		}
	}

	r, size := utf8.DecodeRuneInString(s)
	s = string(unicode.ToUpper(r)) + s[size:]

	if utf8.RuneCountInString(s) > maxResponseRunes {
		runes := []rune(s)
		s = string(runes[:maxResponseRunes-3]) + "..."
	}
	return s
}

// #endregion
