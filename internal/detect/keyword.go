package detect

import (
	"context"
	"strings"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

// #region defaults

// DefaultFloor is the minimum winning score before the opening-message default applies.
const DefaultFloor = 0.15

// DefaultConfidence is reported when detection falls back to initial_response.
const DefaultConfidence = 0.5

// DefaultTriggers is the built-in keyword table, one row per catalog phase.
// knowledge_check is weighted up because missing it costs more than a false positive.
var DefaultTriggers = []PhaseTriggers{
	{Phase: phase.InitialResponse, Weight: 1.0, Triggers: []string{
		"hello", "available", "are you available", "interested", "application", "saw your",
	}},
	{Phase: phase.AskDetails, Weight: 1.0, Triggers: []string{
		"project", "task", "what", "need", "require", "about", "tell me",
		"types of", "materials", "deliverables", "scope",
	}},
	{Phase: phase.KnowledgeCheck, Weight: 1.2, Triggers: []string{
		"test", "question", "familiar", "experience with", "can you explain",
		"explain", "how would you", "what do you think", "technical", "your opinion",
	}},
	{Phase: phase.LanguageConfirm, Weight: 1.0, Triggers: []string{
		"language", "english", "dutch", "spanish", "french", "german", "which language", "bilingual",
	}},
	{Phase: phase.RateNegotiation, Weight: 1.0, Triggers: []string{
		"rate", "price", "per word", "budget", "cost", "charge", "pay", "how much", "offer",
	}},
	{Phase: phase.DeadlineSamples, Weight: 1.0, Triggers: []string{
		"deadline", "when", "sample", "example", "brief", "due", "delivery",
		"monday", "today", "friday", "week",
	}},
	{Phase: phase.StructureClarification, Weight: 1.0, Triggers: []string{
		"structure", "format", "seo", "keywords", "h1", "h2", "faq",
		"links", "tone", "voice", "yoast", "meta",
	}},
	{Phase: phase.ContractAcceptance, Weight: 1.0, Triggers: []string{
		"contract", "agreement", "accept", "start", "begin", "okay", "deal", "offer", "milestone",
	}},
}

// #endregion

// #region scorer

// KeywordScorer is the deterministic fallback classifier.
type KeywordScorer struct {
	rows  map[phase.ID]PhaseTriggers
	floor float64
}

// NewKeywordScorer normalizes the table (lowercase, distinct triggers, weight
// defaulting to 1). An empty table uses DefaultTriggers; floor <= 0 uses DefaultFloor.
func NewKeywordScorer(table []PhaseTriggers, floor float64) *KeywordScorer {
	if len(table) == 0 {
		table = DefaultTriggers
	}
	if floor <= 0 {
		floor = DefaultFloor
	}
	rows := make(map[phase.ID]PhaseTriggers, len(table))
	for _, row := range table {
		seen := make(map[string]bool, len(row.Triggers))
		norm := PhaseTriggers{Phase: row.Phase, Weight: row.Weight}
		if norm.Weight <= 0 {
			norm.Weight = 1.0
		}
		for _, trig := range row.Triggers {
			trig = strings.ToLower(strings.TrimSpace(trig))
			if trig == "" || seen[trig] {
				continue
			}
			seen[trig] = true
			norm.Triggers = append(norm.Triggers, trig)
		}
		rows[row.Phase] = norm
	}
	return &KeywordScorer{rows: rows, floor: floor}
}

// Floor returns the configured confidence floor.
func (k *KeywordScorer) Floor() float64 {
	return k.floor
}

// Scores returns the weighted score of every catalog phase in declaration order.
func (k *KeywordScorer) Scores(text string) []PhaseScore {
	lower := strings.ToLower(text)
	out := make([]PhaseScore, 0, len(k.rows))
	for _, id := range phase.All() {
		row, ok := k.rows[id]
		if !ok || len(row.Triggers) == 0 {
			out = append(out, PhaseScore{Phase: id})
			continue
		}
		var hits []string
		for _, trig := range row.Triggers {
			if strings.Contains(lower, trig) {
				hits = append(hits, trig)
			}
		}
		score := float64(len(hits)) / float64(len(row.Triggers)) * row.Weight
		out = append(out, PhaseScore{Phase: id, Score: score, Hits: hits})
	}
	return out
}

// Score classifies text. Ties go to the earlier catalog phase; a winner below
// the floor, or blank text, yields the initial_response default.
func (k *KeywordScorer) Score(text string) phase.DetectionResult {
	if strings.TrimSpace(text) == "" {
		return Default()
	}
	best := PhaseScore{Score: -1}
	for _, s := range k.Scores(text) {
		if s.Score > best.Score {
			best = s
		}
	}
	if best.Score < k.floor {
		return Default()
	}
	return phase.DetectionResult{
		Phase:      best.Phase,
		Confidence: phase.Round4(best.Score),
		Method:     phase.MethodKeyword,
	}
}

// Default is the "assume this is the opening message" result.
func Default() phase.DetectionResult {
	return phase.DetectionResult{
		Phase:      phase.InitialResponse,
		Confidence: DefaultConfidence,
		Method:     phase.MethodDefault,
	}
}

// #endregion

// #region keyword-strategy

type keywordStrategy struct {
	scorer *KeywordScorer
}

// NewKeywordStrategy wraps a scorer as a Strategy. It never fails.
func NewKeywordStrategy(scorer *KeywordScorer) Strategy {
	return keywordStrategy{scorer: scorer}
}

func (s keywordStrategy) Method() phase.Method { return phase.MethodKeyword }

func (s keywordStrategy) Classify(_ context.Context, text string) (phase.DetectionResult, error) {
	return s.scorer.Score(text), nil
}

// #endregion
