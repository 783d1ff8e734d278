package phase

import (
	"math"
	"strings"
)

// #region catalog

// catalog is declared in chain order. Keyword scoring breaks ties by this order.
var catalog = []Info{
	{
		ID:          InitialResponse,
		DisplayName: "Initial Response (After Cover Letter)",
		Description: "First response from employer after cover letter",
		Next:        AskDetails,
	},
	{
		ID:          AskDetails,
		DisplayName: "Ask Job Details",
		Description: "Asking about project details, scope, requirements",
		Next:        KnowledgeCheck,
	},
	{
		ID:            KnowledgeCheck,
		DisplayName:   "Knowledge Check (Testing Expertise)",
		Description:   "Employer testing knowledge - defer to human if unsure",
		Next:          LanguageConfirm,
		RequiresHuman: true,
	},
	{
		ID:          LanguageConfirm,
		DisplayName: "Language Confirmation",
		Description: "Confirming which language(s) needed",
		Next:        RateNegotiation,
	},
	{
		ID:          RateNegotiation,
		DisplayName: "Rate Discussion",
		Description: "Discussing rates and pricing",
		Next:        DeadlineSamples,
	},
	{
		ID:          DeadlineSamples,
		DisplayName: "Deadline & Samples",
		Description: "Confirming deadline and requesting samples/briefs",
		Next:        StructureClarification,
	},
	{
		ID:          StructureClarification,
		DisplayName: "Structure & Requirements",
		Description: "Clarifying content structure and SEO requirements",
		Next:        ContractAcceptance,
	},
	{
		ID:          ContractAcceptance,
		DisplayName: "Contract & Start",
		Description: "Accepting contract and starting work",
	},
}

var byID = func() map[ID]int {
	m := make(map[ID]int, len(catalog))
	for i, info := range catalog {
		m[info.ID] = i
	}
	return m
}()

// #endregion

// #region lookup

// All returns the phase ids in declaration order.
func All() []ID {
	ids := make([]ID, len(catalog))
	for i, info := range catalog {
		ids[i] = info.ID
	}
	return ids
}

// Infos returns a copy of every catalog entry in declaration order.
func Infos() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// Known reports whether id is one of the 8 catalog phases.
func Known(id ID) bool {
	_, ok := byID[id]
	return ok
}

// Lookup returns the catalog entry for id. Unknown ids resolve to the
// initial_response entry so that detector misfires never crash callers.
func Lookup(id ID) Info {
	if i, ok := byID[id]; ok {
		return catalog[i]
	}
	return catalog[0]
}

// Successor returns the next phase in the chain. ok is false for the terminal phase.
func Successor(id ID) (ID, bool) {
	next := Lookup(id).Next
	return next, next != ""
}

// RequiresHuman reports whether the phase must be escalated for human review.
func RequiresHuman(id ID) bool {
	return Lookup(id).RequiresHuman
}

// Parse normalizes s and returns the matching id.
func Parse(s string) (ID, bool) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	return id, Known(id)
}

// #endregion

// #region hints

// NextHint renders the successor's display name, or "" for the terminal phase.
func NextHint(id ID) string {
	next, ok := Successor(id)
	if !ok {
		return ""
	}
	return Lookup(next).DisplayName
}

// NextSteps is the operator-facing guidance shown beside a response.
func NextSteps(id ID) string {
	if hint := NextHint(id); hint != "" {
		return "After this, move to: " + hint
	}
	return "Contract finalized - ready to start work!"
}

// Warning is non-empty only for the human-escalation phase.
func Warning(id ID) string {
	if !RequiresHuman(id) {
		return ""
	}
	return "Knowledge check detected. Review the question and answer it yourself."
}

// #endregion

// #region rounding

// Round4 clamps c to [0,1] and rounds it to 4 decimal places.
func Round4(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		c = 1
	}
	return math.Round(c*10000) / 10000
}

// #endregion
