package replay

import (
	"context"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/eval"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
)

// #region types
// ReplayResult is the detection after one turn of a conversation.
type ReplayResult struct {
	ConversationID string
	Turn           int
	Result         phase.DetectionResult
	// Expected is empty when the turn carries no expectation.
	Expected phase.ID
	Match    bool
	// Transition is true when the phase differs from the previous turn's.
	Transition bool
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	Conversations int
	TotalTurns    int
	Checked       int
	Matches       int
	Mismatches    int
	Transitions   int
	ByMethod      map[phase.Method]int
	// Backward counts transitions to an earlier phase in the negotiation chain.
	Backward int
}

// #endregion types

// #region replay
// Replay feeds each conversation to detect one turn at a time, so every
// prefix of the chat is classified the way it was seen live.
func Replay(ctx context.Context, detect eval.DetectFunc, conversations []FixtureConversation) []ReplayResult {
	var results []ReplayResult
	for i := range conversations {
		c := &conversations[i]
		full := c.ToTranscript()
		var prev phase.ID
		for n := 1; n <= len(full); n++ {
			res := detect(ctx, full[:n])
			r := ReplayResult{
				ConversationID: c.ID,
				Turn:           n - 1,
				Result:         res,
				Transition:     n > 1 && res.Phase != prev,
			}
			expect := c.Turns[n-1].Expect
			if n == len(full) && expect == "" {
				expect = c.Expected
			}
			if id, ok := phase.Parse(expect); ok {
				r.Expected = id
				r.Match = res.Phase == id
			}
			results = append(results, r)
			prev = res.Phase
		}
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{
		TotalTurns: len(results),
		ByMethod:   make(map[phase.Method]int),
	}
	rank := make(map[phase.ID]int)
	for i, id := range phase.All() {
		rank[id] = i
	}

	var last string
	var prev phase.ID
	for _, r := range results {
		if r.ConversationID != last || r.Turn == 0 {
			s.Conversations++
			last = r.ConversationID
		} else if r.Transition && rank[r.Result.Phase] < rank[prev] {
			s.Backward++
		}
		prev = r.Result.Phase

		s.ByMethod[r.Result.Method]++
		if r.Transition {
			s.Transitions++
		}
		if r.Expected == "" {
			continue
		}
		s.Checked++
		if r.Match {
			s.Matches++
		} else {
			s.Mismatches++
		}
	}
	return s
}

// Run replays the fixture turn by turn and evaluates the final phase of
// every labelled conversation.
func Run(ctx context.Context, f *Fixture, detect eval.DetectFunc) (ReplaySummary, eval.Report) {
	summary := Summarize(Replay(ctx, detect, f.Conversations))
	report := eval.Evaluate(ctx, f.Samples(), detect, f.Config.ToEvalConfig())
	return summary, report
}

// #endregion replay
