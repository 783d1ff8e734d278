package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/config"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/eval"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/logging"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/pipeline"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/replay"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/state"
)

// #region main

var (
	configPath  string
	dbPath      string
	fixturePath string
	last        int
	jsonOut     bool
)

// exitError carries the process status of a failed run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

var rootCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-run phase detection against a fixture or the stored sessions",
	Long: `Fixture mode replays every conversation turn by turn and evaluates the
final phase against the fixture labels. DB mode re-detects every session with
a stored phase and reports where the current detector disagrees.

Exit status: 0 all checks pass, 1 divergence or eval failure, 2 usage or I/O error.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (dbPath == "") == (fixturePath == "") {
			return &exitError{2, fmt.Errorf("exactly one of --db or --fixture is required")}
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return &exitError{2, err}
		}
		log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return &exitError{2, err}
		}
		defer log.Sync()

		detector, closeDetector := pipeline.NewDetector(cfg, log)
		defer closeDetector()

		w := cmd.OutOrStdout()
		if fixturePath != "" {
			return runFixtureMode(cmd.Context(), w, fixturePath, detector.Detect)
		}
		return runDBMode(cmd.Context(), w, dbPath, cfg.Detection.Window, last, detector.Detect, log)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "config file for detector settings")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "session database (DB mode)")
	rootCmd.Flags().StringVar(&fixturePath, "fixture", "", "fixture JSON (fixture mode)")
	rootCmd.Flags().IntVar(&last, "last", 100, "DB mode: number of most recent sessions")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "print the eval report as JSON")
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		os.Exit(0)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	var e *exitError
	if errors.As(err, &e) {
		os.Exit(e.code)
	}
	os.Exit(2)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(ctx context.Context, w io.Writer, path string, detect eval.DetectFunc) error {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return &exitError{2, fmt.Errorf("load fixture: %w", err)}
	}

	results := replay.Replay(ctx, detect, f.Conversations)
	summary := replay.Summarize(results)
	report := eval.Evaluate(ctx, f.Samples(), detect, f.Config.ToEvalConfig())

	if jsonOut {
		if err := printJSON(w, report); err != nil {
			return &exitError{2, err}
		}
	} else {
		printTurns(w, results)
		fmt.Fprintf(w, "\nTurns: %d total, %d checked, %d match, %d diverge, %d transitions (%d backward)\n",
			summary.TotalTurns, summary.Checked, summary.Matches, summary.Mismatches, summary.Transitions, summary.Backward)
		printReport(w, report)
	}

	if summary.Mismatches > 0 || !report.Passed {
		return &exitError{1, fmt.Errorf("%d turn mismatches; %s", summary.Mismatches, report.Reason)}
	}
	return nil
}

// #endregion fixture-mode

// #region db-mode

// runDBMode uses each session's stored phase as the label, so a divergence
// means the detector changed since that phase was stored.
func runDBMode(ctx context.Context, w io.Writer, path string, window, last int, detect eval.DetectFunc, log *zap.Logger) error {
	store, err := state.NewStore(path)
	if err != nil {
		return &exitError{2, fmt.Errorf("open db: %w", err)}
	}
	defer store.Close()

	sessions, err := store.ListSessions(ctx, last)
	if err != nil {
		return &exitError{2, err}
	}

	var samples []eval.Sample
	for _, s := range sessions {
		if s.Phase == "" {
			continue
		}
		turns, err := store.RecentMessages(ctx, s.ID, window)
		if err != nil {
			return &exitError{2, err}
		}
		if turns.IsEmpty() {
			log.Debug("session has a phase but no messages", zap.String("session_id", s.ID))
			continue
		}
		samples = append(samples, eval.Sample{ID: s.ID, Transcript: turns, Expected: s.Phase})
	}
	if len(samples) == 0 {
		return &exitError{2, fmt.Errorf("no sessions with a stored phase")}
	}

	// Stored labels came from a detector, not a human; only agreement matters.
	report := eval.Evaluate(ctx, samples, detect, eval.EvalConfig{MinAccuracy: 1})
	if jsonOut {
		if err := printJSON(w, report); err != nil {
			return &exitError{2, err}
		}
	} else {
		printPredictions(w, report.Predictions)
		printReport(w, report)
	}
	if !report.Passed {
		return &exitError{1, fmt.Errorf("%d of %d sessions diverge", report.Total-report.Correct, report.Total)}
	}
	return nil
}

// #endregion db-mode

// #region output

func printTurns(w io.Writer, results []replay.ReplayResult) {
	fmt.Fprintf(w, "%-20s| %4s | %-24s| %-24s| %-16s| %s\n", "Conversation", "Turn", "Expected", "Replayed", "Method", "Match")
	fmt.Fprintf(w, "%-20s+-%4s-+-%-24s+-%-24s+-%-16s+-%s\n",
		"--------------------", "----", "------------------------", "------------------------", "----------------", "-----")
	for _, r := range results {
		exp, match := "-", ""
		if r.Expected != "" {
			exp, match = string(r.Expected), "DIFF"
			if r.Match {
				match = "OK"
			}
		}
		fmt.Fprintf(w, "%-20s| %4d | %-24s| %-24s| %-16s| %s\n",
			r.ConversationID, r.Turn, exp, r.Result.Phase, r.Result.Method, match)
	}
}

func printPredictions(w io.Writer, preds []eval.Prediction) {
	fmt.Fprintf(w, "%-24s| %-24s| %-24s| %s\n", "Session", "Stored", "Replayed", "Match")
	fmt.Fprintf(w, "%-24s+-%-24s+-%-24s+-%s\n",
		"------------------------", "------------------------", "------------------------", "-----")
	for _, p := range preds {
		match := "DIFF"
		if p.Correct {
			match = "OK"
		}
		fmt.Fprintf(w, "%-24s| %-24s| %-24s| %s\n", p.ID, p.Expected, p.Got, match)
	}
}

func printReport(w io.Writer, r eval.Report) {
	fmt.Fprintf(w, "\nAccuracy: %.4f (%d/%d)\n", r.Accuracy, r.Correct, r.Total)
	fmt.Fprintf(w, "%-24s %7s %9s %9s %7s\n", "Phase", "Support", "Precision", "Recall", "F1")
	for _, m := range r.Phases {
		fmt.Fprintf(w, "%-24s %7d %9.4f %9.4f %7.4f\n", m.Phase, m.Support, m.Precision, m.Recall, m.F1)
	}
	fmt.Fprintf(w, "\nBy method:")
	for _, m := range []phase.Method{phase.MethodML, phase.MethodKeyword, phase.MethodDefault} {
		fmt.Fprintf(w, " %s=%d", m, r.ByMethod[m])
	}
	fmt.Fprintf(w, "\n%s\n", r.Reason)
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// #endregion output
