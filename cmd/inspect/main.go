package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/logging"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/state"
)

// #region main

var (
	dbPath    string
	last      int
	sessionID string
	jsonOut   bool
)

var rootCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show stored sessions, detections and suggested replies",
	Long: `Without --session, lists the most recent sessions with their stored phase.
With --session, shows the detection history and the latest suggested replies.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.NewStore(dbPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer store.Close()

		w := cmd.OutOrStdout()
		if sessionID != "" {
			return runDetailMode(cmd.Context(), w, store, sessionID, last, jsonOut)
		}
		return runListMode(cmd.Context(), w, store, last, jsonOut)
	},
}

func init() {
	rootCmd.Flags().StringVar(&dbPath, "db", "negotiator.db", "path to the session database")
	rootCmd.Flags().IntVar(&last, "last", 20, "show N most recent rows")
	rootCmd.Flags().StringVar(&sessionID, "session", "", "show one session in detail")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	SessionID    string  `json:"session_id"`
	Title        string  `json:"title,omitempty"`
	Status       string  `json:"status"`
	Messages     int     `json:"total_messages"`
	Phase        string  `json:"phase,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	LastActivity string  `json:"last_activity"`
}

func runListMode(ctx context.Context, w io.Writer, store *state.Store, last int, jsonOut bool) error {
	sessions, err := store.ListSessions(ctx, last)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	rows := make([]listRow, len(sessions))
	for i, s := range sessions {
		rows[i] = listRow{
			SessionID:    s.ID,
			Title:        s.Title,
			Status:       s.Status,
			Messages:     s.TotalMessages,
			Phase:        string(s.Phase),
			Confidence:   s.PhaseConfidence,
			LastActivity: s.LastActivity.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(w, rows)
	}
	fmt.Fprintf(w, "%-24s  %-24s  %5s  %-24s  %6s  %s\n",
		"Session", "Title", "Msgs", "Phase", "Conf", "Last activity")
	fmt.Fprintf(w, "%-24s+-%-24s+-%5s+-%-24s+-%6s+-%s\n",
		strings.Repeat("-", 24), strings.Repeat("-", 24), "-----", strings.Repeat("-", 24), "------", "--------------------")
	for _, r := range rows {
		ph, conf := "-", "-"
		if r.Phase != "" {
			ph, conf = r.Phase, fmt.Sprintf("%.2f", r.Confidence)
		}
		fmt.Fprintf(w, "%-24s  %-24s  %5d  %-24s  %6s  %s\n",
			truncate(r.SessionID, 24), truncate(r.Title, 24), r.Messages, ph, conf, r.LastActivity)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailView struct {
	Session    state.Session                 `json:"session"`
	Detections []logging.DetectionEntry      `json:"detections"`
	Responses  []orchestrator.LoggedResponse `json:"responses"`
	// ModeQuality is the decay-weighted generated-reply quality per mode for the stored phase.
	ModeQuality map[orchestrator.Mode]float64 `json:"mode_quality,omitempty"`
}

func runDetailMode(ctx context.Context, w io.Writer, store *state.Store, id string, last int, jsonOut bool) error {
	sess, err := store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	detections, err := logging.RecentDetections(ctx, store.DB(), id, last)
	if err != nil {
		return err
	}
	responses, err := orchestrator.NewResponseLog(store.DB())
	if err != nil {
		return err
	}
	recent, err := responses.Recent(ctx, id, last)
	if err != nil {
		return err
	}
	view := detailView{Session: sess, Detections: detections, Responses: recent}
	if sess.Phase != "" {
		if view.ModeQuality, err = responses.ModeQuality(ctx, string(sess.Phase)); err != nil {
			return err
		}
	}

	if jsonOut {
		return printJSON(w, view)
	}

	fmt.Fprintf(w, "Session: %s\n", sess.ID)
	fmt.Fprintf(w, "  Title:    %s\n", sess.Title)
	fmt.Fprintf(w, "  Messages: %d   Status: %s\n", sess.TotalMessages, sess.Status)
	if sess.Phase != "" {
		fmt.Fprintf(w, "  Phase:    %s (%.2f)\n", sess.Phase, sess.PhaseConfidence)
	} else {
		fmt.Fprintln(w, "  Phase:    not detected")
	}

	fmt.Fprintf(w, "\nDetections (newest first):\n")
	for _, d := range detections {
		fmt.Fprintf(w, "  %s  %-24s %.4f  %-16s turns=%d ctx=%s\n",
			d.CreatedAt.Format("2006-01-02T15:04:05Z"), d.Phase, d.Confidence, d.Method, d.Turns, d.ContextHash)
	}

	fmt.Fprintf(w, "\nSuggested replies (newest first):\n")
	for _, r := range recent {
		flag := ""
		if r.Degraded {
			flag = " [fallback]"
		}
		fmt.Fprintf(w, "  [%s #%d q=%.2f%s] %s\n", r.Mode, r.OptionIdx, r.Quality, flag, r.Response)
	}

	if len(view.ModeQuality) > 0 {
		fmt.Fprintf(w, "\nGenerated quality by mode (%s):\n", sess.Phase)
		for _, m := range []orchestrator.Mode{orchestrator.ModeHybrid, orchestrator.ModePure, orchestrator.ModeSummary} {
			if q, ok := view.ModeQuality[m]; ok {
				fmt.Fprintf(w, "  %-8s %.2f\n", m, q)
			}
		}
	}
	return nil
}

// #endregion detail-mode

// #region helpers

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// #endregion helpers
