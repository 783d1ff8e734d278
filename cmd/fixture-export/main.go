package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/replay"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/state"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// #region main

var (
	dbPath  string
	outPath string
	last    int
	window  int
)

var rootCmd = &cobra.Command{
	Use:   "fixture-export",
	Short: "Export stored sessions into a replay fixture",
	Long: `Writes the recent turns of every session with a stored phase as a replay
fixture, labelled with that phase. Labels come from the detector, so review
them before using the fixture as a regression baseline.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), cmd.OutOrStdout(), dbPath, last, window, outPath)
	},
}

func init() {
	rootCmd.Flags().StringVar(&dbPath, "db", "", "path to the session database")
	rootCmd.Flags().StringVar(&outPath, "out", "", "output fixture JSON path")
	rootCmd.Flags().IntVar(&last, "last", 20, "number of most recent sessions to export")
	rootCmd.Flags().IntVar(&window, "window", transcript.DetectionWindow, "turns per conversation")
	_ = rootCmd.MarkFlagRequired("db")
	_ = rootCmd.MarkFlagRequired("out")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(ctx context.Context, w io.Writer, dbPath string, last, window int, outPath string) error {
	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	sessions, err := store.ListSessions(ctx, last)
	if err != nil {
		return err
	}

	var convs []replay.FixtureConversation
	for _, s := range sessions {
		if s.Phase == "" {
			continue
		}
		turns, err := store.RecentMessages(ctx, s.ID, window)
		if err != nil {
			return err
		}
		if turns.IsEmpty() {
			continue
		}
		convs = append(convs, buildConversation(s, turns))
	}
	if len(convs) == 0 {
		return fmt.Errorf("no sessions with a stored phase and messages in the last %d", last)
	}

	fmt.Fprintf(w, "Found %d labelled sessions\n", len(convs))
	fixture := replay.Fixture{
		Description:   fmt.Sprintf("Session export: %d conversations labelled with their stored phase", len(convs)),
		Conversations: convs,
	}
	return writeFixture(w, fixture, outPath)
}

// #endregion extract

// #region output

func buildConversation(s state.Session, turns transcript.Transcript) replay.FixtureConversation {
	c := replay.FixtureConversation{ID: s.ID, Expected: string(s.Phase)}
	for _, t := range turns {
		c.Turns = append(c.Turns, replay.FixtureTurn{Role: string(t.Role), Text: t.Text})
	}
	return c
}

func writeFixture(w io.Writer, fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Fprintf(w, "Wrote fixture to %s (%d bytes, %d conversations)\n", outPath, len(data), len(fixture.Conversations))
	return nil
}

// #endregion output
