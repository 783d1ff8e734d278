package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/pipeline"
)

// errReported marks a failure whose outcome JSON is already on stdout.
var errReported = errors.New("failure reported")

var (
	sessionRef string
	modeName   string
	options    int
)

// #region commands

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect and store the phase of a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, closeAll, err := pipeline.FromConfig(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeAll()

		out, err := p.DetectSession(cmd.Context(), sessionRef)
		return report(cmd.OutOrStdout(), out, err)
	},
}

var respondCmd = &cobra.Command{
	Use:   "respond",
	Short: "Suggest replies from the stored phase",
	Long: `Suggest replies for a session using the phase stored by detect.

Modes: template, hybrid, pure, summary, all; and the two-way variant
template, ai (same as pure), both.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := orchestrator.ParseMode(modeName)
		if err != nil {
			return err
		}
		p, closeAll, err := pipeline.FromConfig(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeAll()

		out, err := p.Respond(cmd.Context(), sessionRef, mode, options)
		return report(cmd.OutOrStdout(), out, err)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Detect the phase, then suggest replies",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := orchestrator.ParseMode(modeName)
		if err != nil {
			return err
		}
		p, closeAll, err := pipeline.FromConfig(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeAll()

		out, err := p.Run(cmd.Context(), sessionRef, mode, options)
		return report(cmd.OutOrStdout(), out, err)
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [transcript.json]",
	Short: "Import a JSON chat transcript into the session store",
	Long: `Import a transcript of the form
  {"session_id": "...", "title": "...", "participant": "...",
   "messages": [{"role": "self|other", "text": "...", "timestamp": "RFC3339"}]}
Reads stdin when no file is given or the file is "-".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		tf, err := pipeline.ReadTranscript(r)
		if err != nil {
			return err
		}

		p, closeAll, err := pipeline.FromConfig(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeAll()

		out, err := p.Ingest(cmd.Context(), tf)
		return report(cmd.OutOrStdout(), out, err)
	},
}

func init() {
	for _, c := range []*cobra.Command{detectCmd, respondCmd, runCmd} {
		c.Flags().StringVar(&sessionRef, "session", pipeline.LatestSession, `session id, or "latest"`)
	}
	for _, c := range []*cobra.Command{respondCmd, runCmd} {
		c.Flags().StringVar(&modeName, "mode", string(orchestrator.ModeTemplate), "template|hybrid|pure|summary|all|ai|both")
		c.Flags().IntVar(&options, "options", 0, "number of options (0 uses the mode default)")
	}
}

// #endregion

// #region output

// report prints the outcome as JSON. A failed outcome is already described
// there, so the returned error only drives the exit code.
func report(w io.Writer, out any, err error) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if encErr := enc.Encode(out); encErr != nil {
		return fmt.Errorf("encode outcome: %w", encErr)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, orchestrator.ErrInvalidMode) {
		return err
	}
	return fmt.Errorf("%w: %v", errReported, err)
}

// #endregion
