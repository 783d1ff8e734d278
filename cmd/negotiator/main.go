package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/config"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/logging"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/orchestrator"
)

// #region flags

var (
	configPath string
	dbPath     string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
)

// #endregion

// #region root

var rootCmd = &cobra.Command{
	Use:   "negotiator",
	Short: "Phase detection and reply suggestions for freelance negotiation chats",
	Long: `negotiator detects where a client conversation stands (initial contact,
rate talk, a knowledge check, contract) and suggests replies for it.

Detection is stored per session; respond reads the stored phase, so run
detect first or use run to do both.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "config file (missing file uses defaults)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "session database (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (overrides config)")

	rootCmd.AddCommand(detectCmd, respondCmd, runCmd, ingestCmd)
}

// #endregion

// #region main

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process status: 0 success, 2 for an
// invalid mode, 1 for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, orchestrator.ErrInvalidMode):
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	case errors.Is(err, errReported):
		return 1
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
}

// #endregion
