package pipeline

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/codec"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/config"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/dashboard"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/detect"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/gemini"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/state"
)

// #endregion

// #region closers

type closers []func() error

func (c closers) Close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// #endregion

// #region detector

// NewDetector builds the hybrid detector from cfg. When a classifier
// directory is configured the model service client backs the learned
// classifier; the returned close func releases it.
func NewDetector(cfg config.Config, log *zap.Logger) (*detect.HybridDetector, func() error) {
	var cl closers
	opts := detect.Options{
		ArtifactDir: cfg.Detection.ClassifierDir,
		Floor:       cfg.Detection.ConfidenceFloor,
		Window:      cfg.Detection.Window,
		Logger:      log,
	}
	if cfg.Detection.ClassifierDir != "" {
		addr := cfg.Generation.ModelServiceAddr
		opts.Factory = func(detect.Metadata) (detect.Classifier, error) {
			client, err := codec.NewCodecClient(addr)
			if err != nil {
				return nil, err
			}
			cl = append(cl, client.Close)
			return client, nil
		}
	}
	d := detect.NewHybridDetector(opts)
	return d, cl.Close
}

// #endregion

// #region backend

// NewBackend builds the generation backend named by cfg. Provider "none"
// returns a nil backend, which keeps every mode on templates.
func NewBackend(ctx context.Context, cfg config.Config) (orchestrator.Backend, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(cfg.Generation.Provider) {
	case config.ProviderNone, "":
		return nil, noop, nil
	case config.ProviderGRPC:
		client, err := codec.NewCodecClient(cfg.Generation.ModelServiceAddr)
		if err != nil {
			return nil, noop, err
		}
		return client, client.Close, nil
	case config.ProviderGemini:
		b, err := gemini.New(ctx, cfg.Generation.GeminiAPIKey, cfg.Generation.GeminiModel)
		if err != nil {
			return nil, noop, err
		}
		return b, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown generation provider %q", cfg.Generation.Provider)
	}
}

// #endregion

// #region sinks

// NewSink builds the dashboard fan-out from cfg. A Redis sink that cannot
// be reached is logged and skipped.
func NewSink(ctx context.Context, cfg config.Config, log *zap.Logger) (dashboard.Sink, func() error) {
	var (
		sinks []dashboard.Sink
		cl    closers
	)
	if cfg.Dashboard.File != "" {
		sinks = append(sinks, dashboard.NewFileSink(cfg.Dashboard.File))
	}
	if cfg.Dashboard.RedisAddr != "" {
		rs, err := dashboard.NewRedisSink(ctx, cfg.Dashboard.RedisAddr, cfg.Dashboard.RedisChannel)
		if err != nil {
			log.Warn("redis dashboard sink disabled", zap.String("addr", cfg.Dashboard.RedisAddr), zap.Error(err))
		} else {
			sinks = append(sinks, rs)
			cl = append(cl, rs.Close)
		}
	}
	if len(sinks) == 0 {
		return nil, cl.Close
	}
	return dashboard.Multi(sinks...), cl.Close
}

// #endregion

// #region from-config

// FromConfig opens the store and wires every component cfg describes.
// The returned close func releases them in reverse order.
func FromConfig(ctx context.Context, cfg config.Config, log *zap.Logger) (*Pipeline, func() error, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var cl closers
	fail := func(err error) (*Pipeline, func() error, error) {
		_ = cl.Close()
		return nil, nil, err
	}

	store, err := state.NewStore(cfg.DBPath)
	if err != nil {
		return fail(fmt.Errorf("open store %s: %w", cfg.DBPath, err))
	}
	cl = append(cl, store.Close)

	responses, err := orchestrator.NewResponseLog(store.DB())
	if err != nil {
		return fail(fmt.Errorf("init response log: %w", err))
	}

	tables := orchestrator.DefaultTables()
	if cfg.TemplatePath != "" {
		tables, err = orchestrator.LoadTables(cfg.TemplatePath)
		if err != nil {
			return fail(err)
		}
	}

	detector, closeDetector := NewDetector(cfg, log)
	cl = append(cl, closeDetector)

	backend, closeBackend, err := NewBackend(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	cl = append(cl, closeBackend)

	sink, closeSink := NewSink(ctx, cfg, log)
	cl = append(cl, closeSink)

	orch := orchestrator.New(tables, backend,
		orchestrator.WithLogger(log),
		orchestrator.WithTimeout(cfg.Generation.Timeout),
		orchestrator.WithQualityWeights(cfg.Quality),
		orchestrator.WithGeneration(cfg.Orchestration()),
		orchestrator.WithContextWindow(cfg.Detection.FollowUpWindow),
	)

	p := New(Deps{
		Store:        store,
		Detector:     detector,
		Orchestrator: orch,
		Responses:    responses,
		Sink:         sink,
		Window:       cfg.Detection.Window,
		Logger:       log,
	})
	return p, cl.Close, nil
}

// Store exposes the session store for read-only commands.
func (p *Pipeline) Store() *state.Store {
	return p.store
}

// Responses exposes the response log; nil when not configured.
func (p *Pipeline) Responses() *orchestrator.ResponseLog {
	return p.responses
}

// #endregion
