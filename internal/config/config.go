package config

// #region imports
import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/detect"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// #endregion

// #region types

// Generation providers.
const (
	ProviderGRPC   = "grpc"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "negotiator.yaml"

// Config holds every tunable of the negotiator.
type Config struct {
	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Detection  DetectionConfig             `yaml:"detection"`
	Generation GenerationConfig            `yaml:"generation"`
	Quality    orchestrator.QualityWeights `yaml:"quality"`
	Dashboard  DashboardConfig             `yaml:"dashboard"`

	// TemplatePath points at a templates YAML. Empty uses the embedded tables.
	TemplatePath string `yaml:"template_path"`
}

// DetectionConfig tunes the phase detector.
type DetectionConfig struct {
	ClassifierDir   string  `yaml:"classifier_dir"`
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	Window          int     `yaml:"window"`
	FollowUpWindow  int     `yaml:"follow_up_window"`
}

// GenerationConfig selects and tunes the text backend.
type GenerationConfig struct {
	Provider         string        `yaml:"provider"`
	ModelServiceAddr string        `yaml:"model_service_addr"`
	GeminiAPIKey     string        `yaml:"gemini_api_key"`
	GeminiModel      string        `yaml:"gemini_model"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxNewTokens     int           `yaml:"max_new_tokens"`
	Temperatures     []float64     `yaml:"temperatures"`
}

// DashboardConfig lists the sinks bundles are published to. Empty fields disable a sink.
type DashboardConfig struct {
	File         string `yaml:"file"`
	RedisAddr    string `yaml:"redis_addr"`
	RedisChannel string `yaml:"redis_channel"`
}

// #endregion

// #region defaults

// Default returns the built-in configuration.
func Default() Config {
	gen := orchestrator.DefaultGenerationConfig()
	return Config{
		DBPath:    "negotiator.db",
		LogLevel:  "info",
		LogFormat: "console",
		Detection: DetectionConfig{
			ConfidenceFloor: detect.DefaultFloor,
			Window:          transcript.DetectionWindow,
			FollowUpWindow:  transcript.FollowUpWindow,
		},
		Generation: GenerationConfig{
			Provider:         ProviderGRPC,
			ModelServiceAddr: "localhost:50051",
			GeminiModel:      "gemini-2.0-flash",
			Timeout:          orchestrator.DefaultTimeout,
			MaxNewTokens:     gen.MaxNewTokens,
			Temperatures:     gen.Temperatures,
		},
		Quality: orchestrator.DefaultQualityWeights(),
	}
}

// #endregion

// #region load

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// applyEnv reads NEGOTIATOR_DB, MODEL_SERVICE_ADDR, CLASSIFIER_DIR,
// GENERATION_PROVIDER, GEMINI_API_KEY, GENERATION_TIMEOUT, REDIS_ADDR,
// REDIS_CHANNEL, DASHBOARD_FILE, LOG_LEVEL and CONFIDENCE_FLOOR.
func (c *Config) applyEnv() error {
	setString(&c.DBPath, "NEGOTIATOR_DB")
	setString(&c.Generation.ModelServiceAddr, "MODEL_SERVICE_ADDR")
	setString(&c.Detection.ClassifierDir, "CLASSIFIER_DIR")
	setString(&c.Generation.Provider, "GENERATION_PROVIDER")
	setString(&c.Generation.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.Dashboard.RedisAddr, "REDIS_ADDR")
	setString(&c.Dashboard.RedisChannel, "REDIS_CHANNEL")
	setString(&c.Dashboard.File, "DASHBOARD_FILE")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("GENERATION_TIMEOUT"); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("GENERATION_TIMEOUT: %w", err)
		}
		c.Generation.Timeout = d
	}
	if v := os.Getenv("CONFIDENCE_FLOOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CONFIDENCE_FLOOR: %w", err)
		}
		c.Detection.ConfidenceFloor = f
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// parseTimeout accepts a Go duration or a bare number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// #endregion

// #region validate

// Validate rejects out-of-range tunables.
func (c Config) Validate() error {
	var errs []error
	if c.Detection.ConfidenceFloor <= 0 || c.Detection.ConfidenceFloor > 1 {
		errs = append(errs, fmt.Errorf("confidence_floor %.3f outside (0,1]", c.Detection.ConfidenceFloor))
	}
	if c.Detection.Window < 1 {
		errs = append(errs, fmt.Errorf("detection window %d < 1", c.Detection.Window))
	}
	if c.Detection.FollowUpWindow < 1 {
		errs = append(errs, fmt.Errorf("follow_up_window %d < 1", c.Detection.FollowUpWindow))
	}

	q := c.Quality
	for name, w := range map[string]float64{"base": q.Base, "length": q.Length, "punctuation": q.Punctuation, "words": q.Words} {
		if w < 0 || w > 1 {
			errs = append(errs, fmt.Errorf("quality %s weight %.3f outside [0,1]", name, w))
		}
	}
	if q.MinChars > q.MaxChars {
		errs = append(errs, fmt.Errorf("quality min_chars %d > max_chars %d", q.MinChars, q.MaxChars))
	}
	if q.MinWords > q.MaxWords {
		errs = append(errs, fmt.Errorf("quality min_words %d > max_words %d", q.MinWords, q.MaxWords))
	}

	switch strings.ToLower(c.Generation.Provider) {
	case ProviderGRPC:
		if c.Generation.ModelServiceAddr == "" {
			errs = append(errs, errors.New("grpc provider needs model_service_addr"))
		}
	case ProviderGemini:
		if c.Generation.GeminiAPIKey == "" {
			errs = append(errs, errors.New("gemini provider needs gemini_api_key"))
		}
	case ProviderNone:
	default:
		errs = append(errs, fmt.Errorf("unknown generation provider %q", c.Generation.Provider))
	}
	if c.Generation.Timeout < 0 {
		errs = append(errs, fmt.Errorf("generation timeout %s is negative", c.Generation.Timeout))
	}
	if c.Generation.MaxNewTokens < 1 {
		errs = append(errs, fmt.Errorf("max_new_tokens %d < 1", c.Generation.MaxNewTokens))
	}
	for _, t := range c.Generation.Temperatures {
		if t < 0 || t > 2 {
			errs = append(errs, fmt.Errorf("temperature %.2f outside [0,2]", t))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Orchestration returns the sampling policy for the orchestrator.
func (c Config) Orchestration() orchestrator.GenerationConfig {
	gen := orchestrator.DefaultGenerationConfig()
	gen.MaxNewTokens = c.Generation.MaxNewTokens
	if len(c.Generation.Temperatures) > 0 {
		gen.Temperatures = c.Generation.Temperatures
	}
	return gen
}

// #endregion
