package orchestrator

// #region imports
import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// #endregion

// #region orchestrator-struct

// Orchestrator turns a detected phase and transcript into candidate replies.
// Modes run strictly in sequence; generation failures degrade to templates.
type Orchestrator struct {
	tables  *Tables
	backend Backend // nil when no generator is configured
	model   string
	weights QualityWeights
	gen     GenerationConfig
	window  int
	log     *zap.Logger
	now     func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l.Named("orchestrator")
		}
	}
}

// WithQualityWeights overrides the generated-text heuristic.
func WithQualityWeights(w QualityWeights) Option {
	return func(o *Orchestrator) { o.weights = w }
}

// WithGeneration overrides the sampling policy.
func WithGeneration(c GenerationConfig) Option {
	return func(o *Orchestrator) { o.gen = c }
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if g, ok := o.backend.(*Guard); ok {
			g.timeout = d
		}
	}
}

// WithContextWindow sets how many recent turns ground generation.
func WithContextWindow(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.window = n
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// #endregion

// #region constructor

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 60 * time.Second

// New creates an orchestrator. backend may be nil, in which case generative
// modes always fall back to templates. The backend is wrapped in a Guard.
// Tables without fallback templates borrow the embedded ones.
func New(tables *Tables, backend Backend, opts ...Option) *Orchestrator {
	switch {
	case tables == nil:
		tables = DefaultTables()
	case len(tables.FallbackTemplates) == 0:
		t := *tables
		t.FallbackTemplates = DefaultTables().FallbackTemplates
		tables = &t
	}
	o := &Orchestrator{
		tables:  tables,
		model:   "template",
		weights: DefaultQualityWeights(),
		gen:     DefaultGenerationConfig(),
		window:  transcript.FollowUpWindow,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	if backend != nil {
		g := NewGuard(backend, DefaultTimeout)
		o.backend = g
		o.model = g.Name()
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Tables returns the template tables in use.
func (o *Orchestrator) Tables() *Tables {
	return o.tables
}

// #endregion

// #region generate

// Generate runs the requested mode. The only error is ErrInvalidMode.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Bundle, error) {
	steps, err := plan(req.Mode, req.Options)
	if err != nil {
		return Bundle{}, err
	}

	id := req.Phase
	if !phase.Known(id) {
		id = phase.GeneralInquiry
	}
	info := phase.Lookup(id)
	rendered := req.Transcript.Tail(o.window).Render()

	b := Bundle{
		ID:                  uuid.New(),
		SessionID:           req.SessionID,
		Phase:               id,
		PhaseName:           info.DisplayName,
		Confidence:          req.Confidence,
		Mode:                req.Mode,
		RequiresHumanReview: phase.RequiresHuman(id),
		NextPhaseHint:       phase.NextHint(id),
		NextSteps:           phase.NextSteps(id),
		Warning:             phase.Warning(id),
		FollowUpQuestions:   firstN(o.tables.QuestionsFor(id), 3),
		ModelUsed:           o.model,
		CreatedAt:           o.now().UTC(),
	}
	if id == phase.GeneralInquiry {
		b.PhaseName = "General Inquiry"
	}

	var generated []string
	for _, s := range steps {
		res := o.runMode(ctx, s, id, info, rendered)
		o.log.Info("mode complete",
			zap.String("session_id", req.SessionID),
			zap.String("phase", string(id)),
			zap.String("mode", string(s.mode)),
			zap.Int("options", len(res.Responses)),
			zap.Bool("degraded", res.Degraded),
			zap.Float64("quality", res.Quality))

		b.Responses = append(b.Responses, res.Responses...)
		b.Degraded = b.Degraded || res.Degraded
		generated = append(generated, res.generated...)
		b.Results = append(b.Results, res)
	}
	b.Quality = ScoreResponses(generated, o.weights)
	return b, nil
}

// #endregion

// #region modes

func (o *Orchestrator) runMode(ctx context.Context, s step, id phase.ID, info phase.Info, rendered string) ModeResult {
	cfg := Modes[s.mode]
	res := ModeResult{Mode: s.mode, Name: cfg.Name, Description: cfg.Description}
	templates := o.tables.TemplatesFor(id)
	base := templates[0]

	var (
		out []string
		err error
	)
	switch s.mode {
	case ModeTemplate:
		res.Responses = firstN(templates, s.options)
		return res

	case ModePure:
		out, err = o.sampleVariants(ctx, purePrompt(info, rendered, o.gen.PureContextChars), s.options)

	case ModeHybrid:
		var text string
		text, err = o.generateOnce(ctx, hybridPrompt(base, rendered, o.gen.HybridContextChars), o.gen.temperature(0))
		if err == nil {
			out = []string{text}
		}

	case ModeSummary:
		var summary string
		summary, err = o.generateOnce(ctx, summaryPrompt(rendered, o.gen.SummaryContextChars), o.gen.temperature(0))
		if err == nil {
			res.Responses = []string{withSummary(base, summary)}
			res.generated = []string{summary}
			res.Generated = 1
			res.Quality = ScoreResponses(res.generated, o.weights)
			return res
		}
	}

	if err != nil {
		o.log.Warn("generation failed, using template",
			zap.String("mode", string(s.mode)), zap.Error(err))
		res.Responses = []string{base}
		res.Degraded = true
		res.Reason = err.Error()
		return res
	}

	res.Responses = out
	res.generated = out
	res.Generated = len(out)
	res.Quality = ScoreResponses(out, o.weights)
	return res
}

// #endregion
