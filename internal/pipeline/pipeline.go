package pipeline

// #region imports
import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/dashboard"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/detect"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/logging"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/state"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// #endregion

// #region pipeline

// Deps wires a Pipeline. Responses and Sink are optional.
type Deps struct {
	Store        *state.Store
	Detector     *detect.HybridDetector
	Orchestrator *orchestrator.Orchestrator
	Responses    *orchestrator.ResponseLog
	Sink         dashboard.Sink
	// Window is how many recent turns detection sees. <= 0 uses transcript.DetectionWindow.
	Window int
	Logger *zap.Logger
}

// Pipeline coordinates the store, the detector and the orchestrator.
type Pipeline struct {
	store     *state.Store
	detector  *detect.HybridDetector
	orch      *orchestrator.Orchestrator
	responses *orchestrator.ResponseLog
	sink      dashboard.Sink
	window    int
	log       *zap.Logger
}

// New builds a Pipeline from d.
func New(d Deps) *Pipeline {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	window := d.Window
	if window <= 0 {
		window = transcript.DetectionWindow
	}
	return &Pipeline{
		store:     d.Store,
		detector:  d.Detector,
		orch:      d.Orchestrator,
		responses: d.Responses,
		sink:      d.Sink,
		window:    window,
		log:       log.Named("pipeline"),
	}
}

// #endregion

// #region resolve

// resolve turns "latest" or an explicit id into a stored session.
func (p *Pipeline) resolve(ctx context.Context, ref string) (state.Session, error) {
	if ref == "" || ref == LatestSession {
		sess, ok, err := p.store.LatestSession(ctx)
		if err != nil {
			return state.Session{}, err
		}
		if !ok {
			return state.Session{}, ErrNoActiveSession
		}
		return sess, nil
	}
	sess, err := p.store.GetSession(ctx, ref)
	if errors.Is(err, state.ErrSessionNotFound) {
		return state.Session{}, fmt.Errorf("%w: %s", ErrUnknownSession, ref)
	}
	return sess, err
}

// #endregion

// #region detect

// DetectSession detects the phase of a session's recent turns and stores it.
func (p *Pipeline) DetectSession(ctx context.Context, ref string) (DetectOutcome, error) {
	out, err := p.detectSession(ctx, ref)
	out.Failure = failure(err)
	if err != nil {
		p.log.Warn("detect failed", zap.String("session", ref), zap.String("kind", out.Kind), zap.Error(err))
	}
	return out, err
}

func (p *Pipeline) detectSession(ctx context.Context, ref string) (DetectOutcome, error) {
	out := DetectOutcome{SessionID: ref}
	sess, err := p.resolve(ctx, ref)
	if err != nil {
		return out, err
	}
	out.SessionID = sess.ID

	turns, err := p.store.RecentMessages(ctx, sess.ID, p.window)
	if err != nil {
		return out, err
	}
	if turns.IsEmpty() {
		return out, fmt.Errorf("%w: session %s has no messages", ErrNoContext, sess.ID)
	}

	res := p.detector.Detect(ctx, turns)
	info := phase.Lookup(res.Phase)
	out.Phase = res.Phase
	out.PhaseName = info.DisplayName
	out.Confidence = res.Confidence
	out.Method = res.Method
	out.RequiresHuman = info.RequiresHuman
	out.NextPhase = phase.NextHint(res.Phase)
	out.Turns = len(turns)

	stored, err := p.store.UpdateSessionPhase(ctx, sess.ID, res.Phase, res.Confidence)
	if err != nil {
		return out, err
	}
	out.Stored = stored

	entry := logging.DetectionEntry{
		SessionID:   sess.ID,
		Phase:       string(res.Phase),
		Confidence:  res.Confidence,
		Method:      string(res.Method),
		ContextHash: logging.ContextHash(turns.Render()),
		Turns:       len(turns),
	}
	if err := logging.LogDetection(ctx, p.store.DB(), entry); err != nil {
		p.log.Warn("detection provenance not written", zap.Error(err))
	}

	p.log.Info("phase detected",
		zap.String("session_id", sess.ID),
		zap.String("phase", string(res.Phase)),
		zap.Float64("confidence", res.Confidence),
		zap.String("method", string(res.Method)),
		zap.Int("turns", len(turns)))
	return out, nil
}

// #endregion

// #region respond

// Respond generates candidate replies from the session's stored phase.
// Detection must have run first.
func (p *Pipeline) Respond(ctx context.Context, ref string, mode orchestrator.Mode, options int) (RespondOutcome, error) {
	out, err := p.respond(ctx, ref, mode, options)
	out.Failure = failure(err)
	if err != nil {
		p.log.Warn("respond failed", zap.String("session", ref), zap.String("kind", out.Kind), zap.Error(err))
	}
	return out, err
}

func (p *Pipeline) respond(ctx context.Context, ref string, mode orchestrator.Mode, options int) (RespondOutcome, error) {
	out := RespondOutcome{SessionID: ref}
	mode, err := orchestrator.ParseMode(string(mode))
	if err != nil {
		return out, err
	}
	sess, err := p.resolve(ctx, ref)
	if err != nil {
		return out, err
	}
	out.SessionID = sess.ID

	rec, err := p.store.SessionWithPhase(ctx, sess.ID)
	if err != nil {
		return out, err
	}
	if rec == nil {
		return out, fmt.Errorf("%w: session %s", ErrPhaseNotDetected, sess.ID)
	}

	// Template output does not depend on the transcript.
	var turns transcript.Transcript
	if mode != orchestrator.ModeTemplate {
		turns, err = p.store.RecentMessages(ctx, sess.ID, p.window)
		if err != nil {
			return out, err
		}
	}

	b, err := p.orch.Generate(ctx, orchestrator.Request{
		SessionID:  sess.ID,
		Phase:      rec.Phase,
		Confidence: rec.Confidence,
		Transcript: turns,
		Mode:       mode,
		Options:    options,
	})
	if err != nil {
		return out, err
	}
	out.Bundle = &b

	if recent, err := logging.RecentDetections(ctx, p.store.DB(), sess.ID, 1); err == nil && len(recent) > 0 {
		out.DetectionMethod = recent[0].Method
	}

	doc := dashboard.FromBundle(b)
	doc.DetectionMethod = out.DetectionMethod
	dashboard.Emit(ctx, p.sink, doc, p.log)

	if p.responses != nil {
		if err := p.responses.Record(ctx, b); err != nil {
			p.log.Warn("response log not written", zap.Error(err))
		}
	}
	return out, nil
}

// #endregion

// #region run

// Run detects and stores the phase, then responds from it.
func (p *Pipeline) Run(ctx context.Context, ref string, mode orchestrator.Mode, options int) (RunOutcome, error) {
	var out RunOutcome
	det, err := p.DetectSession(ctx, ref)
	out.Detect = det
	if err != nil {
		out.Failure = det.Failure
		return out, err
	}

	resp, err := p.Respond(ctx, det.SessionID, mode, options)
	out.Respond = &resp
	out.Failure = resp.Failure
	return out, err
}

// #endregion
