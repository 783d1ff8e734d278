package dashboard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/orchestrator"
)

// #region document

// Document is the JSON shape external dashboards read.
type Document struct {
	ID                  string                                        `json:"id"`
	SessionID           string                                        `json:"session_id"`
	Phase               string                                        `json:"phase"`
	PhaseName           string                                        `json:"phase_name"`
	NextPhase           string                                        `json:"next_phase,omitempty"`
	Confidence          float64                                       `json:"confidence"`
	DetectionMethod     string                                        `json:"detection_method,omitempty"`
	ModelUsed           string                                        `json:"model_used"`
	SuggestionType      string                                        `json:"suggestion_type"`
	Responses           []string                                      `json:"responses,omitempty"`
	TemplateResponse    string                                        `json:"template_response,omitempty"`
	AIResponse          string                                        `json:"ai_response,omitempty"`
	AllModes            map[orchestrator.Mode]orchestrator.ModeResult `json:"all_modes,omitempty"`
	TotalOptions        int                                           `json:"total_options"`
	Quality             float64                                       `json:"quality"`
	RequiresHumanReview bool                                          `json:"requires_human_review"`
	Warning             string                                        `json:"warning,omitempty"`
	FollowUpQuestions   []string                                      `json:"follow_up_questions,omitempty"`
	CreatedAt           time.Time                                     `json:"created_at"`
}

// FromBundle maps an orchestration result onto a dashboard document.
// The both-mode pair is split into template_response and ai_response;
// all-mode results are keyed by mode.
func FromBundle(b orchestrator.Bundle) Document {
	doc := Document{
		ID:                  b.ID.String(),
		SessionID:           b.SessionID,
		Phase:               string(b.Phase),
		PhaseName:           b.PhaseName,
		NextPhase:           b.NextPhaseHint,
		Confidence:          b.Confidence,
		ModelUsed:           b.ModelUsed,
		SuggestionType:      suggestionType(b.Mode),
		TotalOptions:        len(b.Responses),
		Quality:             b.Quality,
		RequiresHumanReview: b.RequiresHumanReview,
		Warning:             b.Warning,
		FollowUpQuestions:   b.FollowUpQuestions,
		CreatedAt:           b.CreatedAt,
	}

	switch b.Mode {
	case orchestrator.ModeBoth:
		if r, ok := b.Result(orchestrator.ModeTemplate); ok && len(r.Responses) > 0 {
			doc.TemplateResponse = r.Responses[0]
		}
		if r, ok := b.Result(orchestrator.ModePure); ok && len(r.Responses) > 0 {
			doc.AIResponse = r.Responses[0]
		}
	case orchestrator.ModeAll:
		doc.AllModes = make(map[orchestrator.Mode]orchestrator.ModeResult, len(b.Results))
		for _, r := range b.Results {
			doc.AllModes[r.Mode] = r
		}
	default:
		doc.Responses = b.Responses
	}
	return doc
}

func suggestionType(m orchestrator.Mode) string {
	switch m {
	case orchestrator.ModeAll:
		return "all-modes-combined"
	case orchestrator.ModeBoth:
		return "template-and-ai"
	default:
		return string(m)
	}
}

// #endregion

// #region sink

// Sink publishes dashboard documents.
type Sink interface {
	Publish(ctx context.Context, doc Document) error
}

type multiSink []Sink

// Multi fans a document out to every sink. All sinks are attempted.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Publish(ctx context.Context, doc Document) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes and only logs failures. Dashboard writes never fail a caller.
func Emit(ctx context.Context, sink Sink, doc Document, log *zap.Logger) {
	if sink == nil {
		return
	}
	if err := sink.Publish(ctx, doc); err != nil && log != nil {
		log.Warn("dashboard publish failed",
			zap.String("session_id", doc.SessionID), zap.Error(err))
	}
}

// #endregion
