package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/dashboard"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/detect"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/logging"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/orchestrator"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/state"
)

type replyBackend struct {
	reply string
	calls int
}

func (b *replyBackend) Complete(context.Context, string, int, float64) (string, error) {
	b.calls++
	return b.reply, nil
}

type fixture struct {
	p         *Pipeline
	store     *state.Store
	responses *orchestrator.ResponseLog
	backend   *replyBackend
	dashPath  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := state.NewStore(filepath.Join(dir, "negotiator.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	responses, err := orchestrator.NewResponseLog(store.DB())
	require.NoError(t, err)

	backend := &replyBackend{reply: "Sure, I can start on Monday and send the first draft by Friday."}
	dashPath := filepath.Join(dir, "dashboard.json")
	p := New(Deps{
		Store:        store,
		Detector:     detect.NewHybridDetector(detect.Options{}),
		Orchestrator: orchestrator.New(nil, backend),
		Responses:    responses,
		Sink:         dashboard.NewFileSink(dashPath),
	})
	return fixture{p: p, store: store, responses: responses, backend: backend, dashPath: dashPath}
}

func (f fixture) ingest(t *testing.T, id string, texts ...string) {
	t.Helper()
	tf := TranscriptFile{SessionID: id, Title: "Dutch copywriter"}
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, text := range texts {
		tf.Messages = append(tf.Messages, TranscriptLine{Role: "other", Text: text, Timestamp: at.Add(time.Duration(i) * time.Minute)})
	}
	out, err := f.p.Ingest(context.Background(), tf)
	require.NoError(t, err)
	require.True(t, out.Success)
}

func TestDetectSessionStoresPhase(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "s1", "Our budget is $0.06 per word. Does that work?")
	ctx := context.Background()

	out, err := f.p.DetectSession(ctx, LatestSession)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "s1", out.SessionID)
	assert.Equal(t, phase.RateNegotiation, out.Phase)
	assert.Equal(t, 0.2222, out.Confidence)
	assert.Equal(t, phase.MethodKeyword, out.Method)
	assert.True(t, out.Stored)
	assert.Equal(t, 1, out.Turns)

	rec, err := f.store.SessionWithPhase(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, phase.RateNegotiation, rec.Phase)

	rows, err := logging.RecentDetections(ctx, f.store.DB(), "s1", 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "keyword_matching", rows[0].Method)
	assert.Len(t, rows[0].ContextHash, 16)
}

func TestDetectSessionFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.p.DetectSession(ctx, LatestSession)
	require.ErrorIs(t, err, ErrNoActiveSession)
	assert.False(t, out.Success)
	assert.Equal(t, KindNoActiveSession, out.Kind)

	out, err = f.p.DetectSession(ctx, "missing")
	require.ErrorIs(t, err, ErrUnknownSession)
	assert.Equal(t, KindUnknownSession, out.Kind)

	require.NoError(t, f.store.UpsertSession(ctx, state.Session{ID: "empty"}))
	out, err = f.p.DetectSession(ctx, "empty")
	require.ErrorIs(t, err, ErrNoContext)
	assert.Equal(t, KindNoContext, out.Kind)
	assert.NotEmpty(t, out.Error)
}

func TestRespondRequiresDetection(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "s1", "Hello! Are you available?")

	out, err := f.p.Respond(context.Background(), "s1", orchestrator.ModeTemplate, 0)
	require.ErrorIs(t, err, ErrPhaseNotDetected)
	assert.False(t, out.Success)
	assert.Equal(t, KindPhaseNotDetected, out.Kind)
	assert.Nil(t, out.Bundle)
}

func TestRespondInvalidMode(t *testing.T) {
	f := newFixture(t)
	out, err := f.p.Respond(context.Background(), "s1", orchestrator.Mode("poem"), 0)
	require.ErrorIs(t, err, orchestrator.ErrInvalidMode)
	assert.Equal(t, KindInvalidMode, out.Kind)
}

func TestRespondTemplateFromStoredPhase(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "s1", "Can you explain what RTP means")
	ctx := context.Background()
	_, err := f.p.DetectSession(ctx, "s1")
	require.NoError(t, err)

	out, err := f.p.Respond(ctx, LatestSession, orchestrator.ModeTemplate, 0)
	require.NoError(t, err)
	require.True(t, out.Success)
	require.NotNil(t, out.Bundle)
	assert.Equal(t, phase.KnowledgeCheck, out.Bundle.Phase)
	assert.True(t, out.Bundle.RequiresHumanReview)
	assert.NotEmpty(t, out.Bundle.Warning)
	assert.Len(t, out.Bundle.Responses, 3)
	assert.Equal(t, "keyword_matching", out.DetectionMethod)
	assert.Zero(t, f.backend.calls)

	logged, err := f.responses.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Len(t, logged, 3)

	raw, err := os.ReadFile(f.dashPath)
	require.NoError(t, err)
	var doc dashboard.Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "knowledge_check", doc.Phase)
	assert.Equal(t, "template", doc.SuggestionType)
	assert.Equal(t, "keyword_matching", doc.DetectionMethod)
}

func TestRunBothMode(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "s1", "Our budget is $0.06 per word. Does that work?")

	out, err := f.p.Run(context.Background(), "s1", orchestrator.ModeBoth, 0)
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.Equal(t, phase.RateNegotiation, out.Detect.Phase)
	require.NotNil(t, out.Respond)
	require.NotNil(t, out.Respond.Bundle)
	assert.Len(t, out.Respond.Bundle.Results, 2)
	assert.Equal(t, 1, f.backend.calls)

	raw, err := os.ReadFile(f.dashPath)
	require.NoError(t, err)
	var doc dashboard.Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "template-and-ai", doc.SuggestionType)
	assert.NotEmpty(t, doc.TemplateResponse)
	assert.True(t, strings.HasPrefix(doc.AIResponse, "Sure, I can start on Monday"))
}

func TestRunStopsAfterFailedDetection(t *testing.T) {
	f := newFixture(t)
	out, err := f.p.Run(context.Background(), LatestSession, orchestrator.ModeTemplate, 0)
	require.ErrorIs(t, err, ErrNoActiveSession)
	assert.False(t, out.Success)
	assert.Nil(t, out.Respond)
}

func TestIngestDeduplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tf, err := ReadTranscript(strings.NewReader(`{
		"session_id": "s9",
		"title": "SEO articles",
		"messages": [
			{"message_id": "m1", "role": "other", "text": "Hello! Are you available?"},
			{"message_id": "m2", "role": "self", "text": "Yes, happy to help."},
			{"role": "other", "text": "   "}
		]
	}`))
	require.NoError(t, err)

	out, err := f.p.Ingest(ctx, tf)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Received)
	assert.Equal(t, 2, out.Inserted)

	out, err = f.p.Ingest(ctx, tf)
	require.NoError(t, err)
	assert.Zero(t, out.Inserted)

	sess, err := f.store.GetSession(ctx, "s9")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.TotalMessages)
}

func TestIngestRejectsBadInput(t *testing.T) {
	_, err := ReadTranscript(strings.NewReader(`{"session": "x"}`))
	require.ErrorIs(t, err, ErrInvalidInput)

	f := newFixture(t)
	out, err := f.p.Ingest(context.Background(), TranscriptFile{
		SessionID: "s1",
		Messages:  []TranscriptLine{{Text: "no role"}},
	})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, KindInvalidInput, out.Kind)
}
