package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/detect"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/state"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

func TestFixtureModePasses(t *testing.T) {
	var buf bytes.Buffer
	det := detect.NewHybridDetector(detect.Options{})
	path := filepath.Join("..", "..", "internal", "replay", "testdata", "negotiations.json")

	if err := runFixtureMode(context.Background(), &buf, path, det.Detect); err != nil {
		t.Fatalf("runFixtureMode: %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "all checks passed") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestFixtureModeMissingFile(t *testing.T) {
	det := detect.NewHybridDetector(detect.Options{})
	err := runFixtureMode(context.Background(), &bytes.Buffer{}, filepath.Join(t.TempDir(), "none.json"), det.Detect)
	var e *exitError
	if !errors.As(err, &e) || e.code != 2 {
		t.Fatalf("err = %v, want exit code 2", err)
	}
}

func TestDBModeDetectsDrift(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "n.db")
	store, err := state.NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	seed := func(id, text string, stored phase.ID) {
		if err := store.UpsertSession(ctx, state.Session{ID: id}); err != nil {
			t.Fatal(err)
		}
		if _, err := store.AppendMessages(ctx, id, []state.Message{{MessageID: id + "-1", SenderType: "other", Text: text}}); err != nil {
			t.Fatal(err)
		}
		if _, err := store.UpdateSessionPhase(ctx, id, stored, 0.5); err != nil {
			t.Fatal(err)
		}
	}
	seed("agree", "Can you explain what RTP means", phase.KnowledgeCheck)
	seed("drift", "Can you explain what RTP means", phase.AskDetails)
	store.Close()

	var buf bytes.Buffer
	det := detect.NewHybridDetector(detect.Options{})
	err = runDBMode(ctx, &buf, path, transcript.DetectionWindow, 10, det.Detect, zap.NewNop())
	var e *exitError
	if !errors.As(err, &e) || e.code != 1 {
		t.Fatalf("err = %v, want exit code 1\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "DIFF") {
		t.Errorf("expected a DIFF row:\n%s", buf.String())
	}
}
