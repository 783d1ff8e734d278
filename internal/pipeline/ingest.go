package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/state"
)

// #region transcript-file

// TranscriptFile is the JSON a chat scraper hands over for import.
type TranscriptFile struct {
	SessionID   string           `json:"session_id"`
	Platform    string           `json:"platform,omitempty"`
	Title       string           `json:"title,omitempty"`
	Participant string           `json:"participant,omitempty"`
	URL         string           `json:"url,omitempty"`
	Messages    []TranscriptLine `json:"messages"`
}

// TranscriptLine is one message in a TranscriptFile.
type TranscriptLine struct {
	ID        string    `json:"message_id,omitempty"`
	Role      string    `json:"role"`
	Sender    string    `json:"sender,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadTranscript decodes a TranscriptFile, rejecting unknown fields.
func ReadTranscript(r io.Reader) (TranscriptFile, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var f TranscriptFile
	if err := dec.Decode(&f); err != nil {
		return TranscriptFile{}, fmt.Errorf("%w: decode transcript: %v", ErrInvalidInput, err)
	}
	return f, nil
}

// #endregion

// #region ingest

// Ingest stores the session and its messages. Messages with blank text are
// skipped; messages already stored (by id) are not duplicated. A missing
// session id gets a fresh uuid.
func (p *Pipeline) Ingest(ctx context.Context, f TranscriptFile) (IngestOutcome, error) {
	out, err := p.ingest(ctx, f)
	out.Failure = failure(err)
	return out, err
}

func (p *Pipeline) ingest(ctx context.Context, f TranscriptFile) (IngestOutcome, error) {
	if f.SessionID == "" {
		f.SessionID = uuid.New().String()
	}
	out := IngestOutcome{SessionID: f.SessionID, Received: len(f.Messages)}

	msgs := make([]state.Message, 0, len(f.Messages))
	var first time.Time
	for i, m := range f.Messages {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		if m.Role == "" {
			return out, fmt.Errorf("%w: message %d has no role", ErrInvalidInput, i)
		}
		if first.IsZero() || (!m.Timestamp.IsZero() && m.Timestamp.Before(first)) {
			first = m.Timestamp
		}
		id := m.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", f.SessionID, i)
		}
		msgs = append(msgs, state.Message{
			SessionID:  f.SessionID,
			MessageID:  id,
			Sender:     m.Sender,
			SenderType: m.Role,
			Text:       strings.TrimSpace(m.Text),
			Timestamp:  m.Timestamp,
		})
	}

	err := p.store.UpsertSession(ctx, state.Session{
		ID:          f.SessionID,
		Platform:    f.Platform,
		Title:       f.Title,
		Participant: f.Participant,
		URL:         f.URL,
		StartedAt:   first,
	})
	if err != nil {
		return out, err
	}
	inserted, err := p.store.AppendMessages(ctx, f.SessionID, msgs)
	if err != nil {
		return out, err
	}
	out.Inserted = inserted

	p.log.Info("transcript ingested",
		zap.String("session_id", f.SessionID),
		zap.Int("received", out.Received),
		zap.Int("inserted", inserted))
	return out, nil
}

// #endregion
