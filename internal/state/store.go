package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/phase"
	"github.com/danielpatrickdp/phase-negotiator/go-controller/internal/transcript"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	session_id        TEXT PRIMARY KEY,
	platform          TEXT NOT NULL DEFAULT 'upwork',
	title             TEXT,
	participant       TEXT,
	url               TEXT,
	started_at        TEXT NOT NULL,
	last_activity     TEXT NOT NULL,
	total_messages    INTEGER NOT NULL DEFAULT 0,
	status            TEXT NOT NULL DEFAULT 'active',
	phase             TEXT,
	phase_confidence  REAL,
	phase_updated_at  TEXT
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT NOT NULL,
	message_id     TEXT NOT NULL UNIQUE,
	sender         TEXT,
	sender_type    TEXT NOT NULL,
	message_text   TEXT NOT NULL,
	timestamp      TEXT NOT NULL,
	message_order  INTEGER NOT NULL,
	FOREIGN KEY (session_id) REFERENCES chat_sessions(session_id)
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_order
ON chat_messages(session_id, message_order);

CREATE TABLE IF NOT EXISTS detection_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	phase         TEXT NOT NULL,
	confidence    REAL NOT NULL,
	method        TEXT NOT NULL,
	context_hash  TEXT,
	turns         INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES chat_sessions(session_id)
);
`
// #endregion schema

// #region store-struct
// Store persists sessions, messages and detected phases in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region upsert-session
// UpsertSession creates the session or refreshes its descriptive fields.
// A stored phase is never touched here.
func (s *Store) UpsertSession(ctx context.Context, sess Session) error {
	if sess.ID == "" {
		return fmt.Errorf("upsert session: empty id")
	}
	now := time.Now().UTC()
	if sess.StartedAt.IsZero() {
		sess.StartedAt = now
	}
	if sess.LastActivity.IsZero() {
		sess.LastActivity = sess.StartedAt
	}
	if sess.Platform == "" {
		sess.Platform = "upwork"
	}
	if sess.Status == "" {
		sess.Status = "active"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (session_id, platform, title, participant, url, started_at, last_activity, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			platform      = excluded.platform,
			title         = COALESCE(excluded.title, chat_sessions.title),
			participant   = COALESCE(excluded.participant, chat_sessions.participant),
			url           = COALESCE(excluded.url, chat_sessions.url),
			last_activity = MAX(chat_sessions.last_activity, excluded.last_activity),
			status        = excluded.status`,
		sess.ID, sess.Platform, nullIfEmpty(sess.Title), nullIfEmpty(sess.Participant), nullIfEmpty(sess.URL),
		formatTime(sess.StartedAt), formatTime(sess.LastActivity), sess.Status,
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", sess.ID, err)
	}
	return nil
}
// #endregion upsert-session

// #region append-messages
// AppendMessages stores messages in order, skipping message ids already
// present. It returns how many rows were inserted.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, msgs []Message) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var order int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(message_order), -1) + 1 FROM chat_messages WHERE session_id = ?`, sessionID,
	).Scan(&order); err != nil {
		return 0, fmt.Errorf("next order: %w", err)
	}

	inserted := 0
	var latest time.Time
	for _, m := range msgs {
		if m.MessageID == "" {
			m.MessageID = uuid.New().String()
		}
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now().UTC()
		}
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO chat_messages
			(session_id, message_id, sender, sender_type, message_text, timestamp, message_order)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, m.MessageID, nullIfEmpty(m.Sender), string(transcript.ParseRole(m.SenderType)),
			m.Text, formatTime(m.Timestamp), order,
		)
		if err != nil {
			return 0, fmt.Errorf("insert message: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
			order++
			if m.Timestamp.After(latest) {
				latest = m.Timestamp
			}
		}
	}

	if inserted > 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE chat_sessions
			SET total_messages = total_messages + ?,
			    last_activity  = MAX(last_activity, ?)
			WHERE session_id = ?`,
			inserted, formatTime(latest), sessionID,
		)
		if err != nil {
			return 0, fmt.Errorf("update session counters: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}
// #endregion append-messages

// #region get-session
const sessionColumns = `session_id, platform, COALESCE(title, ''), COALESCE(participant, ''), COALESCE(url, ''),
	started_at, last_activity, total_messages, status,
	COALESCE(phase, ''), COALESCE(phase_confidence, 0), phase_updated_at`

// GetSession reads one session.
func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM chat_sessions WHERE session_id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, err
}

// LatestSession returns the active session with the most recent activity.
// ok is false when there is no active session.
func (s *Store) LatestSession(ctx context.Context) (Session, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM chat_sessions
		WHERE status = 'active'
		ORDER BY last_activity DESC, rowid DESC
		LIMIT 1`)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	return sess, true, nil
}

// ListSessions returns up to limit sessions, most recently active first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM chat_sessions
		ORDER BY last_activity DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}
// #endregion get-session

// #region recent-messages
// RecentMessages returns the last limit messages in insertion order, which is
// the conversation's chronological order. Timestamps are data only.
// limit <= 0 returns every message.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) (transcript.Transcript, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sender_type, message_text, timestamp
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY message_order DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var out transcript.Transcript
	for rows.Next() {
		var senderType, text, ts string
		if err := rows.Scan(&senderType, &text, &ts); err != nil {
			return nil, err
		}
		out = append(out, transcript.Turn{
			Role:      transcript.ParseRole(senderType),
			Text:      text,
			Timestamp: parseTime(ts),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query is newest first; callers expect chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
// #endregion recent-messages

// #region phase
// UpdateSessionPhase stores the latest detection. It reports false when the
// session does not exist.
func (s *Store) UpdateSessionPhase(ctx context.Context, sessionID string, id phase.ID, confidence float64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chat_sessions
		SET phase = ?, phase_confidence = ?, phase_updated_at = ?
		WHERE session_id = ?`,
		string(id), confidence, formatTime(time.Now().UTC()), sessionID,
	)
	if err != nil {
		return false, fmt.Errorf("update phase: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update phase: %w", err)
	}
	return n > 0, nil
}

// SessionWithPhase returns the stored phase record. The record is nil when no
// detection has been stored; ErrSessionNotFound is returned for unknown ids.
func (s *Store) SessionWithPhase(ctx context.Context, sessionID string) (*PhaseRecord, error) {
	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Phase == "" || sess.PhaseUpdatedAt == nil {
		return nil, nil
	}
	return &PhaseRecord{
		SessionID:  sess.ID,
		Phase:      sess.Phase,
		Confidence: sess.PhaseConfidence,
		UpdatedAt:  *sess.PhaseUpdatedAt,
	}, nil
}
// #endregion phase

// #region helpers
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (Session, error) {
	var (
		sess              Session
		started, last, ph string
		phaseUpdated      sql.NullString
	)
	err := r.Scan(&sess.ID, &sess.Platform, &sess.Title, &sess.Participant, &sess.URL,
		&started, &last, &sess.TotalMessages, &sess.Status,
		&ph, &sess.PhaseConfidence, &phaseUpdated)
	if err != nil {
		return Session{}, err
	}
	sess.StartedAt = parseTime(started)
	sess.LastActivity = parseTime(last)
	sess.Phase = phase.ID(ph)
	if phaseUpdated.Valid {
		t := parseTime(phaseUpdated.String)
		sess.PhaseUpdatedAt = &t
	}
	return sess, nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
