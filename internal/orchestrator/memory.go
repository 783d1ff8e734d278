package orchestrator

// #region imports
import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"
)

// #endregion

// #region schema

const generatedResponsesSchema = `
CREATE TABLE IF NOT EXISTS generated_responses (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    bundle_id     TEXT NOT NULL,
    session_id    TEXT NOT NULL,
    phase         TEXT NOT NULL,
    mode          TEXT NOT NULL,
    option_idx    INTEGER NOT NULL,
    response      TEXT NOT NULL,
    quality       REAL NOT NULL DEFAULT 0,
    degraded      INTEGER NOT NULL DEFAULT 0,
    model_used    TEXT NOT NULL,
    created_at    TEXT NOT NULL
);
`

const generatedResponsesIndex = `
CREATE INDEX IF NOT EXISTS idx_generated_responses_session
ON generated_responses(session_id, created_at);
`

// #endregion

// #region log-struct

// LoggedResponse is one persisted candidate reply.
type LoggedResponse struct {
	BundleID  string    `json:"bundle_id"`
	SessionID string    `json:"session_id"`
	Phase     string    `json:"phase"`
	Mode      Mode      `json:"mode"`
	OptionIdx int       `json:"option_idx"`
	Response  string    `json:"response"`
	Quality   float64   `json:"quality"`
	Degraded  bool      `json:"degraded"`
	ModelUsed string    `json:"model_used"`
	CreatedAt time.Time `json:"created_at"`
}

// ResponseLog persists produced options in SQLite.
type ResponseLog struct {
	db *sql.DB
}

// NewResponseLog initializes the generated_responses table and returns a ResponseLog.
func NewResponseLog(db *sql.DB) (*ResponseLog, error) {
	if _, err := db.Exec(generatedResponsesSchema); err != nil {
		return nil, err
	}
	if _, err := db.Exec(generatedResponsesIndex); err != nil {
		return nil, err
	}
	return &ResponseLog{db: db}, nil
}

// #endregion

// #region record

// Record persists every option in the bundle, one row per option.
func (l *ResponseLog) Record(ctx context.Context, b Bundle) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	created := b.CreatedAt.UTC().Format(time.RFC3339Nano)
	for _, r := range b.Results {
		for i, text := range r.Responses {
			degraded := 0
			if r.Degraded {
				degraded = 1
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO generated_responses
				(bundle_id, session_id, phase, mode, option_idx, response, quality, degraded, model_used, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				b.ID.String(), b.SessionID, string(b.Phase), string(r.Mode), i,
				text, r.Quality, degraded, b.ModelUsed, created,
			)
			if err != nil {
				return fmt.Errorf("insert response: %w", err)
			}
		}
	}
	return tx.Commit()
}

// #endregion

// #region recent

// Recent returns the newest rows for a session, newest first. An empty
// session id returns rows across all sessions.
func (l *ResponseLog) Recent(ctx context.Context, sessionID string, limit int) ([]LoggedResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT bundle_id, session_id, phase, mode, option_idx, response, quality, degraded, model_used, created_at
		FROM generated_responses
		WHERE (? = '' OR session_id = ?)
		ORDER BY id DESC
		LIMIT ?`,
		sessionID, sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LoggedResponse
	for rows.Next() {
		var (
			r        LoggedResponse
			mode     string
			degraded int
			created  string
		)
		if err := rows.Scan(&r.BundleID, &r.SessionID, &r.Phase, &mode, &r.OptionIdx,
			&r.Response, &r.Quality, &degraded, &r.ModelUsed, &created); err != nil {
			return nil, err
		}
		r.Mode = Mode(mode)
		r.Degraded = degraded == 1
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// #endregion

// #region mode-quality

// ModeQuality returns the decay-weighted mean quality of non-degraded
// generated options per mode for a phase. Modes with fewer than 3 samples are omitted.
func (l *ResponseLog) ModeQuality(ctx context.Context, phaseID string) (map[Mode]float64, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT mode, quality, created_at
		FROM generated_responses
		WHERE phase = ? AND degraded = 0 AND mode != ?`,
		phaseID, string(ModeTemplate),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type modeAccum struct {
		weightedSum float64
		totalWeight float64
		count       int
	}

	now := time.Now()
	halfLife := 7.0 * 24.0 // 7 days in hours
	accum := make(map[Mode]*modeAccum)

	for rows.Next() {
		var mode, createdAtStr string
		var quality float64
		if err := rows.Scan(&mode, &quality, &createdAtStr); err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
		if err != nil {
			continue
		}
		weight := math.Exp(-now.Sub(createdAt).Hours() / halfLife)

		a, ok := accum[Mode(mode)]
		if !ok {
			a = &modeAccum{}
			accum[Mode(mode)] = a
		}
		a.weightedSum += quality * weight
		a.totalWeight += weight
		a.count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[Mode]float64, len(accum))
	for m, a := range accum {
		if a.count < 3 || a.totalWeight == 0 {
			continue
		}
		out[m] = math.Round(a.weightedSum/a.totalWeight*100) / 100
	}
	return out, nil
}

// #endregion
