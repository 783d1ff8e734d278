package logging

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// #region log-detection
// LogDetection writes a provenance entry to the detection_log table.
func LogDetection(ctx context.Context, db *sql.DB, entry DetectionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO detection_log (session_id, phase, confidence, method, context_hash, turns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Phase,
		entry.Confidence,
		entry.Method,
		nullIfEmpty(entry.ContextHash),
		entry.Turns,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log detection: %w", err)
	}
	return nil
}

// RecentDetections returns the newest detection rows for a session.
func RecentDetections(ctx context.Context, db *sql.DB, sessionID string, limit int) ([]DetectionEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx,
		`SELECT session_id, phase, confidence, method, COALESCE(context_hash, ''), turns, created_at
		 FROM detection_log WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent detections: %w", err)
	}
	defer rows.Close()

	var out []DetectionEntry
	for rows.Next() {
		var e DetectionEntry
		var created string
		if err := rows.Scan(&e.SessionID, &e.Phase, &e.Confidence, &e.Method, &e.ContextHash, &e.Turns, &created); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion log-detection

// #region helpers
// ContextHash fingerprints the rendered transcript a detection saw.
func ContextHash(rendered string) string {
	sum := sha256.Sum256([]byte(rendered))
	return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
