package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// GetAIUsage returns the stored AI counter of a user. A user who never used
// the analyzer has an empty day and a zero count.
func (s *SQLiteStore) GetAIUsage(ctx context.Context, userID string) (string, int, error) {
	var (
		day   string
		count int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT day, count FROM ai_usage WHERE user_id = ?`, userID).Scan(&day, &count)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to get ai usage: %w", err)
	}
	return day, count, nil
}

// SetAIUsage upserts the AI counter of a user.
func (s *SQLiteStore) SetAIUsage(ctx context.Context, userID, day string, count int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_usage (user_id, day, count) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET day = excluded.day, count = excluded.count`,
		userID, day, count)
	if err != nil {
		return fmt.Errorf("failed to set ai usage: %w", err)
	}
	return nil
}
