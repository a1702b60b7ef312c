package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/nbbang/internal/models"
	"github.com/mmynk/nbbang/internal/storage"
)

const meetingColumns = `id, uuid, owner_id, name, date, is_trip, is_simple, is_ai, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (*models.Meeting, error) {
	m := &models.Meeting{}
	err := row.Scan(&m.ID, &m.UUID, &m.OwnerID, &m.Name, &m.Date, &m.IsTrip, &m.IsSimple, &m.IsAI, &m.CreatedAt)
	return m, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateMeeting persists a new meeting.
func (s *SQLiteStore) CreateMeeting(ctx context.Context, meeting *models.Meeting) error {
	return insertMeeting(ctx, s.db, meeting)
}

func insertMeeting(ctx context.Context, db execer, meeting *models.Meeting) error {
	// Generate share UUID and timestamps if not set
	if meeting.UUID == "" {
		meeting.UUID = uuid.New().String()
	}
	if meeting.CreatedAt == 0 {
		meeting.CreatedAt = time.Now().Unix()
	}
	if meeting.Date == "" {
		meeting.Date = time.Unix(meeting.CreatedAt, 0).Format(time.DateOnly)
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO meetings (uuid, owner_id, name, date, is_trip, is_simple, is_ai, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		meeting.UUID, meeting.OwnerID, meeting.Name, meeting.Date,
		boolToInt(meeting.IsTrip), boolToInt(meeting.IsSimple), boolToInt(meeting.IsAI), meeting.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert meeting: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read meeting id: %w", err)
	}
	meeting.ID = id

	return nil
}

// GetMeeting retrieves a meeting by its internal ID.
func (s *SQLiteStore) GetMeeting(ctx context.Context, id int64) (*models.Meeting, error) {
	m, err := scanMeeting(s.db.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: meeting %d", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return m, nil
}

// GetMeetingByUUID retrieves a meeting by its share UUID.
func (s *SQLiteStore) GetMeetingByUUID(ctx context.Context, shareID string) (*models.Meeting, error) {
	m, err := scanMeeting(s.db.QueryRowContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE uuid = ?`, shareID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: meeting %s", storage.ErrNotFound, shareID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return m, nil
}

// ListMeetings returns the owner's meetings, newest first.
func (s *SQLiteStore) ListMeetings(ctx context.Context, ownerID string) ([]*models.Meeting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE owner_id = ? ORDER BY date DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	defer rows.Close()

	meetings := []*models.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		meetings = append(meetings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meetings: %w", err)
	}

	return meetings, nil
}

// UpdateMeeting updates the editable fields of a meeting.
func (s *SQLiteStore) UpdateMeeting(ctx context.Context, meeting *models.Meeting) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE meetings SET name = ?, date = ?, is_trip = ?, is_simple = ? WHERE id = ?`,
		meeting.Name, meeting.Date, boolToInt(meeting.IsTrip), boolToInt(meeting.IsSimple), meeting.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update meeting: %w", err)
	}
	return expectOne(res, "meeting", meeting.ID)
}

// DeleteMeeting removes a meeting and, by cascade, everything it owns.
func (s *SQLiteStore) DeleteMeeting(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Payments reference members without cascade, so they go first.
	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE meeting_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete payments: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}
	if err := expectOne(res, "meeting", id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// expectOne turns a zero-row update into storage.ErrNotFound.
func expectOne(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", storage.ErrNotFound, entity, id)
	}
	return nil
}
