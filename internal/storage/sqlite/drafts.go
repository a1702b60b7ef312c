package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/nbbang/internal/models"
)

// GetDraft loads the AI draft of a meeting. A meeting without a saved draft
// yields an empty draft carrying the meeting's name and date.
func (s *SQLiteStore) GetDraft(ctx context.Context, meetingID int64) (*models.Draft, error) {
	meeting, err := s.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	draft := &models.Draft{
		MeetingName: meeting.Name,
		Date:        meeting.Date,
		Members:     []string{},
		Items:       []models.DraftItem{},
	}

	memberRows, err := s.db.QueryContext(ctx,
		`SELECT name FROM draft_members WHERE meeting_id = ? ORDER BY position`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft members: %w", err)
	}
	for memberRows.Next() {
		var name string
		if err := memberRows.Scan(&name); err != nil {
			memberRows.Close()
			return nil, fmt.Errorf("failed to scan draft member: %w", err)
		}
		draft.Members = append(draft.Members, name)
	}
	memberRows.Close()
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draft members: %w", err)
	}

	itemRows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price, payer FROM draft_items WHERE meeting_id = ? ORDER BY position`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft items: %w", err)
	}
	var itemIDs []int64
	for itemRows.Next() {
		var (
			id   int64
			item models.DraftItem
		)
		if err := itemRows.Scan(&id, &item.Name, &item.Price, &item.Payer); err != nil {
			itemRows.Close()
			return nil, fmt.Errorf("failed to scan draft item: %w", err)
		}
		item.Attendees = []string{}
		itemIDs = append(itemIDs, id)
		draft.Items = append(draft.Items, item)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draft items: %w", err)
	}

	if len(itemIDs) == 0 {
		return draft, nil
	}

	index := make(map[int64]int, len(itemIDs))
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		index[id] = i
		args[i] = id
	}
	attendeeRows, err := s.db.QueryContext(ctx,
		`SELECT item_id, name FROM draft_item_attendees
		 WHERE item_id IN (`+placeholders(len(itemIDs))+`) ORDER BY item_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list draft attendees: %w", err)
	}
	defer attendeeRows.Close()
	for attendeeRows.Next() {
		var (
			itemID int64
			name   string
		)
		if err := attendeeRows.Scan(&itemID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan draft attendee: %w", err)
		}
		i := index[itemID]
		draft.Items[i].Attendees = append(draft.Items[i].Attendees, name)
	}
	if err := attendeeRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate draft attendees: %w", err)
	}

	return draft, nil
}

// SaveDraft replaces the draft of a meeting and copies its name and date onto
// the meeting row.
func (s *SQLiteStore) SaveDraft(ctx context.Context, meetingID int64, draft models.Draft) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return writeDraft(ctx, tx, meetingID, draft)
	})
}

// CreateAIMeeting inserts an AI meeting together with its first draft. Either
// both rows land or neither does.
func (s *SQLiteStore) CreateAIMeeting(ctx context.Context, meeting *models.Meeting, draft models.Draft) error {
	meeting.IsAI = true
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertMeeting(ctx, tx, meeting); err != nil {
			return err
		}
		return writeDraft(ctx, tx, meeting.ID, draft)
	})
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func writeDraft(ctx context.Context, tx *sql.Tx, meetingID int64, draft models.Draft) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE meetings SET name = ?, date = ?, is_ai = 1 WHERE id = ?`,
		draft.MeetingName, draft.Date, meetingID)
	if err != nil {
		return fmt.Errorf("failed to update meeting: %w", err)
	}
	if err := expectOne(res, "meeting", meetingID); err != nil {
		return err
	}

	// Attendee rows go with their items by cascade.
	for _, q := range []string{
		`DELETE FROM draft_members WHERE meeting_id = ?`,
		`DELETE FROM draft_items WHERE meeting_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, meetingID); err != nil {
			return fmt.Errorf("failed to clear draft: %w", err)
		}
	}

	for i, name := range draft.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO draft_members (meeting_id, position, name) VALUES (?, ?, ?)`,
			meetingID, i, name); err != nil {
			return fmt.Errorf("failed to insert draft member: %w", err)
		}
	}

	for i, item := range draft.Items {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO draft_items (meeting_id, position, name, price, payer) VALUES (?, ?, ?, ?, ?)`,
			meetingID, i, item.Name, item.Price, item.Payer)
		if err != nil {
			return fmt.Errorf("failed to insert draft item: %w", err)
		}
		itemID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read draft item id: %w", err)
		}
		for j, name := range item.Attendees {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO draft_item_attendees (item_id, position, name) VALUES (?, ?, ?)`,
				itemID, j, name); err != nil {
				return fmt.Errorf("failed to insert draft attendee: %w", err)
			}
		}
	}
	return nil
}
