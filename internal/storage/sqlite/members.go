package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mmynk/nbbang/internal/models"
	"github.com/mmynk/nbbang/internal/storage"
)

// ListMembers returns the members of a meeting in creation order. Amount is
// always zero here; balances are computed by the caller.
func (s *SQLiteStore) ListMembers(ctx context.Context, meetingID int64) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, meeting_id, name, leader FROM members WHERE meeting_id = ? ORDER BY id`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.MeetingID, &m.Name, &m.Leader); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// CreateMember adds a member; the first member of a meeting becomes its leader.
func (s *SQLiteStore) CreateMember(ctx context.Context, member *models.Member) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members WHERE meeting_id = ?`, member.MeetingID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count members: %w", err)
	}
	member.Leader = count == 0

	res, err := tx.ExecContext(ctx,
		`INSERT INTO members (meeting_id, name, leader) VALUES (?, ?, ?)`,
		member.MeetingID, member.Name, boolToInt(member.Leader),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateMember, member.Name)
		}
		return fmt.Errorf("failed to insert member: %w", err)
	}
	if member.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read member id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateMember renames a member. Leadership changes go through SetLeader.
func (s *SQLiteStore) UpdateMember(ctx context.Context, member *models.Member) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET name = ? WHERE id = ? AND meeting_id = ?`,
		member.Name, member.ID, member.MeetingID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateMember, member.Name)
		}
		return fmt.Errorf("failed to update member: %w", err)
	}
	return expectOne(res, "member", member.ID)
}

// SetLeader makes memberID the only leader of the meeting.
func (s *SQLiteStore) SetLeader(ctx context.Context, meetingID, memberID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := memberExists(ctx, tx, meetingID, memberID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE members SET leader = (id = ?) WHERE meeting_id = ?`, memberID, meetingID); err != nil {
		return fmt.Errorf("failed to set leader: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteMember removes a member that is neither the leader nor referenced by a payment.
func (s *SQLiteStore) DeleteMember(ctx context.Context, meetingID, memberID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var leader bool
	err = tx.QueryRowContext(ctx,
		`SELECT leader FROM members WHERE id = ? AND meeting_id = ?`, memberID, meetingID).Scan(&leader)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: member %d", storage.ErrNotFound, memberID)
	}
	if err != nil {
		return fmt.Errorf("failed to get member: %w", err)
	}
	if leader {
		return storage.ErrLeaderMember
	}

	var used int
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE pay_member_id = ?)
		     OR EXISTS (SELECT 1 FROM payment_attendees WHERE member_id = ?)`,
		memberID, memberID).Scan(&used); err != nil {
		return fmt.Errorf("failed to check member usage: %w", err)
	}
	if used != 0 {
		return storage.ErrMemberInUse
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, memberID); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func memberExists(ctx context.Context, tx *sql.Tx, meetingID, memberID int64) error {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM members WHERE id = ? AND meeting_id = ?`, memberID, meetingID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: member %d", storage.ErrNotFound, memberID)
	}
	if err != nil {
		return fmt.Errorf("failed to check member existence: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
