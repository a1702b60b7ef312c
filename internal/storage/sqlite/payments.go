package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/nbbang/internal/models"
	"github.com/mmynk/nbbang/internal/storage"
)

// ListPayments returns the payments of a meeting in display order.
func (s *SQLiteStore) ListPayments(ctx context.Context, meetingID int64) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, meeting_id, place, price, pay_member_id, split_price, order_no
		 FROM payments WHERE meeting_id = ? ORDER BY order_no, id`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.MeetingID, &p.Place, &p.Price, &p.PayMemberID, &p.SplitPrice, &p.Order); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	rows.Close()

	// The store holds a single connection, so attendees are read after the
	// payment cursor is released.
	attendees, err := s.attendeesByPayment(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		payments[i].AttendMemberIDs = attendees[payments[i].ID]
		if payments[i].AttendMemberIDs == nil {
			payments[i].AttendMemberIDs = []int64{}
		}
	}

	return payments, nil
}

func (s *SQLiteStore) attendeesByPayment(ctx context.Context, meetingID int64) (map[int64][]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pa.payment_id, pa.member_id
		 FROM payment_attendees pa JOIN payments p ON p.id = pa.payment_id
		 WHERE p.meeting_id = ? ORDER BY pa.payment_id, pa.position`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]int64)
	for rows.Next() {
		var paymentID, memberID int64
		if err := rows.Scan(&paymentID, &memberID); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		out[paymentID] = append(out[paymentID], memberID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendees: %w", err)
	}
	return out, nil
}

// GetPayment retrieves one payment of a meeting.
func (s *SQLiteStore) GetPayment(ctx context.Context, meetingID, paymentID int64) (*models.Payment, error) {
	p := &models.Payment{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, meeting_id, place, price, pay_member_id, split_price, order_no
		 FROM payments WHERE id = ? AND meeting_id = ?`, paymentID, meetingID).
		Scan(&p.ID, &p.MeetingID, &p.Place, &p.Price, &p.PayMemberID, &p.SplitPrice, &p.Order)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: payment %d", storage.ErrNotFound, paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT member_id FROM payment_attendees WHERE payment_id = ? ORDER BY position`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	p.AttendMemberIDs = []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		p.AttendMemberIDs = append(p.AttendMemberIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendees: %w", err)
	}

	return p, nil
}

// CreatePayment inserts a payment at the end of the meeting's display order.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_no), -1) + 1 FROM payments WHERE meeting_id = ?`,
		payment.MeetingID).Scan(&payment.Order); err != nil {
		return fmt.Errorf("failed to compute payment order: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (meeting_id, place, price, pay_member_id, split_price, order_no, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.MeetingID, payment.Place, payment.Price, payment.PayMemberID,
		payment.SplitPrice, payment.Order, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	if payment.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read payment id: %w", err)
	}

	if err := insertAttendees(ctx, tx, payment); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdatePayment replaces a payment's fields and attendees. Order is unchanged.
func (s *SQLiteStore) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE payments SET place = ?, price = ?, pay_member_id = ?, split_price = ?
		 WHERE id = ? AND meeting_id = ?`,
		payment.Place, payment.Price, payment.PayMemberID, payment.SplitPrice,
		payment.ID, payment.MeetingID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if err := expectOne(res, "payment", payment.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM payment_attendees WHERE payment_id = ?`, payment.ID); err != nil {
		return fmt.Errorf("failed to delete attendees: %w", err)
	}
	if err := insertAttendees(ctx, tx, payment); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertAttendees(ctx context.Context, tx *sql.Tx, payment *models.Payment) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO payment_attendees (payment_id, member_id, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare attendee insert: %w", err)
	}
	defer stmt.Close()

	for i, memberID := range payment.AttendMemberIDs {
		if _, err := stmt.ExecContext(ctx, payment.ID, memberID, i); err != nil {
			return fmt.Errorf("failed to insert attendee %d: %w", memberID, err)
		}
	}
	return nil
}

// DeletePayment removes a payment and its attendees.
func (s *SQLiteStore) DeletePayment(ctx context.Context, meetingID, paymentID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM payments WHERE id = ? AND meeting_id = ?`, paymentID, meetingID)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return expectOne(res, "payment", paymentID)
}

// ReorderPayments sets the display order to the order of paymentIDs, which must
// list every payment of the meeting exactly once.
func (s *SQLiteStore) ReorderPayments(ctx context.Context, meetingID int64, paymentIDs []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM payments WHERE meeting_id = ?`, meetingID)
	if err != nil {
		return fmt.Errorf("failed to list payment ids: %w", err)
	}
	existing := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan payment id: %w", err)
		}
		existing[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate payment ids: %w", err)
	}

	if len(paymentIDs) != len(existing) {
		return storage.ErrInvalidOrder
	}
	seen := make(map[int64]bool, len(paymentIDs))
	for _, id := range paymentIDs {
		if !existing[id] || seen[id] {
			return storage.ErrInvalidOrder
		}
		seen[id] = true
	}

	for i, id := range paymentIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE payments SET order_no = ? WHERE id = ?`, i, id); err != nil {
			return fmt.Errorf("failed to update payment order: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
