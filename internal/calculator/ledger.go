package calculator

import (
	"fmt"

	"github.com/mmynk/nbbang/internal/models"
)

// InvalidPaymentError reports a payment that cannot be folded into balances.
// It is raised before submission and never reaches the network.
type InvalidPaymentError struct {
	PaymentID int64
	Reason    string
}

func (e *InvalidPaymentError) Error() string {
	if e.PaymentID == 0 {
		return "invalid payment: " + e.Reason
	}
	return fmt.Sprintf("invalid payment %d: %s", e.PaymentID, e.Reason)
}

func invalid(p models.Payment, format string, args ...any) *InvalidPaymentError {
	return &InvalidPaymentError{PaymentID: p.ID, Reason: fmt.Sprintf(format, args...)}
}

// Ledger is the participation breakdown of one payment.
type Ledger struct {
	// PayerID is the member who fronted the money.
	PayerID int64

	// Price is the full payment amount.
	Price int64

	// Share is floor(price / attendees), owed by each attendee.
	Share int64

	// Remainder is price - share*attendees. The payer absorbs it so that
	// shares plus remainder always equal the price.
	Remainder int64

	// Shares maps each attending member to their share.
	Shares map[int64]int64
}

// SplitPrice returns the equal share for n attendees.
func SplitPrice(price int64, n int) int64 {
	if n <= 0 {
		return 0
	}
	return price / int64(n)
}

// ValidatePayment checks a payment against the current member list.
func ValidatePayment(p models.Payment, members []models.Member) error {
	_, err := Shares(p, members)
	return err
}

// Shares builds the ledger for a payment. It fails with *InvalidPaymentError when
// the price is negative, attendees are empty or repeated, or any referenced
// member is not in members.
func Shares(p models.Payment, members []models.Member) (*Ledger, error) {
	if p.Price < 0 {
		return nil, invalid(p, "price %d is negative", p.Price)
	}
	if len(p.AttendMemberIDs) == 0 {
		return nil, invalid(p, "no attending members")
	}

	known := make(map[int64]bool, len(members))
	for _, m := range members {
		known[m.ID] = true
	}
	if !known[p.PayMemberID] {
		return nil, invalid(p, "payer %d is not a member", p.PayMemberID)
	}

	n := len(p.AttendMemberIDs)
	share := SplitPrice(p.Price, n)
	ledger := &Ledger{
		PayerID:   p.PayMemberID,
		Price:     p.Price,
		Share:     share,
		Remainder: p.Price - share*int64(n),
		Shares:    make(map[int64]int64, n),
	}
	for _, id := range p.AttendMemberIDs {
		if !known[id] {
			return nil, invalid(p, "attendee %d is not a member", id)
		}
		if _, dup := ledger.Shares[id]; dup {
			return nil, invalid(p, "attendee %d listed twice", id)
		}
		ledger.Shares[id] = share
	}

	return ledger, nil
}
