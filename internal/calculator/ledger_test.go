package calculator

import (
	"errors"
	"testing"

	"github.com/mmynk/nbbang/internal/models"
)

func testMembers(n int) []models.Member {
	members := make([]models.Member, n)
	for i := range members {
		members[i] = models.Member{ID: int64(i + 1), Name: string(rune('A' + i)), Leader: i == 0}
	}
	return members
}

func attendees(n int) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	return ids
}

func TestSharesRemainderAttribution(t *testing.T) {
	members := testMembers(7)

	t.Run("100 across 3 including payer", func(t *testing.T) {
		ledger, err := Shares(models.Payment{Price: 100, PayMemberID: 1, AttendMemberIDs: attendees(3)}, members)
		if err != nil {
			t.Fatalf("Shares failed: %v", err)
		}
		for id, share := range ledger.Shares {
			if share != 33 {
				t.Errorf("share of %d = %d, want 33", id, share)
			}
		}
		if ledger.Remainder != 1 {
			t.Errorf("remainder = %d, want 1", ledger.Remainder)
		}
	})

	for _, price := range []int64{100, 101, 999999} {
		for _, n := range []int{1, 5, 7} {
			p := models.Payment{Price: price, PayMemberID: 1, AttendMemberIDs: attendees(n)}
			ledger, err := Shares(p, members)
			if err != nil {
				t.Fatalf("Shares(price=%d, n=%d) failed: %v", price, n, err)
			}

			var sum int64
			for _, share := range ledger.Shares {
				sum += share
			}
			if sum+ledger.Remainder != price {
				t.Errorf("price=%d n=%d: shares %d + remainder %d != price", price, n, sum, ledger.Remainder)
			}
			if ledger.Remainder < 0 || ledger.Remainder >= int64(n) {
				t.Errorf("price=%d n=%d: remainder %d out of range", price, n, ledger.Remainder)
			}
			if ledger.Share != SplitPrice(price, n) {
				t.Errorf("price=%d n=%d: share %d, SplitPrice %d", price, n, ledger.Share, SplitPrice(price, n))
			}
		}
	}
}

func TestSharesInvalid(t *testing.T) {
	members := testMembers(3)

	tests := []struct {
		name    string
		payment models.Payment
	}{
		{"empty attendees", models.Payment{ID: 1, Price: 100, PayMemberID: 1}},
		{"negative price", models.Payment{ID: 2, Price: -1, PayMemberID: 1, AttendMemberIDs: []int64{1}}},
		{"unknown attendee", models.Payment{ID: 3, Price: 100, PayMemberID: 1, AttendMemberIDs: []int64{1, 9}}},
		{"unknown payer", models.Payment{ID: 4, Price: 100, PayMemberID: 9, AttendMemberIDs: []int64{1}}},
		{"duplicate attendee", models.Payment{ID: 5, Price: 100, PayMemberID: 1, AttendMemberIDs: []int64{2, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Shares(tt.payment, members)
			var invalidErr *InvalidPaymentError
			if !errors.As(err, &invalidErr) {
				t.Fatalf("expected *InvalidPaymentError, got %v", err)
			}
			if invalidErr.PaymentID != tt.payment.ID {
				t.Errorf("PaymentID = %d, want %d", invalidErr.PaymentID, tt.payment.ID)
			}
		})
	}
}

func TestSharesZeroPrice(t *testing.T) {
	ledger, err := Shares(models.Payment{Price: 0, PayMemberID: 1, AttendMemberIDs: []int64{1, 2}}, testMembers(2))
	if err != nil {
		t.Fatalf("Shares failed: %v", err)
	}
	if ledger.Share != 0 || ledger.Remainder != 0 {
		t.Errorf("got share %d remainder %d, want 0 and 0", ledger.Share, ledger.Remainder)
	}
}
