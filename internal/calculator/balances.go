package calculator

import (
	"github.com/mmynk/nbbang/internal/models"
)

// RecomputeBalances folds every payment into a fresh net balance per member.
// It has no hidden state: balances start from zero on every call, so the result
// never drifts no matter how many edits preceded it.
//
// Algorithm, per payment:
//   - the payer's balance decreases by the price (they fronted the money)
//   - each attendee's balance increases by their share
//   - the payer's balance increases by the remainder (they absorb the leftover)
//
// The balance deltas of every payment sum to zero. Payments that fail
// validation contribute nothing and are returned as errors so the caller can
// report them; the member list is still complete.
func RecomputeBalances(members []models.Member, payments []models.Payment) ([]models.Member, []error) {
	out := make([]models.Member, len(members))
	index := make(map[int64]int, len(members))
	for i, m := range members {
		m.Amount = 0
		out[i] = m
		index[m.ID] = i
	}

	var skipped []error
	for _, p := range payments {
		ledger, err := Shares(p, members)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}

		out[index[ledger.PayerID]].Amount += ledger.Remainder - ledger.Price
		for id, share := range ledger.Shares {
			out[index[id]].Amount += share
		}
	}

	return out, skipped
}

// Sum returns the total of all member balances. It is zero for any output of
// RecomputeBalances.
func Sum(members []models.Member) int64 {
	var total int64
	for _, m := range members {
		total += m.Amount
	}
	return total
}
