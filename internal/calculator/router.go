package calculator

import (
	"errors"

	"github.com/mmynk/nbbang/internal/models"
	"github.com/mmynk/nbbang/internal/money"
)

var (
	ErrNoLeader        = errors.New("meeting has no leader")
	ErrMultipleLeaders = errors.New("meeting has more than one leader")
)

// Transfer is one money-transfer instruction.
type Transfer struct {
	FromID int64  `json:"from_id"`
	From   string `json:"from"`
	ToID   int64  `json:"to_id"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Leader returns the single leader of members.
func Leader(members []models.Member) (models.Member, error) {
	var leader models.Member
	found := 0
	for _, m := range members {
		if m.Leader {
			leader = m
			found++
		}
	}
	switch found {
	case 0:
		return models.Member{}, ErrNoLeader
	case 1:
		return leader, nil
	default:
		return models.Member{}, ErrMultipleLeaders
	}
}

// RouteThroughLeader turns aggregated balances into transfer instructions. Every
// transfer has the leader on one side; non-leader members never pay each other.
// Members with a positive balance send it to the leader, members with a negative
// balance receive its absolute value from the leader. Output follows the member
// list order.
func RouteThroughLeader(members []models.Member) ([]Transfer, error) {
	leader, err := Leader(members)
	if err != nil {
		return nil, err
	}

	transfers := []Transfer{}
	for _, m := range members {
		if m.ID == leader.ID {
			continue
		}
		switch {
		case m.Amount > 0:
			transfers = append(transfers, Transfer{
				FromID: m.ID, From: m.Name,
				ToID: leader.ID, To: leader.Name,
				Amount: m.Amount,
			})
		case m.Amount < 0:
			transfers = append(transfers, Transfer{
				FromID: leader.ID, From: leader.Name,
				ToID: m.ID, To: m.Name,
				Amount: -m.Amount,
			})
		}
	}

	return transfers, nil
}

// TransferRow is a transfer prepared for display.
type TransferRow struct {
	Transfer

	// Display is the amount shown to the user. It differs from Amount only when
	// round-up is on and the row is a member sending to the leader.
	Display int64  `json:"display"`
	Text    string `json:"text"`
	Rounded bool   `json:"rounded"`
}

// RenderTransfers prepares rows for display. With roundUp, amounts a member
// sends to the leader are rounded up to the next 10 won; amounts the leader pays
// out are never rounded. The input transfers are not modified.
func RenderTransfers(transfers []Transfer, leaderID int64, roundUp bool) []TransferRow {
	rows := make([]TransferRow, len(transfers))
	for i, t := range transfers {
		display := t.Amount
		if roundUp && t.ToID == leaderID && t.FromID != leaderID {
			display = money.RoundUpToTen(t.Amount)
		}
		rows[i] = TransferRow{
			Transfer: t,
			Display:  display,
			Text:     money.FormatWon(display),
			Rounded:  display != t.Amount,
		}
	}
	return rows
}

// Route runs the leader router and renders its rows in one step. A meeting
// without members has no leader yet and routes to no transfers.
func Route(members []models.Member, roundUp bool) ([]Transfer, []TransferRow, error) {
	if len(members) == 0 {
		return []Transfer{}, []TransferRow{}, nil
	}
	transfers, err := RouteThroughLeader(members)
	if err != nil {
		return nil, nil, err
	}
	leader, _ := Leader(members)
	return transfers, RenderTransfers(transfers, leader.ID, roundUp), nil
}
