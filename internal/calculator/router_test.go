package calculator

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mmynk/nbbang/internal/models"
)

func TestRouteThroughLeader(t *testing.T) {
	tests := []struct {
		name    string
		members []models.Member
		want    []Transfer
	}{
		{
			name: "leader is owed",
			members: []models.Member{
				{ID: 1, Name: "Leader", Leader: true, Amount: -500},
				{ID: 2, Name: "Kim", Amount: 300},
				{ID: 3, Name: "Lee", Amount: 200},
			},
			want: []Transfer{
				{FromID: 2, From: "Kim", ToID: 1, To: "Leader", Amount: 300},
				{FromID: 3, From: "Lee", ToID: 1, To: "Leader", Amount: 200},
			},
		},
		{
			name: "leader pays out",
			members: []models.Member{
				{ID: 1, Name: "Leader", Leader: true, Amount: 500},
				{ID: 2, Name: "Kim", Amount: -300},
				{ID: 3, Name: "Lee", Amount: -200},
			},
			want: []Transfer{
				{FromID: 1, From: "Leader", ToID: 2, To: "Kim", Amount: 300},
				{FromID: 1, From: "Leader", ToID: 3, To: "Lee", Amount: 200},
			},
		},
		{
			name: "empty meeting",
			members: []models.Member{
				{ID: 1, Name: "Leader", Leader: true},
			},
			want: []Transfer{},
		},
		{
			name: "leader not first keeps member order",
			members: []models.Member{
				{ID: 2, Name: "Kim", Amount: 10000},
				{ID: 1, Name: "Leader", Leader: true, Amount: -20000},
				{ID: 3, Name: "Lee", Amount: 10000},
			},
			want: []Transfer{
				{FromID: 2, From: "Kim", ToID: 1, To: "Leader", Amount: 10000},
				{FromID: 3, From: "Lee", ToID: 1, To: "Leader", Amount: 10000},
			},
		},
		{
			name: "mixed signs route both ways through leader",
			members: []models.Member{
				{ID: 1, Name: "Leader", Leader: true, Amount: -500},
				{ID: 2, Name: "Kim", Amount: 700},
				{ID: 3, Name: "Lee", Amount: -200},
			},
			want: []Transfer{
				{FromID: 2, From: "Kim", ToID: 1, To: "Leader", Amount: 700},
				{FromID: 1, From: "Leader", ToID: 3, To: "Lee", Amount: 200},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RouteThroughLeader(tt.members)
			if err != nil {
				t.Fatalf("RouteThroughLeader failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestRouteThroughLeaderRequiresOneLeader(t *testing.T) {
	_, err := RouteThroughLeader([]models.Member{{ID: 1}, {ID: 2}})
	if !errors.Is(err, ErrNoLeader) {
		t.Errorf("expected ErrNoLeader, got %v", err)
	}

	_, err = RouteThroughLeader([]models.Member{{ID: 1, Leader: true}, {ID: 2, Leader: true}})
	if !errors.Is(err, ErrMultipleLeaders) {
		t.Errorf("expected ErrMultipleLeaders, got %v", err)
	}
}

func TestSimpleEqualSplitScenario(t *testing.T) {
	members := []models.Member{
		{ID: 1, Name: "Leader", Leader: true},
		{ID: 2, Name: "Kim"},
		{ID: 3, Name: "Lee"},
	}
	payments := []models.Payment{
		{ID: 1, Place: "BBQ", Price: 30000, PayMemberID: 1, AttendMemberIDs: []int64{1, 2, 3}},
	}

	balanced, _ := RecomputeBalances(members, payments)
	if balanced[0].Amount != -20000 {
		t.Errorf("leader amount = %d, want -20000", balanced[0].Amount)
	}

	got, err := RouteThroughLeader(balanced)
	if err != nil {
		t.Fatalf("RouteThroughLeader failed: %v", err)
	}
	want := []Transfer{
		{FromID: 2, From: "Kim", ToID: 1, To: "Leader", Amount: 10000},
		{FromID: 3, From: "Lee", ToID: 1, To: "Leader", Amount: 10000},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestRenderTransfers(t *testing.T) {
	transfers := []Transfer{
		{FromID: 2, ToID: 1, Amount: 3333},
		{FromID: 1, ToID: 3, Amount: 1667},
	}

	rows := RenderTransfers(transfers, 1, true)
	if rows[0].Display != 3340 || !rows[0].Rounded {
		t.Errorf("member→leader row = %+v, want display 3340 rounded", rows[0])
	}
	if rows[0].Text != "3,340원" {
		t.Errorf("text = %q, want %q", rows[0].Text, "3,340원")
	}
	if rows[1].Display != 1667 || rows[1].Rounded {
		t.Errorf("leader→member row = %+v, must never be rounded", rows[1])
	}
	if transfers[0].Amount != 3333 {
		t.Error("rendering mutated the transfer amount")
	}

	plain := RenderTransfers(transfers, 1, false)
	if plain[0].Display != 3333 {
		t.Errorf("display without round-up = %d, want 3333", plain[0].Display)
	}
}

func TestRoute(t *testing.T) {
	t.Run("no members", func(t *testing.T) {
		transfers, rows, err := Route(nil, true)
		if err != nil {
			t.Fatalf("Route failed: %v", err)
		}
		if transfers == nil || len(transfers) != 0 || len(rows) != 0 {
			t.Errorf("got %v %v, want empty non-nil transfers", transfers, rows)
		}
	})

	t.Run("rows follow transfers", func(t *testing.T) {
		members := []models.Member{
			{ID: 1, Name: "Leader", Leader: true, Amount: -6666},
			{ID: 2, Name: "A", Amount: 3333},
			{ID: 3, Name: "B", Amount: 3333},
		}
		transfers, rows, err := Route(members, true)
		if err != nil {
			t.Fatalf("Route failed: %v", err)
		}
		if len(transfers) != 2 || len(rows) != 2 {
			t.Fatalf("got %d transfers, %d rows", len(transfers), len(rows))
		}
		if rows[0].Display != 3340 || transfers[0].Amount != 3333 {
			t.Errorf("row = %+v, transfer = %+v", rows[0], transfers[0])
		}
	})

	t.Run("members without a leader", func(t *testing.T) {
		_, _, err := Route([]models.Member{{ID: 1, Name: "A"}}, false)
		if !errors.Is(err, ErrNoLeader) {
			t.Errorf("got %v, want ErrNoLeader", err)
		}
	})
}
