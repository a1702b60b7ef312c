package draft

import (
	"bytes"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/mmynk/nbbang/internal/models"
)

func mustReconcile(t *testing.T, payload string) (draftJSON []byte, err error) {
	t.Helper()
	d, err := ReconcileJSON([]byte(payload))
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal draft: %v", err)
	}
	return out, nil
}

func TestPayerFallbackChain(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name: "item.payer wins over everything",
			payload: `{"payments":[{"payer":"P1","paid_by":"P2","paymentItems":[
				{"name":"x","price":1,"attendees":["A","B"],"payer":"I1","pay_member":"I2","paid_by":"I3"}]}]}`,
			want: "I1",
		},
		{
			name: "item.pay_member",
			payload: `{"payments":[{"payer":"P1","paid_by":"P2","paymentItems":[
				{"name":"x","price":1,"attendees":["A","B"],"pay_member":"I2","paid_by":"I3"}]}]}`,
			want: "I2",
		},
		{
			name: "item.pay_member as object",
			payload: `{"payments":[{"paymentItems":[
				{"name":"x","price":1,"attendees":["A","B"],"pay_member":{"id":3,"name":"I2"}}]}]}`,
			want: "I2",
		},
		{
			name: "item.paid_by",
			payload: `{"payments":[{"payer":"P1","paid_by":"P2","paymentItems":[
				{"name":"x","price":1,"attendees":["A","B"],"paid_by":"I3"}]}]}`,
			want: "I3",
		},
		{
			name: "payment.payer",
			payload: `{"payments":[{"payer":"P1","paid_by":"P2","paymentItems":[
				{"name":"x","price":1,"attendees":["A","B"]}]}]}`,
			want: "P1",
		},
		{
			name: "payment.paid_by",
			payload: `{"payments":[{"paid_by":"P2","paymentItems":[
				{"name":"x","price":1,"attendees":["A","B"]}]}]}`,
			want: "P2",
		},
		{
			name: "first member",
			payload: `{"payments":[{"paymentItems":[
				{"name":"x","price":1,"attendees":["B","A"]}]}]}`,
			want: "B",
		},
		{
			name: "empty alias falls through",
			payload: `{"payments":[{"payer":"P1","paymentItems":[
				{"name":"x","price":1,"attendees":["A"],"payer":"","pay_member":null}]}]}`,
			want: "P1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ReconcileJSON([]byte(tt.payload))
			if err != nil {
				t.Fatalf("ReconcileJSON failed: %v", err)
			}
			if len(d.Items) != 1 {
				t.Fatalf("expected 1 item, got %d", len(d.Items))
			}
			if d.Items[0].Payer != tt.want {
				t.Errorf("payer = %q, want %q", d.Items[0].Payer, tt.want)
			}
		})
	}
}

func TestReconcileDeterministic(t *testing.T) {
	payload := `{"meeting":{"id":7,"name":"Friday dinner","date":"2026-10-16","payments":[
		{"payer":"Kim","paymentItems":[
			{"name":"Pork belly","price":15000,"quantity":3,"attendees":["Kim","Lee","Park"]},
			{"name":"Soju","price":"5,000원","quantity":2,"attendees":["Lee","Choi"],"paid_by":"Lee"}]},
		{"paid_by":"Park","paymentItems":[
			{"name":"Cafe","price":4500,"attendees":["Park","Kim"]}]}]}}`

	first, err := mustReconcile(t, payload)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := mustReconcile(t, payload)
		if err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("run %d differs:\n%s\n%s", i, first, again)
		}
	}

	d, _ := ReconcileJSON([]byte(payload))
	if d.MeetingName != "Friday dinner" || d.Date != "2026-10-16" {
		t.Errorf("meeting = %q %q", d.MeetingName, d.Date)
	}
	wantMembers := []string{"Kim", "Lee", "Park", "Choi"}
	if !reflect.DeepEqual(d.Members, wantMembers) {
		t.Errorf("members = %v, want %v", d.Members, wantMembers)
	}
	wantPrices := []int64{45000, 10000, 4500}
	wantPayers := []string{"Kim", "Lee", "Park"}
	for i, item := range d.Items {
		if item.Price != wantPrices[i] {
			t.Errorf("item %d price = %d, want %d", i, item.Price, wantPrices[i])
		}
		if item.Payer != wantPayers[i] {
			t.Errorf("item %d payer = %q, want %q", i, item.Payer, wantPayers[i])
		}
	}
}

func TestReconcileMembersFollowAttendees(t *testing.T) {
	d, err := ReconcileJSON([]byte(`{"members":["Ghost"],"items":[
		{"name":"a","price":100,"attendees":["Kim","Kim","Lee"]},
		{"name":"b","price":100,"attendees":[{"name":"Park"},"Lee",""]}]}`))
	if err != nil {
		t.Fatalf("ReconcileJSON failed: %v", err)
	}

	want := []string{"Kim", "Lee", "Park"}
	if !reflect.DeepEqual(d.Members, want) {
		t.Errorf("members = %v, want %v", d.Members, want)
	}
	if !reflect.DeepEqual(d.Items[0].Attendees, []string{"Kim", "Lee"}) {
		t.Errorf("attendees not deduplicated: %v", d.Items[0].Attendees)
	}
}

func TestReconcileKeepsPayerWhoAttendedNothing(t *testing.T) {
	saved := models.Draft{
		MeetingName: "Airport",
		Date:        "2024-06-01",
		Members:     []string{"Bob", "Carol", "Alice"},
		Items: []models.DraftItem{
			{Name: "taxi", Price: 30000, Attendees: []string{"Bob", "Carol"}, Payer: "Alice"},
		},
	}
	if err := Validate(saved); err != nil {
		t.Fatalf("saved draft invalid: %v", err)
	}

	body, err := json.Marshal(map[string]any{"meeting": saved})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	reloaded, err := ReconcileJSON(body)
	if err != nil {
		t.Fatalf("ReconcileJSON failed: %v", err)
	}
	if !reflect.DeepEqual(reloaded, saved) {
		t.Errorf("reloaded = %+v\nwant %+v", reloaded, saved)
	}
	if err := Validate(reloaded); err != nil {
		t.Errorf("reloaded draft invalid: %v", err)
	}
}

func TestReconcilePayerFallbackDoesNotUsePayerOnlyMember(t *testing.T) {
	d, err := ReconcileJSON([]byte(`{"items":[
		{"name":"a","price":100,"attendees":["Kim"],"payer":"Ghost"},
		{"name":"b","price":100,"attendees":["Lee"]}]}`))
	if err != nil {
		t.Fatalf("ReconcileJSON failed: %v", err)
	}
	if want := []string{"Kim", "Lee", "Ghost"}; !reflect.DeepEqual(d.Members, want) {
		t.Errorf("members = %v, want %v", d.Members, want)
	}
	if d.Items[1].Payer != "Kim" {
		t.Errorf("fallback payer = %q, want Kim", d.Items[1].Payer)
	}
}

func TestReconcileEmptyPayload(t *testing.T) {
	out, err := mustReconcile(t, `{}`)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	want := `{"meeting_name":"","date":"","members":[],"items":[]}`
	if string(out) != want {
		t.Errorf("got %s, want %s", out, want)
	}
}

func TestReconcileBadPrice(t *testing.T) {
	_, err := ReconcileJSON([]byte(`{"items":[{"name":"a","price":"lots","attendees":["Kim"]}]}`))
	if err == nil {
		t.Error("expected error for unparseable price")
	}
}

func TestUnwrapMeeting(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"meeting envelope", `{"meeting":{"id":1,"name":"m"}}`, false},
		{"bare meeting", `{"id":1,"name":"m"}`, false},
		{"data.meeting envelope", `{"data":{"meeting":{"id":1,"name":"m"}}}`, false},
		{"data envelope", `{"data":{"id":1,"name":"m"}}`, false},
		{"nothing", `{"detail":"oops"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ParsePayload([]byte(tt.payload))
			if err != nil {
				t.Fatalf("ParsePayload failed: %v", err)
			}
			m, err := UnwrapMeeting(root)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnwrapMeeting error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && textField(m, "name") != "m" {
				t.Errorf("unwrapped wrong object: %v", m)
			}
		})
	}
}
