package draft

import (
	"errors"
	"strings"
	"testing"

	"github.com/mmynk/nbbang/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(d *models.Draft)
		wantCount  int
		wantSubstr string
	}{
		{"valid", func(d *models.Draft) {}, 0, ""},
		{"missing meeting name", func(d *models.Draft) { d.MeetingName = " " }, 1, "meeting name"},
		{"no members", func(d *models.Draft) {
			d.Members = nil
			d.Items = nil
		}, 2, "member"},
		{"item without name", func(d *models.Draft) { d.Items[0].Name = "" }, 1, "item 1: name"},
		{"payer not a member", func(d *models.Draft) { d.Items[1].Payer = "Ghost" }, 1, "payer"},
		{"attendee not a member", func(d *models.Draft) { d.Items[2].Attendees = []string{"Ghost"} }, 1, "Ghost"},
		{"negative price", func(d *models.Draft) { d.Items[0].Price = -1 }, 1, "negative"},
		{"several problems at once", func(d *models.Draft) {
			d.MeetingName = ""
			d.Items[0].Attendees = nil
			d.Items[1].Payer = ""
		}, 3, "; "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := sampleDraft()
			tt.mutate(&d)
			before := d.Clone()

			err := Validate(d)
			if tt.wantCount == 0 {
				if err != nil {
					t.Fatalf("expected valid draft, got %v", err)
				}
				return
			}

			var invalid *InvalidDraftError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected *InvalidDraftError, got %v", err)
			}
			if got := len(invalid.Violations()); got != tt.wantCount {
				t.Errorf("violations = %d (%v), want %d", got, invalid.Violations(), tt.wantCount)
			}
			if !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("error %q does not mention %q", err, tt.wantSubstr)
			}
			if len(d.Items) != len(before.Items) || d.MeetingName != before.MeetingName {
				t.Error("validation modified the draft")
			}
		})
	}
}
