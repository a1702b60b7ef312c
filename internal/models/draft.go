package models

// Draft is the normalized form of an AI-generated settlement. It is used the same
// way by the create and modify flows, and by the edit modal before saving.
type Draft struct {
	MeetingName string      `json:"meeting_name"`
	Date        string      `json:"date"`
	Members     []string    `json:"members"`
	Items       []DraftItem `json:"items"`
}

// DraftItem is one line of a draft. Members are referenced by name.
type DraftItem struct {
	Name      string   `json:"name"`
	Price     int64    `json:"price"`
	Attendees []string `json:"attendees"`
	Payer     string   `json:"payer"`
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	out := Draft{
		MeetingName: d.MeetingName,
		Date:        d.Date,
		Members:     append([]string(nil), d.Members...),
		Items:       make([]DraftItem, len(d.Items)),
	}
	for i, item := range d.Items {
		item.Attendees = append([]string(nil), item.Attendees...)
		out.Items[i] = item
	}
	return out
}
