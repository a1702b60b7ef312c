package models

// Member is a participant of a meeting.
type Member struct {
	ID        int64  `json:"id"`
	MeetingID int64  `json:"meeting_id"`
	Name      string `json:"name"`

	// Leader marks the collector every transfer is routed through.
	Leader bool `json:"leader"`

	// Amount is the net balance after aggregation. It is never stored; it is
	// recomputed from the meeting's payments on every read.
	Amount int64 `json:"amount"`
}
