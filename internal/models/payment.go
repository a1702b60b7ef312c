package models

// Payment is one expense fronted by a member.
type Payment struct {
	ID        int64  `json:"id"`
	MeetingID int64  `json:"meeting_id"`
	Place     string `json:"place"`

	// Price is the full amount paid, in won.
	Price int64 `json:"price"`

	// PayMemberID is the member who fronted the money.
	PayMemberID int64 `json:"pay_member_id"`

	// AttendMemberIDs are the members sharing this payment. Never empty.
	AttendMemberIDs []int64 `json:"attend_member_ids"`

	// SplitPrice is the equal share each attendee owes, floor(price / attendees).
	SplitPrice int64 `json:"split_price"`

	// Order is the display position, persisted independently of creation time.
	Order int `json:"order"`
}
