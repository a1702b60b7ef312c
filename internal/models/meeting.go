package models

// Meeting is a settlement session shared by a group of members.
type Meeting struct {
	// ID is the authenticated internal identifier.
	ID int64 `json:"id"`

	// UUID is the stable external identifier used by unauthenticated share links.
	UUID string `json:"uuid"`

	// OwnerID is the user who created the meeting.
	OwnerID string `json:"-"`

	// Name is the display name (e.g., "Jeju trip").
	Name string `json:"name"`

	// Date is the meeting date in YYYY-MM-DD form.
	Date string `json:"date"`

	IsTrip   bool `json:"is_trip"`
	IsSimple bool `json:"is_simple"`

	// IsAI marks meetings created through the AI chat flow. Their content is a Draft
	// rather than members and payments.
	IsAI bool `json:"is_ai"`

	// CreatedAt is the Unix timestamp when the meeting was created.
	CreatedAt int64 `json:"created_at"`
}
