// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/nbbang/internal/models"
)

var (
	// ErrNotFound is returned when a meeting, member or payment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLeaderMember is returned when deleting the meeting leader.
	ErrLeaderMember = errors.New("the leader cannot be removed")

	// ErrMemberInUse is returned when deleting a member referenced by a payment.
	ErrMemberInUse = errors.New("member is referenced by a payment")

	// ErrDuplicateMember is returned when a meeting already has a member with the name.
	ErrDuplicateMember = errors.New("member name already used in this meeting")

	// ErrInvalidOrder is returned when a reorder request is not a permutation of
	// the meeting's payments.
	ErrInvalidOrder = errors.New("order must list every payment of the meeting exactly once")
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil and no error when the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// MeetingStore persists meetings.
type MeetingStore interface {
	// CreateMeeting persists a meeting. ID, UUID and CreatedAt are populated by the store.
	CreateMeeting(ctx context.Context, meeting *models.Meeting) error
	GetMeeting(ctx context.Context, id int64) (*models.Meeting, error)
	GetMeetingByUUID(ctx context.Context, uuid string) (*models.Meeting, error)
	ListMeetings(ctx context.Context, ownerID string) ([]*models.Meeting, error)
	UpdateMeeting(ctx context.Context, meeting *models.Meeting) error
	DeleteMeeting(ctx context.Context, id int64) error
}

// MemberStore persists meeting members. Balances are never stored.
type MemberStore interface {
	ListMembers(ctx context.Context, meetingID int64) ([]models.Member, error)

	// CreateMember adds a member. The first member of a meeting becomes its leader.
	CreateMember(ctx context.Context, member *models.Member) error
	UpdateMember(ctx context.Context, member *models.Member) error

	// SetLeader moves leadership to memberID.
	SetLeader(ctx context.Context, meetingID, memberID int64) error

	// DeleteMember fails with ErrLeaderMember or ErrMemberInUse.
	DeleteMember(ctx context.Context, meetingID, memberID int64) error
}

// PaymentStore persists payments in display order.
type PaymentStore interface {
	ListPayments(ctx context.Context, meetingID int64) ([]models.Payment, error)
	GetPayment(ctx context.Context, meetingID, paymentID int64) (*models.Payment, error)

	// CreatePayment appends the payment at the end of the display order.
	CreatePayment(ctx context.Context, payment *models.Payment) error
	UpdatePayment(ctx context.Context, payment *models.Payment) error
	DeletePayment(ctx context.Context, meetingID, paymentID int64) error
	ReorderPayments(ctx context.Context, meetingID int64, paymentIDs []int64) error
}

// DraftStore persists the latest AI draft of a meeting.
type DraftStore interface {
	GetDraft(ctx context.Context, meetingID int64) (*models.Draft, error)

	// SaveDraft replaces the meeting's draft and copies its name and date onto the meeting.
	SaveDraft(ctx context.Context, meetingID int64, draft models.Draft) error

	// CreateAIMeeting inserts an AI meeting and its first draft atomically.
	CreateAIMeeting(ctx context.Context, meeting *models.Meeting, draft models.Draft) error
}

// UsageStore persists per-user AI analysis counters.
type UsageStore interface {
	// GetAIUsage returns the day (YYYY-MM-DD) of the stored counter and its count.
	GetAIUsage(ctx context.Context, userID string) (day string, count int, err error)
	SetAIUsage(ctx context.Context, userID, day string, count int) error
}

// Store is everything the service layer needs. This abstraction allows swapping
// storage backends without changing the service layer.
type Store interface {
	UserStore
	MeetingStore
	MemberStore
	PaymentStore
	DraftStore
	UsageStore

	// Close releases any resources held by the store.
	Close() error
}
