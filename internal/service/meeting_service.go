package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/nbbang/internal/calculator"
	"github.com/mmynk/nbbang/internal/live"
	"github.com/mmynk/nbbang/internal/metrics"
	"github.com/mmynk/nbbang/internal/models"
	"github.com/mmynk/nbbang/internal/storage"
)

// Publisher receives meeting change events.
type Publisher interface {
	Publish(ev live.Event)
}

// MeetingService owns meetings, members and payments. Member balances are
// never stored: every read recomputes them from the full payment list.
type MeetingService struct {
	store   storage.Store
	events  Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewMeetingService creates a MeetingService. events and m may be nil.
func NewMeetingService(store storage.Store, events Publisher, m *metrics.Metrics, logger *slog.Logger) *MeetingService {
	return &MeetingService{
		store:   store,
		events:  events,
		metrics: m,
		logger:  logger.With("component", "meetings"),
	}
}

// Settlement is a meeting's recomputed state.
type Settlement struct {
	Meeting   *models.Meeting       `json:"meeting"`
	Members   []models.Member       `json:"members"`
	Payments  []models.Payment      `json:"payments"`
	Transfers []calculator.Transfer `json:"transfers"`

	// Rows are Transfers prepared for display, rounded up to 10 won when asked.
	Rows []calculator.TransferRow `json:"rows"`
}

func (s *MeetingService) publish(meetingID int64, entity, action string, id int64) {
	if s.events != nil {
		s.events.Publish(live.NewEvent(meetingID, entity, action, id))
	}
}

// owned loads a meeting and hides it from anyone but its owner.
func (s *MeetingService) owned(ctx context.Context, userID string, meetingID int64) (*models.Meeting, error) {
	meeting, err := s.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting.OwnerID != userID {
		return nil, fmt.Errorf("%w: meeting %d", storage.ErrNotFound, meetingID)
	}
	return meeting, nil
}

// Authorize returns the meeting if userID owns it.
func (s *MeetingService) Authorize(ctx context.Context, userID string, meetingID int64) (*models.Meeting, error) {
	return s.owned(ctx, userID, meetingID)
}

// recompute loads members and payments and folds balances from zero.
// Malformed payments are logged and contribute nothing.
func (s *MeetingService) recompute(ctx context.Context, meetingID int64) ([]models.Member, []models.Payment, error) {
	members, err := s.store.ListMembers(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.store.ListPayments(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}

	balanced, skipped := calculator.RecomputeBalances(members, payments)
	for _, err := range skipped {
		s.logger.Warn("payment skipped in recompute", "meeting_id", meetingID, "error", err)
	}
	s.metrics.ObserveRecompute(len(skipped))

	return balanced, payments, nil
}

func normalizeMeeting(m *models.Meeting) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return invalidInput("meeting name is required")
	}
	if m.Date != "" {
		if _, err := time.Parse(time.DateOnly, m.Date); err != nil {
			return invalidInput("date must be YYYY-MM-DD")
		}
	}
	return nil
}

// CreateMeeting creates a meeting owned by userID.
func (s *MeetingService) CreateMeeting(ctx context.Context, userID string, m models.Meeting) (*models.Meeting, error) {
	if err := normalizeMeeting(&m); err != nil {
		return nil, err
	}
	m.ID, m.UUID, m.OwnerID, m.IsAI = 0, "", userID, false

	if err := s.store.CreateMeeting(ctx, &m); err != nil {
		s.logger.Error("CreateMeeting failed", "user_id", userID, "error", err)
		return nil, err
	}

	s.logger.Info("Meeting created", "meeting_id", m.ID, "user_id", userID)
	return &m, nil
}

// ListMeetings returns userID's meetings.
func (s *MeetingService) ListMeetings(ctx context.Context, userID string) ([]*models.Meeting, error) {
	return s.store.ListMeetings(ctx, userID)
}

// GetMeeting returns one of userID's meetings.
func (s *MeetingService) GetMeeting(ctx context.Context, userID string, meetingID int64) (*models.Meeting, error) {
	return s.owned(ctx, userID, meetingID)
}

// UpdateMeeting changes name, date and flags of a meeting.
func (s *MeetingService) UpdateMeeting(ctx context.Context, userID string, m models.Meeting) (*models.Meeting, error) {
	current, err := s.owned(ctx, userID, m.ID)
	if err != nil {
		return nil, err
	}
	if err := normalizeMeeting(&m); err != nil {
		return nil, err
	}
	if m.Date == "" {
		m.Date = current.Date
	}

	current.Name, current.Date, current.IsTrip, current.IsSimple = m.Name, m.Date, m.IsTrip, m.IsSimple
	if err := s.store.UpdateMeeting(ctx, current); err != nil {
		return nil, err
	}

	s.publish(current.ID, "meeting", "updated", current.ID)
	return current, nil
}

// DeleteMeeting removes a meeting with everything in it.
func (s *MeetingService) DeleteMeeting(ctx context.Context, userID string, meetingID int64) error {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return err
	}
	if err := s.store.DeleteMeeting(ctx, meetingID); err != nil {
		return err
	}

	s.logger.Info("Meeting deleted", "meeting_id", meetingID)
	s.publish(meetingID, "meeting", "deleted", meetingID)
	return nil
}

// ListMembers returns members with freshly computed balances.
func (s *MeetingService) ListMembers(ctx context.Context, userID string, meetingID int64) ([]models.Member, error) {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return nil, err
	}
	members, _, err := s.recompute(ctx, meetingID)
	return members, err
}

func memberName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidInput("member name is required")
	}
	return name, nil
}

// CreateMember adds a member. The first member becomes the leader.
func (s *MeetingService) CreateMember(ctx context.Context, userID string, meetingID int64, name string) (*models.Member, error) {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return nil, err
	}
	name, err := memberName(name)
	if err != nil {
		return nil, err
	}

	member := &models.Member{MeetingID: meetingID, Name: name}
	if err := s.store.CreateMember(ctx, member); err != nil {
		return nil, err
	}

	s.logger.Info("Member created", "meeting_id", meetingID, "member_id", member.ID, "leader", member.Leader)
	s.publish(meetingID, "member", "created", member.ID)
	return member, nil
}

// UpdateMember renames a member.
func (s *MeetingService) UpdateMember(ctx context.Context, userID string, meetingID, memberID int64, name string) (*models.Member, error) {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return nil, err
	}
	name, err := memberName(name)
	if err != nil {
		return nil, err
	}

	member := &models.Member{ID: memberID, MeetingID: meetingID, Name: name}
	if err := s.store.UpdateMember(ctx, member); err != nil {
		return nil, err
	}

	s.publish(meetingID, "member", "updated", memberID)
	return s.findMember(ctx, meetingID, memberID)
}

// SetLeader transfers leadership to memberID.
func (s *MeetingService) SetLeader(ctx context.Context, userID string, meetingID, memberID int64) ([]models.Member, error) {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return nil, err
	}
	if err := s.store.SetLeader(ctx, meetingID, memberID); err != nil {
		return nil, err
	}

	s.logger.Info("Leader changed", "meeting_id", meetingID, "member_id", memberID)
	s.publish(meetingID, "member", "leader", memberID)
	members, _, err := s.recompute(ctx, meetingID)
	return members, err
}

// DeleteMember removes a member. The leader and members referenced by any
// payment cannot be removed.
func (s *MeetingService) DeleteMember(ctx context.Context, userID string, meetingID, memberID int64) error {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return err
	}
	if err := s.store.DeleteMember(ctx, meetingID, memberID); err != nil {
		return err
	}

	s.publish(meetingID, "member", "deleted", memberID)
	return nil
}

func (s *MeetingService) findMember(ctx context.Context, meetingID, memberID int64) (*models.Member, error) {
	members, _, err := s.recompute(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		if members[i].ID == memberID {
			return &members[i], nil
		}
	}
	return nil, fmt.Errorf("%w: member %d", storage.ErrNotFound, memberID)
}

// ListPayments returns payments in display order.
func (s *MeetingService) ListPayments(ctx context.Context, userID string, meetingID int64) ([]models.Payment, error) {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, meetingID)
}

// preparePayment validates p against the current members and fills in the
// split price. Invalid payments never reach storage.
func (s *MeetingService) preparePayment(ctx context.Context, meetingID int64, p *models.Payment) error {
	p.MeetingID = meetingID
	p.Place = strings.TrimSpace(p.Place)

	members, err := s.store.ListMembers(ctx, meetingID)
	if err != nil {
		return err
	}
	ledger, err := calculator.Shares(*p, members)
	if err != nil {
		return err
	}
	p.SplitPrice = ledger.Share
	return nil
}

// CreatePayment validates and appends a payment.
func (s *MeetingService) CreatePayment(ctx context.Context, userID string, meetingID int64, p models.Payment) (*models.Payment, error) {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return nil, err
	}
	p.ID = 0
	if err := s.preparePayment(ctx, meetingID, &p); err != nil {
		return nil, err
	}
	if err := s.store.CreatePayment(ctx, &p); err != nil {
		return nil, err
	}

	s.logger.Info("Payment created", "meeting_id", meetingID, "payment_id", p.ID, "price", p.Price)
	s.publish(meetingID, "payment", "created", p.ID)
	return &p, nil
}

// UpdatePayment validates and replaces a payment.
func (s *MeetingService) UpdatePayment(ctx context.Context, userID string, meetingID int64, p models.Payment) (*models.Payment, error) {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return nil, err
	}
	existing, err := s.store.GetPayment(ctx, meetingID, p.ID)
	if err != nil {
		return nil, err
	}
	if err := s.preparePayment(ctx, meetingID, &p); err != nil {
		return nil, err
	}
	p.Order = existing.Order
	if err := s.store.UpdatePayment(ctx, &p); err != nil {
		return nil, err
	}

	s.publish(meetingID, "payment", "updated", p.ID)
	return &p, nil
}

// DeletePayment removes a payment.
func (s *MeetingService) DeletePayment(ctx context.Context, userID string, meetingID, paymentID int64) error {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return err
	}
	if err := s.store.DeletePayment(ctx, meetingID, paymentID); err != nil {
		return err
	}

	s.publish(meetingID, "payment", "deleted", paymentID)
	return nil
}

// ReorderPayments sets the display order. ids must be a permutation of the
// meeting's payments.
func (s *MeetingService) ReorderPayments(ctx context.Context, userID string, meetingID int64, ids []int64) ([]models.Payment, error) {
	if _, err := s.owned(ctx, userID, meetingID); err != nil {
		return nil, err
	}
	if err := s.store.ReorderPayments(ctx, meetingID, ids); err != nil {
		return nil, err
	}

	s.publish(meetingID, "payment", "reordered", 0)
	return s.store.ListPayments(ctx, meetingID)
}

// Settle recomputes balances and routes them through the leader.
func (s *MeetingService) Settle(ctx context.Context, userID string, meetingID int64, roundUp bool) (*Settlement, error) {
	meeting, err := s.owned(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, meeting, roundUp)
}

// SharedSettlement is Settle for unauthenticated share links.
func (s *MeetingService) SharedSettlement(ctx context.Context, shareID string, roundUp bool) (*Settlement, error) {
	meeting, err := s.store.GetMeetingByUUID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, meeting, roundUp)
}

func (s *MeetingService) settle(ctx context.Context, meeting *models.Meeting, roundUp bool) (*Settlement, error) {
	members, payments, err := s.recompute(ctx, meeting.ID)
	if err != nil {
		return nil, err
	}

	transfers, rows, err := calculator.Route(members, roundUp)
	if err != nil {
		s.logger.Error("leader routing failed", "meeting_id", meeting.ID, "error", err)
		return nil, err
	}

	return &Settlement{
		Meeting:   meeting,
		Members:   members,
		Payments:  payments,
		Transfers: transfers,
		Rows:      rows,
	}, nil
}
