// Package view holds the state of the meeting screen: members with balances
// recomputed locally from the full payment list, and the leader-routed
// transfers derived from them.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mmynk/nbbang/internal/calculator"
	"github.com/mmynk/nbbang/internal/client"
	"github.com/mmynk/nbbang/internal/models"
)

// ErrBusy is returned while another payment submission is in flight.
var ErrBusy = errors.New("a payment is already being submitted")

// API is the part of client.Client the view needs.
type API interface {
	Members(ctx context.Context, meetingID int64) ([]models.Member, error)
	Payments(ctx context.Context, meetingID int64) ([]models.Payment, error)
	CreatePayment(ctx context.Context, meetingID int64, p models.Payment, members []models.Member) (*models.Payment, error)
}

// State is everything the meeting screen renders.
type State struct {
	MeetingID int64
	Members   []models.Member
	Payments  []models.Payment
	Transfers []calculator.Transfer
	Rows      []calculator.TransferRow

	// RoundUp only changes Rows. It is not persisted.
	RoundUp bool

	// Skipped counts malformed payments that contributed nothing.
	Skipped int
}

func (s State) clone() State {
	s.Members = slices.Clone(s.Members)
	s.Payments = slices.Clone(s.Payments)
	s.Transfers = slices.Clone(s.Transfers)
	s.Rows = slices.Clone(s.Rows)
	return s
}

// MeetingView owns the displayed meeting's member and payment lists.
type MeetingView struct {
	api     API
	session *client.SessionContext
	logger  *slog.Logger

	mu    sync.Mutex
	state State
	busy  bool
}

func New(api API, session *client.SessionContext, logger *slog.Logger) *MeetingView {
	return &MeetingView{api: api, session: session, logger: logger.With("component", "view")}
}

func contextKey(meetingID int64) string {
	return fmt.Sprintf("meeting:%d", meetingID)
}

// State returns a copy of the current state.
func (v *MeetingView) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state.clone()
}

// Open switches the view to meetingID and loads it. Responses still in flight
// for the previous meeting are dropped when they arrive.
func (v *MeetingView) Open(ctx context.Context, meetingID int64) error {
	v.mu.Lock()
	v.session.Activate(contextKey(meetingID))
	guard := v.session.Guard()
	v.state = State{MeetingID: meetingID, RoundUp: v.state.RoundUp}
	v.mu.Unlock()

	return v.load(ctx, meetingID, guard)
}

// Refresh reloads the current meeting.
func (v *MeetingView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	meetingID := v.state.MeetingID
	guard := v.session.Guard()
	v.mu.Unlock()

	return v.load(ctx, meetingID, guard)
}

// load fetches and recomputes meetingID, applying the result only if guard is
// still current.
func (v *MeetingView) load(ctx context.Context, meetingID int64, guard client.Guard) error {
	members, err := v.api.Members(ctx, meetingID)
	if err != nil {
		return v.dropIfStale(guard, err)
	}
	payments, err := v.api.Payments(ctx, meetingID)
	if err != nil {
		return v.dropIfStale(guard, err)
	}

	// The full recompute finishes before anything derived from it is built.
	balanced, skipped := calculator.RecomputeBalances(members, payments)
	for _, err := range skipped {
		v.logger.Warn("payment skipped", "meeting_id", meetingID, "error", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := guard.Check(); err != nil {
		v.logger.Debug("dropping stale meeting response", "meeting_id", meetingID, "active", v.session.Active())
		return err
	}

	transfers, rows, err := calculator.Route(balanced, v.state.RoundUp)
	if err != nil {
		return err
	}
	v.state = State{
		MeetingID: meetingID,
		Members:   balanced,
		Payments:  payments,
		Transfers: transfers,
		Rows:      rows,
		RoundUp:   v.state.RoundUp,
		Skipped:   len(skipped),
	}
	return nil
}

func (v *MeetingView) dropIfStale(guard client.Guard, err error) error {
	if stale := guard.Check(); stale != nil {
		return stale
	}
	return err
}

// SetRoundUp toggles rounding of the rows members send to the leader.
// Transfer amounts are left untouched.
func (v *MeetingView) SetRoundUp(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.state.RoundUp = on
	var leaderID int64
	if leader, err := calculator.Leader(v.state.Members); err == nil {
		leaderID = leader.ID
	}
	v.state.Rows = calculator.RenderTransfers(v.state.Transfers, leaderID, on)
}

// AddPayment validates p locally, submits it and reloads the meeting. Only
// one submission may be in flight; a second one fails with ErrBusy.
func (v *MeetingView) AddPayment(ctx context.Context, p models.Payment) (*models.Payment, error) {
	v.mu.Lock()
	if v.busy {
		v.mu.Unlock()
		return nil, ErrBusy
	}
	meetingID := v.state.MeetingID
	members := slices.Clone(v.state.Members)
	if err := calculator.ValidatePayment(p, members); err != nil {
		v.mu.Unlock()
		return nil, err
	}
	v.busy = true
	guard := v.session.Guard()
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.busy = false
		v.mu.Unlock()
	}()

	created, err := v.api.CreatePayment(ctx, meetingID, p, members)
	if err != nil {
		return nil, v.dropIfStale(guard, err)
	}
	return created, v.load(ctx, meetingID, guard)
}
