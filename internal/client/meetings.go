package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sethvargo/go-retry"

	"github.com/mmynk/nbbang/internal/calculator"
	"github.com/mmynk/nbbang/internal/models"
)

// User is the signed-in account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Register creates an account and stores its token in the session.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	return c.startSession(ctx, "/user/register", map[string]string{
		"email": email, "password": password, "display_name": displayName,
	})
}

// Login signs in and stores the token in the session.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.startSession(ctx, "/user/login", map[string]string{"email": email, "password": password})
}

func (c *Client) startSession(ctx context.Context, path string, body map[string]string) (*User, error) {
	var s session
	if err := c.doJSON(ctx, http.MethodPost, path, body, &s); err != nil {
		return nil, err
	}
	c.session.SetToken(s.Token)
	return &s.User, nil
}

// Me returns the account behind the stored token. A stale token fails with
// ErrUnauthorized and is cleared.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.doJSON(ctx, http.MethodGet, "/user/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout clears the session even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	defer c.session.Clear()
	return c.doJSON(ctx, http.MethodPost, "/user/logout", nil, nil)
}

func (c *Client) ListMeetings(ctx context.Context) ([]models.Meeting, error) {
	var meetings []models.Meeting
	err := c.doJSON(ctx, http.MethodGet, "/meeting", nil, &meetings)
	return meetings, err
}

func (c *Client) CreateMeeting(ctx context.Context, name, date string) (*models.Meeting, error) {
	var m models.Meeting
	if err := c.doJSON(ctx, http.MethodPost, "/meeting", map[string]string{"name": name, "date": date}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) GetMeeting(ctx context.Context, meetingID int64) (*models.Meeting, error) {
	var m models.Meeting
	if err := c.doJSON(ctx, http.MethodGet, meetingPath(meetingID), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) DeleteMeeting(ctx context.Context, meetingID int64) error {
	return c.doJSON(ctx, http.MethodDelete, meetingPath(meetingID), nil, nil)
}

func meetingPath(meetingID int64, parts ...any) string {
	p := fmt.Sprintf("/meeting/%d", meetingID)
	for _, part := range parts {
		p += fmt.Sprintf("/%v", part)
	}
	return p
}

// Members returns the meeting's members with server-computed amounts.
func (c *Client) Members(ctx context.Context, meetingID int64) ([]models.Member, error) {
	var members []models.Member
	err := c.doJSON(ctx, http.MethodGet, meetingPath(meetingID, "member"), nil, &members)
	return members, err
}

func (c *Client) CreateMember(ctx context.Context, meetingID int64, name string) (*models.Member, error) {
	var m models.Member
	if err := c.doJSON(ctx, http.MethodPost, meetingPath(meetingID, "member"), map[string]string{"name": name}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) UpdateMember(ctx context.Context, meetingID, memberID int64, name string) (*models.Member, error) {
	var m models.Member
	if err := c.doJSON(ctx, http.MethodPut, meetingPath(meetingID, "member", memberID), map[string]string{"name": name}, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMember fails with a 409 APIError for the leader or a member still
// referenced by a payment.
func (c *Client) DeleteMember(ctx context.Context, meetingID, memberID int64) error {
	return c.doJSON(ctx, http.MethodDelete, meetingPath(meetingID, "member", memberID), nil, nil)
}

func (c *Client) SetLeader(ctx context.Context, meetingID, memberID int64) ([]models.Member, error) {
	var members []models.Member
	err := c.doJSON(ctx, http.MethodPut, meetingPath(meetingID, "member", memberID, "leader"), nil, &members)
	return members, err
}

func (c *Client) Payments(ctx context.Context, meetingID int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := c.doJSON(ctx, http.MethodGet, meetingPath(meetingID, "payment"), nil, &payments)
	return payments, err
}

type paymentBody struct {
	Place           string  `json:"place"`
	Price           int64   `json:"price"`
	PayMemberID     int64   `json:"pay_member_id"`
	AttendMemberIDs []int64 `json:"attend_member_ids"`
}

func newPaymentBody(p models.Payment) paymentBody {
	return paymentBody{Place: p.Place, Price: p.Price, PayMemberID: p.PayMemberID, AttendMemberIDs: p.AttendMemberIDs}
}

// CreatePayment validates p against members and only then sends it. An
// invalid payment never reaches the network.
func (c *Client) CreatePayment(ctx context.Context, meetingID int64, p models.Payment, members []models.Member) (*models.Payment, error) {
	if err := calculator.ValidatePayment(p, members); err != nil {
		return nil, err
	}
	var created models.Payment
	if err := c.doJSON(ctx, http.MethodPost, meetingPath(meetingID, "payment"), newPaymentBody(p), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePayment validates like CreatePayment.
func (c *Client) UpdatePayment(ctx context.Context, meetingID int64, p models.Payment, members []models.Member) (*models.Payment, error) {
	if err := calculator.ValidatePayment(p, members); err != nil {
		return nil, err
	}
	var updated models.Payment
	if err := c.doJSON(ctx, http.MethodPut, meetingPath(meetingID, "payment", p.ID), newPaymentBody(p), &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeletePayment(ctx context.Context, meetingID, paymentID int64) error {
	return c.doJSON(ctx, http.MethodDelete, meetingPath(meetingID, "payment", paymentID), nil, nil)
}

// ReorderPayments sends the complete list of payment IDs in display order.
func (c *Client) ReorderPayments(ctx context.Context, meetingID int64, ids []int64) ([]models.Payment, error) {
	var payments []models.Payment
	err := c.doJSON(ctx, http.MethodPut, meetingPath(meetingID, "payment", "order"), ids, &payments)
	return payments, err
}

// Settlement is a meeting's recomputed balances and transfers.
type Settlement struct {
	Meeting   *models.Meeting          `json:"meeting"`
	Members   []models.Member          `json:"members"`
	Payments  []models.Payment         `json:"payments"`
	Transfers []calculator.Transfer    `json:"transfers"`
	Rows      []calculator.TransferRow `json:"rows"`
}

// Empty reports whether there is nothing to show.
func (s *Settlement) Empty() bool {
	return s.Meeting == nil && len(s.Members) == 0
}

func (c *Client) Transfers(ctx context.Context, meetingID int64, roundUp bool) (*Settlement, error) {
	var s Settlement
	path := meetingPath(meetingID, "transfer") + roundUpQuery(roundUp)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SharedSettlement loads a share page. A page that was just created may not
// be readable yet, so transport errors, 404s and 5xx are retried a bounded
// number of times; after that an empty settlement is returned instead of an
// error.
func (c *Client) SharedSettlement(ctx context.Context, shareID string, roundUp bool) (*Settlement, error) {
	path := "/meeting/uuid/" + url.PathEscape(shareID) + roundUpQuery(roundUp)

	var result Settlement
	attempts := 0
	backoff := retry.WithMaxRetries(c.shareAttempts-1, retry.NewConstant(c.shareBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := c.doJSON(ctx, http.MethodGet, path, nil, &result)
		if transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	switch {
	case err == nil:
		return &result, nil
	case transient(err):
		c.logger.Warn("shared result unavailable", "share_id", shareID, "attempts", attempts, "error", err)
		return &Settlement{}, nil
	default:
		return nil, err
	}
}

func transient(err error) bool {
	var (
		netErr *NetworkError
		apiErr *APIError
	)
	if errors.As(err, &netErr) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status >= 500)
}

func roundUpQuery(roundUp bool) string {
	if roundUp {
		return "?round_up=true"
	}
	return ""
}
