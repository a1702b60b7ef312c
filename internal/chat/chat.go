// Package chat drives the AI settlement conversation: the first submission
// creates a draft, later ones modify it, and the user confirms or edits it
// before saving.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/mmynk/nbbang/internal/client"
	"github.com/mmynk/nbbang/internal/draft"
	"github.com/mmynk/nbbang/internal/models"
)

// State is a conversation's position in the create/modify cycle.
type State int

const (
	Empty State = iota
	LoadingCreate
	AwaitingConfirmation
	LoadingModify
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case LoadingCreate:
		return "loading_create"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	case LoadingModify:
		return "loading_modify"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrInFlight   = errors.New("a request is already in flight")
	ErrEmptyInput = errors.New("send a receipt image or a message")
	ErrTextOnly   = errors.New("image analysis is used up for today, describe the receipt in text")
	ErrNoDraft    = errors.New("there is no draft to confirm yet")
)

// Messages shown to the user after a failed turn.
const (
	quotaMessage  = "You have used all of today's receipt analyses. You can keep going by describing the receipt in text."
	busyMessage   = "A lot of people are settling up right now. Please try again in a moment."
	signInMessage = "Your session has expired. Please sign in again."
	failMessage   = "Something went wrong. Please try again."
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role Role
	Text string
}

// API is the part of client.Client a conversation needs.
type API interface {
	AnalyzeReceipts(ctx context.Context, images []client.Image, prompt string) (*client.AIMeeting, error)
	ModifyDraft(ctx context.Context, meetingID int64, prompt string) (*client.AIMeeting, error)
	GetAIMeeting(ctx context.Context, meetingID int64) (*client.AIMeeting, error)
	SaveDraft(ctx context.Context, meetingID int64, d models.Draft) (*client.AIMeeting, error)
}

// Conversation is one AI settlement chat.
type Conversation struct {
	api     API
	session *client.SessionContext
	key     string
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	meetingID int64
	shareID   string
	draft     models.Draft
	messages  []Message
	textOnly  bool
	survey    bool
	notice    string
}

// New starts a conversation and makes it the active context, so results still
// in flight for the previous conversation are discarded.
func New(api API, session *client.SessionContext, key string, logger *slog.Logger) *Conversation {
	c := &Conversation{api: api, session: session, key: key, logger: logger.With("component", "chat", "conversation", key)}
	c.Activate()
	return c
}

// Activate makes this conversation the active one again.
func (c *Conversation) Activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Activate("chat:" + c.key)
}

// Resume loads an existing AI meeting and waits for confirmation.
func (c *Conversation) Resume(ctx context.Context, meetingID int64) error {
	c.mu.Lock()
	if c.state == LoadingCreate || c.state == LoadingModify {
		c.mu.Unlock()
		return ErrInFlight
	}
	guard := c.session.Guard()
	c.mu.Unlock()

	res, err := c.api.GetAIMeeting(ctx, meetingID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if stale := guard.Check(); stale != nil {
		return stale
	}
	if err != nil {
		return err
	}
	c.apply(res)
	return nil
}

// Submit sends a turn. The first turn analyzes images and prompt into a new
// draft; later turns send prompt as a modification. On failure the
// conversation returns to where it was and the last good draft is kept.
func (c *Conversation) Submit(ctx context.Context, images []client.Image, prompt string) error {
	prompt = strings.TrimSpace(prompt)

	c.mu.Lock()
	prior := c.state
	switch {
	case prior == LoadingCreate || prior == LoadingModify:
		c.mu.Unlock()
		return ErrInFlight
	case len(images) > 0 && c.textOnly:
		c.mu.Unlock()
		return ErrTextOnly
	case len(images) == 0 && prompt == "":
		c.mu.Unlock()
		return ErrEmptyInput
	}

	if prior == Empty {
		c.state = LoadingCreate
	} else {
		c.state = LoadingModify
	}
	c.messages = append(c.messages, Message{Role: RoleUser, Text: userText(images, prompt)})
	c.notice = ""
	meetingID := c.meetingID
	guard := c.session.Guard()
	c.mu.Unlock()

	var (
		res *client.AIMeeting
		err error
	)
	if prior == Empty {
		res, err = c.api.AnalyzeReceipts(ctx, images, prompt)
	} else {
		res, err = c.api.ModifyDraft(ctx, meetingID, prompt)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if stale := guard.Check(); stale != nil {
		c.state = prior
		c.logger.Debug("dropping result for inactive conversation")
		return stale
	}
	if err != nil {
		c.state = prior
		c.fail(err)
		return err
	}

	c.apply(res)
	if prior == Empty {
		c.say(fmt.Sprintf("I found %d items for %d people. Check them and confirm, or tell me what to change.", len(res.Draft.Items), len(res.Draft.Members)))
	} else {
		c.say("Updated. Anything else to change?")
	}
	return nil
}

func userText(images []client.Image, prompt string) string {
	switch {
	case len(images) == 0:
		return prompt
	case prompt == "":
		return fmt.Sprintf("[%d receipt images]", len(images))
	default:
		return fmt.Sprintf("[%d receipt images] %s", len(images), prompt)
	}
}

func (c *Conversation) apply(res *client.AIMeeting) {
	c.draft = res.Draft.Clone()
	c.meetingID = res.ID
	c.shareID = res.UUID
	c.state = AwaitingConfirmation
}

func (c *Conversation) say(text string) {
	c.messages = append(c.messages, Message{Role: RoleAssistant, Text: text})
}

// fail turns an error into one assistant message, and switches to text-only
// input when the daily image quota is gone.
func (c *Conversation) fail(err error) {
	var quota *client.QuotaExceededError
	switch {
	case errors.As(err, &quota) && quota.Scope == client.ScopePersonal:
		c.textOnly = true
		c.survey = true
		c.say(quotaMessage)
	case errors.As(err, &quota):
		c.notice = busyMessage
		c.say(busyMessage)
	case errors.Is(err, client.ErrUnauthorized):
		c.say(signInMessage)
	default:
		c.logger.Warn("turn failed", "error", err)
		c.say(failMessage)
	}
}

// Edit applies fn to a copy of the draft and keeps the copy only if fn
// succeeds.
func (c *Conversation) Edit(fn func(d *models.Draft) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != AwaitingConfirmation {
		return ErrNoDraft
	}

	next := c.draft.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	c.draft = next
	return nil
}

// Save validates the draft and persists it. A draft that fails validation is
// kept for further editing.
func (c *Conversation) Save(ctx context.Context) error {
	c.mu.Lock()
	if c.state != AwaitingConfirmation {
		c.mu.Unlock()
		return ErrNoDraft
	}
	d := c.draft.Clone()
	meetingID := c.meetingID
	guard := c.session.Guard()
	c.mu.Unlock()

	if err := draft.Validate(d); err != nil {
		return err
	}
	res, err := c.api.SaveDraft(ctx, meetingID, d)

	c.mu.Lock()
	defer c.mu.Unlock()
	if stale := guard.Check(); stale != nil {
		return stale
	}
	if err != nil {
		c.fail(err)
		return err
	}
	c.apply(res)
	return nil
}

func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Draft returns a copy of the current draft.
func (c *Conversation) Draft() models.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

func (c *Conversation) MeetingID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meetingID
}

func (c *Conversation) ShareID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shareID
}

func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// TextOnly reports whether image input is disabled for the rest of the day.
func (c *Conversation) TextOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.textOnly
}

// SurveyPrompt reports whether the feedback survey should be offered.
func (c *Conversation) SurveyPrompt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.survey
}

func (c *Conversation) DismissSurvey() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.survey = false
}

// Notice is a transient banner, such as the server-busy message.
func (c *Conversation) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}
