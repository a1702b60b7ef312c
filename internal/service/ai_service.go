package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/nbbang/internal/analyzer"
	"github.com/mmynk/nbbang/internal/draft"
	"github.com/mmynk/nbbang/internal/metrics"
	"github.com/mmynk/nbbang/internal/models"
	"github.com/mmynk/nbbang/internal/quota"
	"github.com/mmynk/nbbang/internal/storage"
)

// Analyzer produces raw settlement payloads from receipts and instructions.
type Analyzer interface {
	Analyze(ctx context.Context, images []analyzer.Image, prompt string) ([]byte, error)
	Modify(ctx context.Context, current models.Draft, prompt string) ([]byte, error)
}

// ErrBadAnalysis is returned when the analyzer answered with something that
// does not reconcile into a draft.
var ErrBadAnalysis = errors.New("analyzer returned an unusable settlement")

// AIMeeting is an AI meeting with its draft flattened in, so the client can
// reconcile it the same way it reconciles analyzer output.
type AIMeeting struct {
	models.Meeting
	Members []string           `json:"members"`
	Items   []models.DraftItem `json:"items"`
}

func newAIMeeting(m *models.Meeting, d *models.Draft) *AIMeeting {
	return &AIMeeting{Meeting: *m, Members: d.Members, Items: d.Items}
}

// AIService runs the AI settlement flow: analyze, modify, fetch and save.
type AIService struct {
	store    storage.Store
	analyzer Analyzer
	daily    *quota.Daily
	capacity *quota.Capacity
	meetings *MeetingService
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewAIService wires the AI flow.
func NewAIService(store storage.Store, a Analyzer, daily *quota.Daily, capacity *quota.Capacity, meetings *MeetingService, m *metrics.Metrics, logger *slog.Logger) *AIService {
	return &AIService{
		store:    store,
		analyzer: a,
		daily:    daily,
		capacity: capacity,
		meetings: meetings,
		metrics:  m,
		logger:   logger.With("component", "ai"),
	}
}

// acquire takes a server slot, and a daily allowance when the request carries
// images. Text-only requests are not counted against the daily limit.
func (s *AIService) acquire(ctx context.Context, kind, userID string, withImages bool) (release func(ok bool), err error) {
	refund := func(context.Context) error { return nil }
	if withImages {
		if refund, err = s.daily.Reserve(ctx, userID); err != nil {
			if errors.Is(err, quota.ErrDailyLimit) {
				s.metrics.ObserveAI(kind, metrics.OutcomePersonalQuota)
				s.logger.Info("daily AI limit reached", "user_id", userID, "limit", s.daily.Limit())
			}
			return nil, err
		}
	}

	slot, err := s.capacity.Acquire()
	if err != nil {
		if err := refund(ctx); err != nil {
			s.logger.Warn("failed to refund AI allowance", "user_id", userID, "error", err)
		}
		s.metrics.ObserveAI(kind, metrics.OutcomeServerBusy)
		s.logger.Warn("AI capacity exhausted", "user_id", userID)
		return nil, err
	}
	s.metrics.AIStarted()

	return func(ok bool) {
		slot()
		s.metrics.AIFinished()
		if !ok {
			// Give the allowance back on a request context that may be done.
			if err := refund(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to refund AI allowance", "user_id", userID, "error", err)
			}
		}
	}, nil
}

func (s *AIService) reconcile(kind string, raw []byte) (models.Draft, error) {
	d, err := draft.ReconcileJSON(raw)
	if err != nil {
		s.metrics.ObserveAI(kind, metrics.OutcomeInvalid)
		return models.Draft{}, fmt.Errorf("%w: %v", ErrBadAnalysis, err)
	}
	return d, nil
}

// Create analyzes receipts and a prompt into a new AI meeting.
func (s *AIService) Create(ctx context.Context, userID string, images []analyzer.Image, prompt string) (*AIMeeting, error) {
	prompt = strings.TrimSpace(prompt)
	if len(images) == 0 && prompt == "" {
		return nil, invalidInput("an image or a prompt is required")
	}

	release, err := s.acquire(ctx, "create", userID, len(images) > 0)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() { release(ok) }()

	raw, err := s.analyzer.Analyze(ctx, images, prompt)
	if err != nil {
		s.metrics.ObserveAI("create", metrics.OutcomeUpstreamError)
		s.logger.Error("analysis failed", "user_id", userID, "images", len(images), "error", err)
		return nil, err
	}
	d, err := s.reconcile("create", raw)
	if err != nil {
		return nil, err
	}

	if d.MeetingName == "" {
		d.MeetingName = "AI settlement"
	}
	if d.Date == "" {
		d.Date = s.daily.Today()
	}

	meeting := &models.Meeting{OwnerID: userID, Name: d.MeetingName, Date: d.Date, IsAI: true}
	if err := s.store.CreateAIMeeting(ctx, meeting, d); err != nil {
		s.logger.Error("failed to store AI meeting", "user_id", userID, "error", err)
		return nil, err
	}
	ok = true

	s.metrics.ObserveAI("create", metrics.OutcomeOK)
	s.logger.Info("AI meeting created", "meeting_id", meeting.ID, "items", len(d.Items), "members", len(d.Members))
	return newAIMeeting(meeting, &d), nil
}

// Modify applies a follow-up instruction to an AI meeting's draft. On any
// failure the stored draft is left as it was.
func (s *AIService) Modify(ctx context.Context, userID string, meetingID int64, prompt string) (*AIMeeting, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, invalidInput("prompt is required")
	}
	meeting, current, err := s.load(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, "modify", userID, false)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() { release(ok) }()

	raw, err := s.analyzer.Modify(ctx, *current, prompt)
	if err != nil {
		s.metrics.ObserveAI("modify", metrics.OutcomeUpstreamError)
		s.logger.Error("modification failed", "meeting_id", meetingID, "error", err)
		return nil, err
	}
	d, err := s.reconcile("modify", raw)
	if err != nil {
		return nil, err
	}

	if d.MeetingName == "" {
		d.MeetingName = current.MeetingName
	}
	if d.Date == "" {
		d.Date = current.Date
	}
	if err := s.store.SaveDraft(ctx, meetingID, d); err != nil {
		s.logger.Error("failed to store modified draft", "meeting_id", meetingID, "error", err)
		return nil, err
	}
	ok = true
	meeting.Name, meeting.Date = d.MeetingName, d.Date

	s.metrics.ObserveAI("modify", metrics.OutcomeOK)
	s.meetings.publish(meetingID, "draft", "modified", meetingID)
	return newAIMeeting(meeting, &d), nil
}

// Get returns one of userID's AI meetings.
func (s *AIService) Get(ctx context.Context, userID string, meetingID int64) (*AIMeeting, error) {
	meeting, d, err := s.load(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	return newAIMeeting(meeting, d), nil
}

// GetShared returns an AI meeting by share UUID without authentication.
func (s *AIService) GetShared(ctx context.Context, shareID string) (*AIMeeting, error) {
	meeting, err := s.store.GetMeetingByUUID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if !meeting.IsAI {
		return nil, fmt.Errorf("%w: AI meeting %s", storage.ErrNotFound, shareID)
	}
	d, err := s.store.GetDraft(ctx, meeting.ID)
	if err != nil {
		return nil, err
	}
	return newAIMeeting(meeting, d), nil
}

// Save validates edited draft content and stores it.
func (s *AIService) Save(ctx context.Context, userID string, meetingID int64, d models.Draft) (*AIMeeting, error) {
	meeting, _, err := s.load(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}

	d.MeetingName = strings.TrimSpace(d.MeetingName)
	if d.Date == "" {
		d.Date = meeting.Date
	} else if _, err := time.Parse(time.DateOnly, d.Date); err != nil {
		return nil, invalidInput("date must be YYYY-MM-DD")
	}
	if err := draft.Validate(d); err != nil {
		return nil, err
	}

	if err := s.store.SaveDraft(ctx, meetingID, d); err != nil {
		return nil, err
	}
	meeting.Name, meeting.Date = d.MeetingName, d.Date

	s.logger.Info("AI draft saved", "meeting_id", meetingID, "items", len(d.Items))
	s.meetings.publish(meetingID, "draft", "saved", meetingID)
	return newAIMeeting(meeting, &d), nil
}

func (s *AIService) load(ctx context.Context, userID string, meetingID int64) (*models.Meeting, *models.Draft, error) {
	meeting, err := s.meetings.owned(ctx, userID, meetingID)
	if err != nil {
		return nil, nil, err
	}
	if !meeting.IsAI {
		return nil, nil, fmt.Errorf("%w: AI meeting %d", storage.ErrNotFound, meetingID)
	}
	d, err := s.store.GetDraft(ctx, meetingID)
	if err != nil {
		return nil, nil, err
	}
	return meeting, d, nil
}
