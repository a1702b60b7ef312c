package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mmynk/nbbang/internal/analyzer"
	"github.com/mmynk/nbbang/internal/draft"
	"github.com/mmynk/nbbang/internal/models"
)

// Image is a receipt photo to analyze. The server forwards the same parts to
// the analyzer, so both sides share one encoding.
type Image = analyzer.Image

// AIMeeting is an AI meeting after reconciliation. Whatever envelope the
// server used, callers only ever see this shape.
type AIMeeting struct {
	ID    int64
	UUID  string
	Draft models.Draft
}

// parseAIMeeting is the tagged-union boundary for AI responses: it finds the
// meeting in any accepted envelope and reconciles it.
func parseAIMeeting(op string, data []byte) (*AIMeeting, error) {
	root, err := draft.ParsePayload(data)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	meeting, err := draft.UnwrapMeeting(root)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}
	d, err := draft.Reconcile(meeting)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: err}
	}

	fields := meeting.GetFields()
	return &AIMeeting{
		ID:    int64(fields["id"].GetNumberValue()),
		UUID:  fields["uuid"].GetStringValue(),
		Draft: d,
	}, nil
}

func (c *Client) aiRequest(ctx context.Context, method, path string, in any) (*AIMeeting, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, method, path, in, &raw); err != nil {
		return nil, err
	}
	return parseAIMeeting(method+" "+path, raw)
}

// AnalyzeReceipts starts an AI settlement from receipt images and a prompt.
func (c *Client) AnalyzeReceipts(ctx context.Context, images []Image, prompt string) (*AIMeeting, error) {
	body, contentType, err := analyzer.EncodeForm(images, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode form: %w", err)
	}

	op := "POST /ai/settlement"
	data, err := c.send(ctx, http.MethodPost, "/ai/settlement", body, contentType)
	if err != nil {
		return nil, err
	}
	return parseAIMeeting(op, data)
}

// ModifyDraft applies a follow-up instruction to an AI meeting.
func (c *Client) ModifyDraft(ctx context.Context, meetingID int64, prompt string) (*AIMeeting, error) {
	return c.aiRequest(ctx, http.MethodPost, meetingPath(meetingID, "modify"), map[string]string{"prompt": prompt})
}

func (c *Client) GetAIMeeting(ctx context.Context, meetingID int64) (*AIMeeting, error) {
	return c.aiRequest(ctx, http.MethodGet, fmt.Sprintf("/meeting/ai/%d", meetingID), nil)
}

// GetSharedAIMeeting needs no session.
func (c *Client) GetSharedAIMeeting(ctx context.Context, shareID string) (*AIMeeting, error) {
	return c.aiRequest(ctx, http.MethodGet, "/meeting/ai/uuid/"+url.PathEscape(shareID), nil)
}

type saveBody struct {
	Name    string             `json:"name"`
	Date    string             `json:"date"`
	Members []string           `json:"members"`
	Items   []models.DraftItem `json:"items"`
}

// SaveDraft validates d locally and only then persists it.
func (c *Client) SaveDraft(ctx context.Context, meetingID int64, d models.Draft) (*AIMeeting, error) {
	if err := draft.Validate(d); err != nil {
		return nil, err
	}
	body := saveBody{Name: d.MeetingName, Date: d.Date, Members: d.Members, Items: d.Items}
	return c.aiRequest(ctx, http.MethodPut, meetingPath(meetingID, "ai"), body)
}
