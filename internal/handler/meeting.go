package handler

import (
	"log/slog"
	"net/http"

	"github.com/mmynk/nbbang/internal/middleware"
	"github.com/mmynk/nbbang/internal/models"
	"github.com/mmynk/nbbang/internal/service"
)

// MeetingHandler serves meetings, their members and payments, and the
// settlement views.
type MeetingHandler struct {
	meetings *service.MeetingService
	logger   *slog.Logger
}

func NewMeetingHandler(meetings *service.MeetingService, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{meetings: meetings, logger: logger}
}

type meetingRequest struct {
	Name     string `json:"name"`
	Date     string `json:"date"`
	IsTrip   bool   `json:"is_trip"`
	IsSimple bool   `json:"is_simple"`
}

func (req meetingRequest) meeting() models.Meeting {
	return models.Meeting{Name: req.Name, Date: req.Date, IsTrip: req.IsTrip, IsSimple: req.IsSimple}
}

func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.meetings.ListMeetings(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if meetings == nil {
		meetings = []*models.Meeting{}
	}
	writeJSON(w, http.StatusOK, meetings)
}

func (h *MeetingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req meetingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	meeting, err := h.meetings.CreateMeeting(r.Context(), middleware.GetUserID(r.Context()), req.meeting())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, meeting)
}

func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	meeting, err := h.meetings.GetMeeting(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (h *MeetingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req meetingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m := req.meeting()
	m.ID = id
	meeting, err := h.meetings.UpdateMeeting(r.Context(), middleware.GetUserID(r.Context()), m)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	writeJSON(w, http.StatusOK, meeting)
}

func (h *MeetingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.meetings.DeleteMeeting(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transfers returns the leader-routed settlement. ?round_up=true rounds the
// rows members send to the leader up to 10 won.
func (h *MeetingHandler) Transfers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	settlement, err := h.meetings.Settle(r.Context(), middleware.GetUserID(r.Context()), id, queryBool(r, "round_up"))
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}

// Shared serves the public result page data for a share link.
func (h *MeetingHandler) Shared(w http.ResponseWriter, r *http.Request) {
	shareID := r.PathValue("uuid")

	settlement, err := h.meetings.SharedSettlement(r.Context(), shareID, queryBool(r, "round_up"))
	if err != nil {
		writeError(w, h.logger, err, "share_id", shareID)
		return
	}
	writeJSON(w, http.StatusOK, settlement)
}
