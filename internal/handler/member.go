package handler

import (
	"net/http"

	"github.com/mmynk/nbbang/internal/middleware"
	"github.com/mmynk/nbbang/internal/models"
)

type memberRequest struct {
	Name string `json:"name"`
}

// ListMembers returns members with balances recomputed from every payment.
func (h *MeetingHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	members, err := h.meetings.ListMembers(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MeetingHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	member, err := h.meetings.CreateMember(r.Context(), middleware.GetUserID(r.Context()), id, req.Name)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	writeJSON(w, http.StatusCreated, member)
}

func (h *MeetingHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	var req memberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	member, err := h.meetings.UpdateMember(r.Context(), middleware.GetUserID(r.Context()), id, memberID, req.Name)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id, "member_id", memberID)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

// SetLeader hands leadership to memberId and returns the updated members.
func (h *MeetingHandler) SetLeader(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}

	members, err := h.meetings.SetLeader(r.Context(), middleware.GetUserID(r.Context()), id, memberID)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id, "member_id", memberID)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MeetingHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}

	if err := h.meetings.DeleteMember(r.Context(), middleware.GetUserID(r.Context()), id, memberID); err != nil {
		writeError(w, h.logger, err, "meeting_id", id, "member_id", memberID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
