package handler

import (
	"log/slog"
	"net/http"

	"github.com/mmynk/nbbang/internal/live"
	"github.com/mmynk/nbbang/internal/middleware"
	"github.com/mmynk/nbbang/internal/service"
)

// LiveHandler streams meeting change events over a websocket.
type LiveHandler struct {
	hub            *live.Hub
	meetings       *service.MeetingService
	originPatterns []string
	logger         *slog.Logger
}

func NewLiveHandler(hub *live.Hub, meetings *service.MeetingService, originPatterns []string, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{hub: hub, meetings: meetings, originPatterns: originPatterns, logger: logger}
}

func (h *LiveHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.meetings.Authorize(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	h.hub.Serve(w, r, id, h.originPatterns)
}
