package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/mmynk/nbbang/internal/analyzer"
	"github.com/mmynk/nbbang/internal/middleware"
	"github.com/mmynk/nbbang/internal/models"
	"github.com/mmynk/nbbang/internal/service"
)

const (
	maxImages      = 10
	maxUploadBytes = 32 << 20
)

// AIHandler serves the AI settlement flow.
type AIHandler struct {
	ai     *service.AIService
	logger *slog.Logger
}

func NewAIHandler(ai *service.AIService, logger *slog.Logger) *AIHandler {
	return &AIHandler{ai: ai, logger: logger}
}

// aiResponse wraps AI meetings the way the client's first envelope shape
// expects.
type aiResponse struct {
	Meeting *service.AIMeeting `json:"meeting"`
}

// Create accepts multipart images[] and prompt fields.
func (h *AIHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["images[]"]
		if len(headers) == 0 {
			headers = r.MultipartForm.File["images"]
		}
	}
	if len(headers) > maxImages {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("at most %d images per request", maxImages))
		return
	}

	images, err := readImages(headers)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "failed to read uploaded images")
		return
	}

	userID := middleware.GetUserID(r.Context())
	meeting, err := h.ai.Create(r.Context(), userID, images, r.FormValue("prompt"))
	if err != nil {
		writeError(w, h.logger, err, "user_id", userID)
		return
	}
	writeJSON(w, http.StatusCreated, aiResponse{Meeting: meeting})
}

func readImages(headers []*multipart.FileHeader) ([]analyzer.Image, error) {
	images := make([]analyzer.Image, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		images = append(images, analyzer.Image{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return images, nil
}

type modifyRequest struct {
	Prompt string `json:"prompt"`
}

func (h *AIHandler) Modify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req modifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	meeting, err := h.ai.Modify(r.Context(), middleware.GetUserID(r.Context()), id, req.Prompt)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	writeJSON(w, http.StatusOK, aiResponse{Meeting: meeting})
}

func (h *AIHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	meeting, err := h.ai.Get(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	writeJSON(w, http.StatusOK, aiResponse{Meeting: meeting})
}

func (h *AIHandler) Shared(w http.ResponseWriter, r *http.Request) {
	shareID := r.PathValue("uuid")

	meeting, err := h.ai.GetShared(r.Context(), shareID)
	if err != nil {
		writeError(w, h.logger, err, "share_id", shareID)
		return
	}
	writeJSON(w, http.StatusOK, aiResponse{Meeting: meeting})
}

type saveRequest struct {
	Name    string             `json:"name"`
	Date    string             `json:"date"`
	Members []string           `json:"members"`
	Items   []models.DraftItem `json:"items"`
}

// Save stores a user-edited draft after validating it.
func (h *AIHandler) Save(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req saveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d := models.Draft{MeetingName: req.Name, Date: req.Date, Members: req.Members, Items: req.Items}
	meeting, err := h.ai.Save(r.Context(), middleware.GetUserID(r.Context()), id, d)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	writeJSON(w, http.StatusOK, aiResponse{Meeting: meeting})
}
