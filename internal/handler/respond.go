// Package handler implements the REST API. Every error body has the shape
// {"detail": "..."}.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mmynk/nbbang/internal/analyzer"
	"github.com/mmynk/nbbang/internal/auth"
	"github.com/mmynk/nbbang/internal/calculator"
	"github.com/mmynk/nbbang/internal/draft"
	"github.com/mmynk/nbbang/internal/quota"
	"github.com/mmynk/nbbang/internal/service"
	"github.com/mmynk/nbbang/internal/storage"
)

type errorBody struct {
	Detail   string   `json:"detail"`
	Problems []string `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// NotFound answers unmatched API paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusNotFound, "not found")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// writeError maps domain errors to status codes. Anything unrecognized is a
// 500 whose cause is logged but not exposed.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, attrs ...any) {
	var (
		invalidPayment *calculator.InvalidPaymentError
		invalidDraft   *draft.InvalidDraftError
		upstream       *analyzer.UpstreamError
	)

	switch {
	case errors.As(err, &invalidDraft):
		body := errorBody{Detail: "draft is not valid"}
		for _, v := range invalidDraft.Violations() {
			body.Problems = append(body.Problems, v.Error())
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &invalidPayment):
		writeDetail(w, http.StatusBadRequest, invalidPayment.Error())
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, storage.ErrInvalidOrder),
		errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, quota.ErrDailyLimit):
		writeDetail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrLeaderMember), errors.Is(err, storage.ErrMemberInUse),
		errors.Is(err, storage.ErrDuplicateMember), errors.Is(err, auth.ErrEmailExists):
		writeDetail(w, http.StatusConflict, err.Error())
	case errors.Is(err, quota.ErrServerBusy), errors.Is(err, analyzer.ErrDisabled):
		writeDetail(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &upstream), errors.Is(err, service.ErrBadAnalysis):
		writeDetail(w, http.StatusBadGateway, "AI analysis failed")
	default:
		logger.Error("request failed", append(attrs, "error", err)...)
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}
