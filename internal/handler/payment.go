package handler

import (
	"net/http"

	"github.com/mmynk/nbbang/internal/middleware"
	"github.com/mmynk/nbbang/internal/models"
)

type paymentRequest struct {
	Place           string  `json:"place"`
	Price           int64   `json:"price"`
	PayMemberID     int64   `json:"pay_member_id"`
	AttendMemberIDs []int64 `json:"attend_member_ids"`
}

func (req paymentRequest) payment() models.Payment {
	return models.Payment{
		Place:           req.Place,
		Price:           req.Price,
		PayMemberID:     req.PayMemberID,
		AttendMemberIDs: req.AttendMemberIDs,
	}
}

func (h *MeetingHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	payments, err := h.meetings.ListPayments(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *MeetingHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := h.meetings.CreatePayment(r.Context(), middleware.GetUserID(r.Context()), id, req.payment())
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *MeetingHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "paymentId")
	if !ok {
		return
	}
	var req paymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p := req.payment()
	p.ID = paymentID
	payment, err := h.meetings.UpdatePayment(r.Context(), middleware.GetUserID(r.Context()), id, p)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id, "payment_id", paymentID)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *MeetingHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	paymentID, ok := pathID(w, r, "paymentId")
	if !ok {
		return
	}

	if err := h.meetings.DeletePayment(r.Context(), middleware.GetUserID(r.Context()), id, paymentID); err != nil {
		writeError(w, h.logger, err, "meeting_id", id, "payment_id", paymentID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderPayments takes the full list of payment IDs in their new order.
func (h *MeetingHandler) ReorderPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var ids []int64
	if !decodeJSON(w, r, &ids) {
		return
	}

	payments, err := h.meetings.ReorderPayments(r.Context(), middleware.GetUserID(r.Context()), id, ids)
	if err != nil {
		writeError(w, h.logger, err, "meeting_id", id)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}
