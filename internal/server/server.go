// Package server assembles the HTTP routes.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mmynk/nbbang/internal/auth"
	"github.com/mmynk/nbbang/internal/handler"
	"github.com/mmynk/nbbang/internal/live"
	"github.com/mmynk/nbbang/internal/metrics"
	"github.com/mmynk/nbbang/internal/middleware"
	"github.com/mmynk/nbbang/internal/service"
	"github.com/mmynk/nbbang/internal/storage"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Authenticator auth.Authenticator
	Users         storage.UserStore
	Tokens        *auth.TokenManager
	Meetings      *service.MeetingService
	AI            *service.AIService
	Hub           *live.Hub
	Metrics       *metrics.Metrics
	CORSOrigin    string
	Logger        *slog.Logger
}

type Server struct {
	userH    *handler.UserHandler
	meetingH *handler.MeetingHandler
	aiH      *handler.AIHandler
	liveH    *handler.LiveHandler
	tokens   *auth.TokenManager
	metrics  *metrics.Metrics
	origin   string
	logger   *slog.Logger
}

func New(d Deps) *Server {
	origins := []string{d.CORSOrigin}
	if d.CORSOrigin == "" {
		origins = nil
	}
	return &Server{
		userH:    handler.NewUserHandler(d.Authenticator, d.Users, d.Tokens, d.Logger.With("component", "user")),
		meetingH: handler.NewMeetingHandler(d.Meetings, d.Logger.With("component", "meeting")),
		aiH:      handler.NewAIHandler(d.AI, d.Logger.With("component", "ai")),
		liveH:    handler.NewLiveHandler(d.Hub, d.Meetings, origins, d.Logger.With("component", "live")),
		tokens:   d.Tokens,
		metrics:  d.Metrics,
		origin:   d.CORSOrigin,
		logger:   d.Logger,
	}
}

// Router returns the full handler chain. The request logger sits directly
// around the mux so it can label requests by matched pattern.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /user/register", s.userH.Register)
	mux.HandleFunc("POST /user/login", s.userH.Login)
	mux.HandleFunc("POST /user/logout", s.userH.Logout)

	// Share links are public.
	mux.HandleFunc("GET /meeting/uuid/{uuid}", s.meetingH.Shared)
	mux.HandleFunc("GET /meeting/ai/uuid/{uuid}", s.aiH.Shared)

	s.registerProtectedRoutes(mux)

	mux.HandleFunc("/", handler.NotFound)

	return middleware.CORS(s.origin)(middleware.RequestLogger(s.logger, s.metrics)(mux))
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	protect := middleware.RequireAuth(s.tokens)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protect(h))
	}

	handle("GET /user/me", s.userH.Me)

	// Meetings
	handle("GET /meeting", s.meetingH.List)
	handle("POST /meeting", s.meetingH.Create)
	handle("GET /meeting/{id}", s.meetingH.Get)
	handle("PUT /meeting/{id}", s.meetingH.Update)
	handle("DELETE /meeting/{id}", s.meetingH.Delete)

	// GET /meeting/{id}/member, payment, transfer and live would overlap
	// GET /meeting/ai/{id}, so they share one pattern.
	handle("GET /meeting/{id}/{resource}", s.meetingResource)

	// Members
	handle("POST /meeting/{id}/member", s.meetingH.CreateMember)
	handle("PUT /meeting/{id}/member/{memberId}", s.meetingH.UpdateMember)
	handle("DELETE /meeting/{id}/member/{memberId}", s.meetingH.DeleteMember)
	handle("PUT /meeting/{id}/member/{memberId}/leader", s.meetingH.SetLeader)

	// Payments
	handle("POST /meeting/{id}/payment", s.meetingH.CreatePayment)
	handle("PUT /meeting/{id}/payment/order", s.meetingH.ReorderPayments)
	handle("PUT /meeting/{id}/payment/{paymentId}", s.meetingH.UpdatePayment)
	handle("DELETE /meeting/{id}/payment/{paymentId}", s.meetingH.DeletePayment)

	// AI settlement
	handle("POST /ai/settlement", s.aiH.Create)
	handle("POST /meeting/{id}/modify", s.aiH.Modify)
	handle("GET /meeting/ai/{id}", s.aiH.Get)
	handle("PUT /meeting/{id}/ai", s.aiH.Save)
}

func (s *Server) meetingResource(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("resource") {
	case "member":
		s.meetingH.ListMembers(w, r)
	case "payment":
		s.meetingH.ListPayments(w, r)
	case "transfer":
		s.meetingH.Transfers(w, r)
	case "live":
		s.liveH.Subscribe(w, r)
	default:
		handler.NotFound(w, r)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
