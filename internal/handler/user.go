package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmynk/nbbang/internal/auth"
	"github.com/mmynk/nbbang/internal/middleware"
	"github.com/mmynk/nbbang/internal/models"
	"github.com/mmynk/nbbang/internal/storage"
)

// UserHandler serves registration, login and the current account.
type UserHandler struct {
	authenticator auth.Authenticator
	users         storage.UserStore
	tokens        *auth.TokenManager
	logger        *slog.Logger
}

func NewUserHandler(a auth.Authenticator, users storage.UserStore, tokens *auth.TokenManager, logger *slog.Logger) *UserHandler {
	return &UserHandler{authenticator: a, users: users, tokens: tokens, logger: logger}
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type sessionResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.authenticator.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		h.logger.Warn("Registration failed", "email", req.Email, "error", err)
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("User registered", "user_id", user.ID)
	h.startSession(w, r, http.StatusCreated, user)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeDetail(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.startSession(w, r, http.StatusOK, user)
}

// Logout clears the session cookie. Bearer clients simply drop their token.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in account.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err, "user_id", userID)
		return
	}
	if user == nil {
		// Token outlived the account.
		writeDetail(w, http.StatusUnauthorized, "account no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func toUserResponse(user *models.User) userResponse {
	return userResponse{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName}
}

func (h *UserHandler) startSession(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, h.logger, err, "user_id", user.ID)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, sessionResponse{
		Token: token,
		User:  toUserResponse(user),
	})
}
