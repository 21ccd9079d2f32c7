// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"

	"studentblog/internal/middleware"
	"studentblog/internal/models"
	"studentblog/internal/session"
	"studentblog/internal/token"
)

// TokenIssuer signs and verifies API bearer tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID, username string, admin bool) (string, time.Time, error)
	Parse(raw string) (*token.Claims, error)
}

// APIAuth groups the JSON sign-in endpoints.
type APIAuth struct {
	users      UserRepository
	sessions   SessionManager
	tokens     TokenIssuer
	require2FA bool
}

// NewAPIAuth creates the JSON sign-in handlers.
func NewAPIAuth(users UserRepository, sessions SessionManager, tokens TokenIssuer, require2FA bool) *APIAuth {
	return &APIAuth{users: users, sessions: sessions, tokens: tokens, require2FA: require2FA}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type loginResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
	// TwoFactorSetup is set when the account must enroll an authenticator
	// in the admin panel before it gets a token.
	TwoFactorSetup bool `json:"twoFactorSetup,omitempty"`
}

// Login checks credentials, and the TOTP code for enrolled accounts, then
// starts a session and returns a bearer token.
func (a *APIAuth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "username and password are required"})
		return
	}

	user, err := a.users.FindByUsername(r.Context(), req.Username)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if user == nil || !a.users.CheckPassword(user, req.Password) {
		log.Warn().Str("username", req.Username).Str("ip", r.RemoteAddr).Msg("failed api login")
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if user.TOTPEnabled {
		code := strings.TrimSpace(req.Code)
		if code == "" {
			respondJSON(w, http.StatusUnauthorized, errorBody{Error: "two-factor code required", Field: "code"})
			return
		}
		if user.TOTPSecret == nil || !totp.Validate(code, *user.TOTPSecret) {
			log.Warn().Str("username", user.Username).Msg("invalid api 2fa code")
			respondJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid two-factor code", Field: "code"})
			return
		}
	}

	twoFADone := user.TOTPEnabled || !a.require2FA
	if _, err := a.sessions.Create(r.Context(), w, &session.Data{
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		TwoFADone: twoFADone,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := loginResponse{User: user}
	if !twoFADone {
		resp.TwoFactorSetup = true
		respondJSON(w, http.StatusOK, resp)
		return
	}

	raw, exp, err := a.tokens.Issue(user.ID, user.Username, user.IsAdmin)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	resp.Token = raw
	resp.ExpiresAt = &exp

	log.Info().Str("username", user.Username).Msg("api login")
	respondJSON(w, http.StatusOK, resp)
}

// Logout ends the session, if any. Bearer tokens simply expire.
func (a *APIAuth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		log.Warn().Err(err).Msg("session destroy failed")
	}
	w.WriteHeader(http.StatusNoContent)
}

// User returns the signed-in user, identified by session or bearer token.
func (a *APIAuth) User(w http.ResponseWriter, r *http.Request) {
	var (
		id uuid.UUID
		ok bool
	)
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && sess.TwoFADone {
		id, ok = sess.UserID, true
	} else {
		id, ok = a.bearerUser(r)
	}
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := a.users.FindByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (a *APIAuth) bearerUser(r *http.Request) (uuid.UUID, bool) {
	raw, ok := middleware.BearerToken(r)
	if !ok {
		return uuid.Nil, false
	}
	claims, err := a.tokens.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
