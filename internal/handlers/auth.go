// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"studentblog/internal/middleware"
	"studentblog/internal/models"
	"studentblog/internal/render"
	"studentblog/internal/session"
)

// totpIssuer is the name authenticator apps show next to the account.
const totpIssuer = "Blog Estudiantil"

// UserRepository is the subset of the user store used for sign-in.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
	CheckPassword(user *models.User, password string) bool
}

// SessionManager creates and ends sessions.
type SessionManager interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Update(ctx context.Context, r *http.Request, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Auth groups the admin panel sign-in handlers: password login, TOTP
// enrollment and verification, and logout.
type Auth struct {
	renderer   *render.Renderer
	sessions   SessionManager
	users      UserRepository
	require2FA bool
}

// NewAuth creates the sign-in handlers. When require2FA is false, users
// who never enrolled an authenticator are signed in on their password.
func NewAuth(renderer *render.Renderer, sessions SessionManager, users UserRepository, require2FA bool) *Auth {
	return &Auth{
		renderer:   renderer,
		sessions:   sessions,
		users:      users,
		require2FA: require2FA,
	}
}

// LoginPage renders the login form. Fully signed-in users go to the dashboard.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess != nil && sess.TwoFADone {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	a.renderer.Page(w, r, "login", &render.PageData{
		Title: "Iniciar sesión",
	})
}

// LoginSubmit checks the password and starts a session. The session is not
// usable for the panel until the second factor is done, unless the user
// has no authenticator and the second factor is optional.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	loginError := func(msg string) {
		a.renderer.Page(w, r, "login", &render.PageData{
			Title: "Iniciar sesión",
			Data:  map[string]any{"Error": msg, "Username": username},
		})
	}

	if username == "" || password == "" {
		loginError("Usuario y contraseña son obligatorios.")
		return
	}

	user, err := a.users.FindByUsername(r.Context(), username)
	if err != nil {
		log.Error().Err(err).Msg("login lookup failed")
		loginError("Ocurrió un error inesperado.")
		return
	}
	if user == nil || !a.users.CheckPassword(user, password) {
		log.Warn().Str("username", username).Str("ip", r.RemoteAddr).Msg("failed login")
		loginError("Usuario o contraseña incorrectos.")
		return
	}
	if !user.IsAdmin {
		loginError("Solo los administradores pueden acceder al panel.")
		return
	}

	twoFADone := !user.TOTPEnabled && !a.require2FA
	if _, err := a.sessions.Create(r.Context(), w, &session.Data{
		UserID:    user.ID,
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		TwoFADone: twoFADone,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		log.Error().Err(err).Msg("session create failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	switch {
	case twoFADone:
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	case user.Needs2FASetup():
		http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/admin/2fa/verify", http.StatusSeeOther)
	}
}

// TwoFASetupPage shows the QR code for enrolling an authenticator. A
// pending secret is reused so reloading the page keeps the same code.
func (a *Auth) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		log.Error().Err(err).Msg("user lookup for 2fa setup failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if user.TOTPEnabled {
		http.Redirect(w, r, "/admin/2fa/verify", http.StatusSeeOther)
		return
	}

	key, err := a.enrollmentKey(r.Context(), user)
	if err != nil {
		log.Error().Err(err).Msg("totp enrollment failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	a.renderSetup(w, r, key, "")
}

// TwoFAVerifyPage renders the code prompt for enrolled users.
func (a *Auth) TwoFAVerifyPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	a.renderer.Page(w, r, "2fa_verify", &render.PageData{
		Title: "Verificación en dos pasos",
	})
}

// TwoFAVerifySubmit checks a TOTP code. The first valid code after setup
// enables TOTP for the account.
func (a *Auth) TwoFAVerifySubmit(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	code := strings.TrimSpace(r.FormValue("code"))

	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		log.Error().Err(err).Msg("user lookup for 2fa failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if user.TOTPSecret == nil {
		http.Redirect(w, r, "/admin/2fa/setup", http.StatusSeeOther)
		return
	}

	if !totp.Validate(code, *user.TOTPSecret) {
		log.Warn().Str("username", user.Username).Msg("invalid 2fa code")
		const msg = "Código inválido. Inténtalo de nuevo."
		if !user.TOTPEnabled {
			key, err := totpKey(user.Username, *user.TOTPSecret)
			if err != nil {
				log.Error().Err(err).Msg("rebuild totp key failed")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			a.renderSetup(w, r, key, msg)
			return
		}
		a.renderer.Page(w, r, "2fa_verify", &render.PageData{
			Title: "Verificación en dos pasos",
			Data:  map[string]any{"Error": msg},
		})
		return
	}

	if !user.TOTPEnabled {
		if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
			log.Error().Err(err).Msg("enable totp failed")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		log.Info().Str("username", user.Username).Msg("2fa enabled")
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		log.Error().Err(err).Msg("session update failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// Logout destroys the session and returns to the login page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		log.Warn().Err(err).Msg("session destroy failed")
	}
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// enrollmentKey returns the pending TOTP key of user, generating and
// storing a new secret when there is none.
func (a *Auth) enrollmentKey(ctx context.Context, user *models.User) (*otp.Key, error) {
	if user.TOTPSecret != nil {
		return totpKey(user.Username, *user.TOTPSecret)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Username,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	if err := a.users.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}
	return key, nil
}

func (a *Auth) renderSetup(w http.ResponseWriter, r *http.Request, key *otp.Key, errMsg string) {
	qrPNG, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		log.Error().Err(err).Msg("qr code generation failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := map[string]any{
		"QRCode": template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG)),
		"Secret": key.Secret(),
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	a.renderer.Page(w, r, "2fa_setup", &render.PageData{
		Title: "Configurar verificación en dos pasos",
		Data:  data,
	})
}

// totpKey rebuilds the otpauth key for an existing secret.
func totpKey(account, secret string) (*otp.Key, error) {
	u := url.URL{
		Scheme: "otpauth",
		Host:   "totp",
		Path:   "/" + totpIssuer + ":" + account,
	}
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", totpIssuer)
	u.RawQuery = q.Encode()
	return otp.NewKeyFromURL(u.String())
}
