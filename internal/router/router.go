// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// student blog: the public site, the JSON API and the HTMX admin panel.
package router

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"studentblog/internal/handlers"
	"studentblog/internal/middleware"
)

// Deps carries everything the router wires together.
type Deps struct {
	Sessions middleware.SessionGetter
	Tokens   middleware.TokenParser

	API     *handlers.API
	APIAuth *handlers.APIAuth
	Admin   *handlers.Admin
	Auth    *handlers.Auth
	Public  *handlers.Public

	// Static is served under /static/. Nil disables the route.
	Static fs.FS
	// Uploads serves locally stored media under UploadsPrefix, "/uploads"
	// when empty. Nil when media lives in object storage.
	Uploads       http.Handler
	UploadsPrefix string

	AllowedOrigins []string
	SecureCookies  bool
	// TrustProxy takes the client address from forwarding headers.
	TrustProxy bool
	// LoginLimiter throttles login attempts on both the panel and the API.
	LoginLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(d.Sessions))

	// Health check: no auth, no CSRF.
	r.Get("/health", healthHandler)

	if d.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(d.Static))))
	}
	if d.Uploads != nil {
		prefix := "/" + strings.Trim(d.UploadsPrefix, "/")
		if prefix == "/" {
			prefix = "/uploads"
		}
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", d.Uploads))
	}

	limit := func(next http.Handler) http.Handler { return next }
	if d.LoginLimiter != nil {
		limit = d.LoginLimiter.Middleware
	}

	// JSON API: CORS instead of CSRF, bearer tokens for writes.
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		r.Get("/categories", d.API.Categories)
		r.Get("/categories/{slug}", d.API.Category)
		r.Get("/posts", d.API.Posts)
		r.Get("/posts/search", d.API.Search)
		r.Get("/posts/category/{slug}", d.API.PostsByCategory)
		r.Get("/posts/{slug}", d.API.Post)

		r.With(limit).Post("/login", d.APIAuth.Login)
		r.Post("/logout", d.APIAuth.Logout)
		r.Get("/user", d.APIAuth.User)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAPIAdmin(d.Tokens))
			r.Get("/posts", d.API.AdminPosts)
			r.Post("/posts", d.API.CreatePost)
			r.Get("/posts/{id}", d.API.AdminPost)
			r.Put("/posts/{id}", d.API.UpdatePost)
			r.Delete("/posts/{id}", d.API.DeletePost)
			r.Post("/posts/{id}/publish", d.API.PublishPost)
			r.Get("/media", d.API.ListMedia)
			r.Post("/media", d.API.UploadMedia)
		})
	})

	// Admin panel: session auth and CSRF protection.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.NewCSRF(d.SecureCookies))

		// Auth pages, reachable without a session.
		r.Get("/login", d.Auth.LoginPage)
		r.With(limit).Post("/login", d.Auth.LoginSubmit)

		// 2FA: requires a session but not a completed second factor.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/2fa/setup", d.Auth.TwoFASetupPage)
			r.Get("/2fa/verify", d.Auth.TwoFAVerifyPage)
			r.With(limit).Post("/2fa/verify", d.Auth.TwoFAVerifySubmit)
			r.Post("/logout", d.Auth.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			r.Use(middleware.RequireAdmin)

			r.Get("/", d.Admin.Dashboard)

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", d.Admin.PostsList)
				r.Get("/new", d.Admin.PostNew)
				r.Post("/", d.Admin.PostCreate)
				r.Get("/{id}", d.Admin.PostEdit)
				r.Put("/{id}", d.Admin.PostUpdate)
				r.Post("/{id}", d.Admin.PostUpdate)
				r.Delete("/{id}", d.Admin.PostDelete)
				r.Post("/{id}/publish", d.Admin.PostPublish)
			})

			r.Get("/media", d.Admin.MediaLibrary)
			r.Post("/media", d.Admin.MediaUpload)
		})
	})

	// Public site.
	r.Get("/", d.Public.Home)
	r.Get("/category/{slug}", d.Public.Category)
	r.Get("/post/{slug}", d.Public.Post)
	r.Get("/about", d.Public.About)
	r.Get("/search", d.Public.Search)
	r.NotFound(d.Public.NotFound)

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
