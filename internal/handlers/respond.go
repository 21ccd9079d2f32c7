// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the student blog.
// Handlers are grouped by concern (JSON API, admin panel, public site,
// authentication) and receive their dependencies through the handler struct.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"studentblog/internal/content"
	"studentblog/internal/media"
	"studentblog/internal/models"
	"studentblog/internal/store"
)

// maxJSONBody caps JSON request bodies. Post content alone may reach
// 100 000 characters of up to four bytes each.
const maxJSONBody = 1 << 20

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode json response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody{Error: msg})
}

// statusFor maps a service error onto an HTTP status and a message safe to
// show the client. Unknown errors are 500 and their text is not exposed.
func statusFor(err error) (int, errorBody) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: verr.Error(), Field: verr.Field}
	case errors.Is(err, content.ErrPostNotFound):
		return http.StatusNotFound, errorBody{Error: "post not found"}
	case errors.Is(err, content.ErrCategoryNotFound):
		return http.StatusNotFound, errorBody{Error: "category not found"}
	case errors.Is(err, store.ErrSlugConflict):
		return http.StatusConflict, errorBody{Error: "slug already taken, try again", Field: "slug"}
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, errorBody{Error: "file too large"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal server error"}
	}
}

// respondServiceError writes err as JSON. Server-side failures are logged.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	respondJSON(w, status, body)
}

// decodeJSON reads a JSON body into v. Malformed input is a validation
// error so it surfaces as 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &models.ValidationError{Field: "body", Message: "request body too large", Err: err}
		}
		return &models.ValidationError{Field: "body", Message: "malformed JSON", Err: err}
	}
	return nil
}

// idParam parses the {id} URL parameter. A malformed id cannot match any
// post, so it reports ErrPostNotFound.
func idParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, content.ErrPostNotFound
	}
	return id, nil
}
