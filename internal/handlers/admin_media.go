// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"studentblog/internal/media"
	"studentblog/internal/middleware"
	"studentblog/internal/models"
	"studentblog/internal/render"
)

// MediaLibrary renders the caller's uploads and the upload form.
func (a *Admin) MediaLibrary(w http.ResponseWriter, r *http.Request) {
	a.renderMediaLibrary(w, r, http.StatusOK, nil, "")
}

// MediaUpload handles a multipart upload from the library form.
func (a *Admin) MediaUpload(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	up, closeFn, err := readUpload(w, r, a.media.MaxBytes())
	if err != nil {
		a.mediaError(w, r, err)
		return
	}
	defer closeFn()

	m, err := a.media.Upload(r.Context(), up, sess.UserID)
	if err != nil {
		a.mediaError(w, r, err)
		return
	}
	a.renderMediaLibrary(w, r, http.StatusOK, m, "")
}

// mediaError shows an upload failure above the library. Input problems are
// 422 for plain forms and 200 for HTMX so the message gets swapped in.
func (a *Admin) mediaError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *models.ValidationError
		msg  string
	)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		msg = fmt.Sprintf("El archivo supera el tamaño máximo de %s.", humanBytes(a.media.MaxBytes()))
	case errors.As(err, &verr) && verr.Field == "file" && verr.Err != nil:
		msg = "No se recibió ningún archivo."
	case errors.As(err, &verr):
		msg = "Tipo de archivo no permitido."
	default:
		a.serverError(w, r, err, "upload media")
		return
	}

	status := http.StatusUnprocessableEntity
	if r.Header.Get("HX-Request") == "true" {
		status = http.StatusOK
	}
	a.renderMediaLibrary(w, r, status, nil, msg)
}

func (a *Admin) renderMediaLibrary(w http.ResponseWriter, r *http.Request, status int, uploaded *models.Media, errMsg string) {
	userID, ok := middleware.UserIDFromCtx(r.Context())
	if !ok {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	items, err := a.media.List(r.Context(), userID)
	if err != nil {
		a.serverError(w, r, err, "list media")
		return
	}

	data := map[string]any{
		"Media":   items,
		"MaxSize": humanBytes(a.media.MaxBytes()),
	}
	if uploaded != nil {
		data["Uploaded"] = uploaded
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	a.renderer.PageStatus(w, r, status, "media_library", &render.PageData{
		Title:   "Multimedia",
		Section: "media",
		Data:    data,
	})
}

// humanBytes formats a size limit the way the media library lists files.
func humanBytes(n int64) string {
	return (&models.Media{Size: n}).HumanSize()
}
