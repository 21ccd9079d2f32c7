// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studentblog/internal/content"
	"studentblog/internal/media"
	"studentblog/internal/middleware"
	"studentblog/internal/models"
	"studentblog/internal/search"
)

// searchLimit caps the number of hits returned by a search.
const searchLimit = 20

// Searcher runs full-text queries over published posts.
type Searcher interface {
	Search(query string, limit int) ([]search.Result, error)
}

// API groups the JSON endpoints used by the browser client.
type API struct {
	content *content.Service
	media   *media.Service
	search  Searcher
}

// NewAPI creates the JSON API handlers. searcher may be nil, in which case
// search always returns no hits.
func NewAPI(contentSvc *content.Service, mediaSvc *media.Service, searcher Searcher) *API {
	return &API{content: contentSvc, media: mediaSvc, search: searcher}
}

// Categories lists all categories with their published post counts.
func (a *API) Categories(w http.ResponseWriter, r *http.Request) {
	cats, err := a.content.Categories(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(cats))
}

// Category returns one category by slug.
func (a *API) Category(w http.ResponseWriter, r *http.Request) {
	cat, err := a.content.Category(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

// Posts lists published posts, newest first.
func (a *API) Posts(w http.ResponseWriter, r *http.Request) {
	posts, err := a.content.PublishedPosts(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(posts))
}

// PostsByCategory lists the published posts of a category.
func (a *API) PostsByCategory(w http.ResponseWriter, r *http.Request) {
	_, posts, err := a.content.PostsByCategory(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(posts))
}

// Post returns a published post by slug. Drafts are not found.
func (a *API) Post(w http.ResponseWriter, r *http.Request) {
	post, err := a.content.PublishedPost(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Search runs the q parameter against the full-text index.
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" || a.search == nil {
		respondJSON(w, http.StatusOK, []search.Result{})
		return
	}

	results, err := a.search.Search(q, searchLimit)
	if err != nil {
		respondServiceError(w, r, fmt.Errorf("search %q: %w", q, err))
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(results))
}

// adminPostsResponse splits the admin listing the way the dashboard shows it.
type adminPostsResponse struct {
	Published []models.Post `json:"published"`
	Drafts    []models.Post `json:"drafts"`
}

// AdminPosts lists every post, drafts included.
func (a *API) AdminPosts(w http.ResponseWriter, r *http.Request) {
	published, drafts, _, err := a.content.Dashboard(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, adminPostsResponse{
		Published: orEmpty(published),
		Drafts:    orEmpty(drafts),
	})
}

// AdminPost returns any post by id, drafts included.
func (a *API) AdminPost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	post, err := a.content.Post(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// CreatePost stores a new post authored by the caller.
func (a *API) CreatePost(w http.ResponseWriter, r *http.Request) {
	authorID, ok := middleware.UserIDFromCtx(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var in content.CreatePostInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondServiceError(w, r, err)
		return
	}

	post, err := a.content.CreatePost(r.Context(), in, authorID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, post)
}

// UpdatePost applies a partial update.
func (a *API) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	var in content.UpdatePostInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondServiceError(w, r, err)
		return
	}

	post, err := a.content.UpdatePost(r.Context(), id, in)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// DeletePost removes a post.
func (a *API) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if err := a.content.DeletePost(r.Context(), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PublishPost takes a post live now.
func (a *API) PublishPost(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	post, err := a.content.PublishPost(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// UploadMedia accepts a multipart "file" field.
func (a *API) UploadMedia(w http.ResponseWriter, r *http.Request) {
	uploaderID, ok := middleware.UserIDFromCtx(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	up, closeFn, err := readUpload(w, r, a.media.MaxBytes())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	defer closeFn()

	m, err := a.media.Upload(r.Context(), up, uploaderID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

// ListMedia lists the caller's uploads, newest first.
func (a *API) ListMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromCtx(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	items, err := a.media.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orEmpty(items))
}

// multipartOverhead is the allowance for multipart framing on top of the
// file itself.
const multipartOverhead = 1 << 20

// readUpload extracts the "file" field of a multipart request. The caller
// must call the returned func once done with the upload.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (media.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return media.Upload{}, nil, fmt.Errorf("parse upload: %w", media.ErrTooLarge)
		}
		return media.Upload{}, nil, &models.ValidationError{Field: "file", Message: "no file received", Err: err}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return media.Upload{}, nil, &models.ValidationError{Field: "file", Message: "no file received", Err: err}
	}

	closeFn := func() {
		_ = file.Close()
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	return media.Upload{Filename: header.Filename, Size: header.Size, Body: file}, closeFn, nil
}

// orEmpty keeps empty listings as [] rather than null in JSON.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
