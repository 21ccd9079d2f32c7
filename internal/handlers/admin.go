// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"studentblog/internal/content"
	"studentblog/internal/media"
	"studentblog/internal/middleware"
	"studentblog/internal/models"
	"studentblog/internal/render"
)

// dashboardRecent is how many recent posts the dashboard lists.
const dashboardRecent = 5

// Admin groups all admin panel HTTP handlers and their dependencies.
type Admin struct {
	renderer *render.Renderer
	content  *content.Service
	media    *media.Service
}

// NewAdmin creates a new Admin handler group with the given dependencies.
func NewAdmin(renderer *render.Renderer, contentSvc *content.Service, mediaSvc *media.Service) *Admin {
	return &Admin{
		renderer: renderer,
		content:  contentSvc,
		media:    mediaSvc,
	}
}

// Dashboard renders the admin dashboard: post counts, the latest published
// posts and the categories.
func (a *Admin) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	published, _, stats, err := a.content.Dashboard(ctx)
	if err != nil {
		a.serverError(w, r, err, "load dashboard")
		return
	}
	cats, err := a.content.Categories(ctx)
	if err != nil {
		a.serverError(w, r, err, "load categories")
		return
	}
	if len(published) > dashboardRecent {
		published = published[:dashboardRecent]
	}

	a.renderer.Page(w, r, "dashboard", &render.PageData{
		Title:   "Panel",
		Section: "dashboard",
		Data: map[string]any{
			"Stats":      stats,
			"Recent":     published,
			"Categories": cats,
		},
	})
}

// PostsList renders the published and draft tables.
func (a *Admin) PostsList(w http.ResponseWriter, r *http.Request) {
	a.renderPostsList(w, r, nil)
}

func (a *Admin) renderPostsList(w http.ResponseWriter, r *http.Request, flashes []render.Flash) {
	ctx := r.Context()
	published, drafts, _, err := a.content.Dashboard(ctx)
	if err != nil {
		a.serverError(w, r, err, "list posts")
		return
	}
	cats, err := a.content.Categories(ctx)
	if err != nil {
		a.serverError(w, r, err, "load categories")
		return
	}

	a.renderer.Page(w, r, "posts_list", &render.PageData{
		Title:   "Entradas",
		Section: "posts",
		Flashes: flashes,
		Data: map[string]any{
			"Published":     published,
			"Drafts":        drafts,
			"CategoryNames": categoryNames(cats),
		},
	})
}

// PostNew renders an empty editor. New posts start as drafts.
func (a *Admin) PostNew(w http.ResponseWriter, r *http.Request) {
	cats, err := a.content.Categories(r.Context())
	if err != nil {
		a.serverError(w, r, err, "load categories")
		return
	}
	a.renderer.Page(w, r, "post_form", formPage(true, nil, postForm{IsDraft: true}, cats, nil))
}

// PostCreate handles the new-post form.
func (a *Admin) PostCreate(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}

	form := parsePostForm(r)
	post, err := a.content.CreatePost(r.Context(), form.createInput(), sess.UserID)
	if err != nil {
		a.formError(w, r, err, true, nil, form)
		return
	}

	redirect(w, r, "/admin/posts/"+post.ID.String())
}

// PostEdit renders the editor for an existing post.
func (a *Admin) PostEdit(w http.ResponseWriter, r *http.Request) {
	post, ok := a.loadPost(w, r)
	if !ok {
		return
	}
	cats, err := a.content.Categories(r.Context())
	if err != nil {
		a.serverError(w, r, err, "load categories")
		return
	}
	a.renderer.Page(w, r, "post_form", formPage(false, post, formFromPost(post), cats, nil))
}

// PostUpdate handles the edit form. It accepts PUT from HTMX and POST from
// plain form submissions.
func (a *Admin) PostUpdate(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.loadPost(w, r)
	if !ok {
		return
	}

	form := parsePostForm(r)
	post, err := a.content.UpdatePost(r.Context(), existing.ID, form.updateInput())
	if err != nil {
		a.formError(w, r, err, false, existing, form)
		return
	}

	cats, err := a.content.Categories(r.Context())
	if err != nil {
		a.serverError(w, r, err, "load categories")
		return
	}
	data := formPage(false, post, formFromPost(post), cats, nil)
	data.Flashes = []render.Flash{{Type: "success", Message: "Entrada guardada."}}
	a.renderer.Page(w, r, "post_form", data)
}

// PostDelete removes a post. A delete fired from a table row answers with
// an empty body so HTMX drops the row; anywhere else goes back to the list.
func (a *Admin) PostDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := a.content.DeletePost(r.Context(), id); err != nil {
		if errors.Is(err, content.ErrPostNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, r, err, "delete post")
		return
	}

	if r.Header.Get("HX-Target") == "post-"+id.String() {
		w.WriteHeader(http.StatusOK)
		return
	}
	redirect(w, r, "/admin/posts")
}

// PostPublish takes a draft live and shows the refreshed list.
func (a *Admin) PostPublish(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	post, err := a.content.PublishPost(r.Context(), id)
	if err != nil {
		if errors.Is(err, content.ErrPostNotFound) {
			http.NotFound(w, r)
			return
		}
		a.serverError(w, r, err, "publish post")
		return
	}

	a.renderPostsList(w, r, []render.Flash{{Type: "success", Message: "«" + post.Title + "» publicada."}})
}

// loadPost fetches the {id} post, answering 404 itself when it is missing.
func (a *Admin) loadPost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	id, err := idParam(r)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	post, err := a.content.Post(r.Context(), id)
	if err != nil {
		if errors.Is(err, content.ErrPostNotFound) {
			http.NotFound(w, r)
			return nil, false
		}
		a.serverError(w, r, err, "load post")
		return nil, false
	}
	return post, true
}

// formError re-renders the editor with the failing field. HTMX only swaps
// successful responses, so HTMX requests get 200 and others 422.
func (a *Admin) formError(w http.ResponseWriter, r *http.Request, err error, isNew bool, post *models.Post, form postForm) {
	errs, ok := fieldErrors(err)
	if !ok {
		a.serverError(w, r, err, "save post")
		return
	}
	cats, catErr := a.content.Categories(r.Context())
	if catErr != nil {
		a.serverError(w, r, catErr, "load categories")
		return
	}

	status := http.StatusUnprocessableEntity
	if r.Header.Get("HX-Request") == "true" {
		status = http.StatusOK
	}
	a.renderer.PageStatus(w, r, status, "post_form", formPage(isNew, post, form, cats, errs))
}

func (a *Admin) serverError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// redirect sends HTMX requests an HX-Redirect and everything else a 303.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", url)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}
