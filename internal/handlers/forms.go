// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"studentblog/internal/content"
	"studentblog/internal/models"
	"studentblog/internal/render"
	"studentblog/internal/store"
)

// postForm mirrors the fields of the admin post editor.
type postForm struct {
	Title         string
	Slug          string
	Content       string
	CategoryID    string
	FeaturedImage string
	PublishedAt   string // datetime-local value, UTC
	IsDraft       bool
}

// parsePostForm reads the editor fields from a submitted form.
func parsePostForm(r *http.Request) postForm {
	return postForm{
		Title:         strings.TrimSpace(r.FormValue("title")),
		Slug:          strings.TrimSpace(r.FormValue("slug")),
		Content:       r.FormValue("content"),
		CategoryID:    r.FormValue("category_id"),
		FeaturedImage: strings.TrimSpace(r.FormValue("featured_image")),
		PublishedAt:   strings.TrimSpace(r.FormValue("published_at")),
		IsDraft:       r.FormValue("is_draft") == "true",
	}
}

// formFromPost fills the editor with a stored post.
func formFromPost(p *models.Post) postForm {
	f := postForm{
		Title:      p.Title,
		Slug:       p.Slug,
		Content:    p.Content,
		CategoryID: p.CategoryID.String(),
		IsDraft:    p.IsDraft,
	}
	if p.FeaturedImage != nil {
		f.FeaturedImage = *p.FeaturedImage
	}
	if p.PublishedAt != nil {
		f.PublishedAt = p.PublishedAt.UTC().Format("2006-01-02T15:04")
	}
	return f
}

func (f postForm) createInput() content.CreatePostInput {
	isDraft := f.IsDraft
	in := content.CreatePostInput{
		Title:       f.Title,
		Slug:        f.Slug,
		Content:     f.Content,
		CategoryID:  f.CategoryID,
		IsDraft:     &isDraft,
		PublishedAt: &f.PublishedAt,
	}
	if f.FeaturedImage != "" {
		in.FeaturedImage = &f.FeaturedImage
	}
	return in
}

// updateInput sends every editor field. An empty slug keeps the stored one;
// empty date and image fields clear them.
func (f postForm) updateInput() content.UpdatePostInput {
	isDraft := f.IsDraft
	in := content.UpdatePostInput{
		Title:         &f.Title,
		Content:       &f.Content,
		CategoryID:    &f.CategoryID,
		IsDraft:       &isDraft,
		PublishedAt:   models.Some(f.PublishedAt),
		FeaturedImage: models.Some(f.FeaturedImage),
	}
	if f.Slug != "" {
		in.Slug = &f.Slug
	}
	return in
}

// fieldErrors turns a service error into messages keyed by form field.
// ok is false when err is not caused by the input.
func fieldErrors(err error) (map[string]string, bool) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		msg, ok := fieldMessages[verr.Field]
		if !ok {
			msg = verr.Error()
		}
		return map[string]string{verr.Field: msg}, true
	}
	if errors.Is(err, store.ErrSlugConflict) {
		return map[string]string{"slug": "El slug ya está en uso, inténtalo de nuevo."}, true
	}
	return nil, false
}

// fieldMessages explain each editor field's rules in Spanish.
var fieldMessages = map[string]string{
	"title":         "El título es obligatorio y puede tener hasta 300 caracteres.",
	"slug":          "El slug debe tener entre 3 y 300 caracteres: letras minúsculas, números y guiones.",
	"content":       "El contenido puede tener hasta 100.000 caracteres.",
	"categoryId":    "Selecciona una categoría válida.",
	"publishedAt":   "La fecha de publicación no es válida.",
	"featuredImage": "La dirección de la imagen es demasiado larga.",
}

// categoryNames indexes category names by id for the post tables.
func categoryNames(cats []models.Category) map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Icon + " " + c.Name
	}
	return names
}

// formPage builds the editor page data.
func formPage(isNew bool, post *models.Post, form postForm, cats []models.Category, errs map[string]string) *render.PageData {
	title := "Editar Entrada"
	if isNew {
		title = "Nueva Entrada"
	}
	return &render.PageData{
		Title:   title,
		Section: "posts",
		Data: map[string]any{
			"IsNew":      isNew,
			"Post":       post,
			"Form":       form,
			"Categories": cats,
			"Errors":     errs,
		},
	}
}
