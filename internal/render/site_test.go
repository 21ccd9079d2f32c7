// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"html/template"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentblog/internal/models"
	"studentblog/internal/search"
)

func TestNewSite(t *testing.T) {
	s, err := NewSite()
	require.NoError(t, err)

	for _, name := range []string{"home", "category", "post", "about", "search", "not_found"} {
		assert.Contains(t, s.templates, name)
	}
	assert.NotContains(t, s.templates, "layout")
	assert.NotContains(t, s.templates, "partials")
}

func TestSiteRender(t *testing.T) {
	s, err := NewSite()
	require.NoError(t, err)

	published := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	cat := models.Category{ID: uuid.New(), Name: "Informática", Slug: "informatica", Icon: "💻", Description: "Programación"}
	post := models.Post{
		ID: uuid.New(), Title: "Punteros en Go", Slug: "punteros-en-go",
		Content: "<p>Un <strong>puntero</strong> guarda una dirección.</p>", CategoryID: cat.ID,
		PublishedAt: &published,
	}
	nav := []models.Category{cat}

	tests := []struct {
		name string
		page string
		data *SiteData
		want []string
	}{
		{
			name: "home lists posts and categories",
			page: "home",
			data: &SiteData{Categories: nav, Data: map[string]any{"Posts": []models.Post{post}}},
			want: []string{"Materias", "Informática", "Punteros en Go", "Un puntero guarda una dirección."},
		},
		{
			name: "home without posts",
			page: "home",
			data: &SiteData{Categories: nav},
			want: []string{"No hay entradas publicadas todavía."},
		},
		{
			name: "category highlights nav entry",
			page: "category",
			data: &SiteData{Categories: nav, Active: "informatica", Data: map[string]any{"Category": &cat, "Posts": []models.Post{}}},
			want: []string{`href="/category/informatica" class="active"`, "No hay entradas publicadas en esta categoría."},
		},
		{
			name: "post renders sanitized body as HTML",
			page: "post",
			data: &SiteData{Title: post.Title, Categories: nav, Data: map[string]any{"Post": &post, "Category": &cat}},
			want: []string{"<strong>puntero</strong>", "14 de marzo, 2026", "<title>Punteros en Go · Blog Estudiantil</title>"},
		},
		{
			name: "about",
			page: "about",
			data: &SiteData{Active: "about", Data: map[string]any{"Body": template.HTML("<h1>Acerca</h1>")}},
			want: []string{"<h1>Acerca</h1>"},
		},
		{
			name: "search results",
			page: "search",
			data: &SiteData{Query: "puntero", Data: map[string]any{"Results": []search.Result{{Slug: "punteros-en-go", Title: "Punteros en Go", Fragments: map[string][]string{"content": {"un <mark>puntero</mark>"}}}}}},
			want: []string{"1 resultados", "<mark>puntero</mark>", `value="puntero"`},
		},
		{
			name: "not found",
			page: "not_found",
			data: &SiteData{Data: map[string]any{"Message": "La entrada no existe o ha sido eliminada."}},
			want: []string{"La entrada no existe o ha sido eliminada."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.Render(tt.page, tt.data)
			require.NoError(t, err)
			body := string(out)
			assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
			for _, want := range tt.want {
				assert.Contains(t, body, want)
			}
		})
	}
}

func TestSiteRenderEscapesTitles(t *testing.T) {
	s, err := NewSite()
	require.NoError(t, err)

	out, err := s.Render("not_found", &SiteData{Title: "<script>x</script>"})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>x</script>")
}

func TestSiteRenderUnknownPage(t *testing.T) {
	s, err := NewSite()
	require.NoError(t, err)

	_, err = s.Render("nope", &SiteData{})
	assert.Error(t, err)
}
