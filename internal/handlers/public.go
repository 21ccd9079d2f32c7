// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"studentblog/internal/cache"
	"studentblog/internal/content"
	"studentblog/internal/markdown"
	"studentblog/internal/render"
	"studentblog/internal/search"
)

// PageCache stores rendered public pages.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, html []byte)
}

// Public groups handlers for the public blog. It checks the Valkey page
// cache before rendering, and stores rendered results on miss.
type Public struct {
	content *content.Service
	search  Searcher
	site    *render.Site
	pages   PageCache
	about   template.HTML
}

// NewPublic creates the public site handlers. aboutSource is the Markdown
// shown on the about page. pages and searcher may be nil.
func NewPublic(contentSvc *content.Service, searcher Searcher, site *render.Site, pages PageCache, aboutSource []byte) (*Public, error) {
	about, err := markdown.ToHTML(aboutSource)
	if err != nil {
		return nil, fmt.Errorf("render about page: %w", err)
	}
	return &Public{
		content: contentSvc,
		search:  searcher,
		site:    site,
		pages:   pages,
		about:   template.HTML(about),
	}, nil
}

// Home lists every published post.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	p.cached(w, r, cache.HomepageKey(), func(ctx context.Context) (*render.SiteData, string, error) {
		posts, err := p.content.PublishedPosts(ctx)
		if err != nil {
			return nil, "", err
		}
		return &render.SiteData{
			Description: "Recursos académicos y artículos para estudiantes.",
			Data:        map[string]any{"Posts": posts},
		}, "home", nil
	})
}

// Category lists the published posts of one category.
func (p *Public) Category(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p.cached(w, r, cache.CategoryKey(slug), func(ctx context.Context) (*render.SiteData, string, error) {
		cat, posts, err := p.content.PostsByCategory(ctx, slug)
		if err != nil {
			return nil, "", err
		}
		return &render.SiteData{
			Title:       cat.Name,
			Description: cat.Description,
			Active:      cat.Slug,
			Data:        map[string]any{"Category": cat, "Posts": posts},
		}, "category", nil
	})
}

// Post renders a single published post.
func (p *Public) Post(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p.cached(w, r, cache.PostKey(slug), func(ctx context.Context) (*render.SiteData, string, error) {
		post, err := p.content.PublishedPost(ctx, slug)
		if err != nil {
			return nil, "", err
		}
		data := &render.SiteData{
			Title: post.Title,
			Data:  map[string]any{"Post": post},
		}
		// The category link is decoration; a lookup failure only drops it.
		cats, err := p.content.Categories(ctx)
		if err == nil {
			for i := range cats {
				if cats[i].ID == post.CategoryID {
					data.Active = cats[i].Slug
					data.Data["Category"] = &cats[i]
					break
				}
			}
		}
		return data, "post", nil
	})
}

// About renders the static about page.
func (p *Public) About(w http.ResponseWriter, r *http.Request) {
	p.cached(w, r, cache.AboutKey(), func(context.Context) (*render.SiteData, string, error) {
		return &render.SiteData{
			Title:  "Acerca de",
			Active: "about",
			Data:   map[string]any{"Body": p.about},
		}, "about", nil
	})
}

// Search runs a full-text query. Results are never cached.
func (p *Public) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))

	var results []search.Result
	if q != "" && p.search != nil {
		var err error
		results, err = p.search.Search(q, searchLimit)
		if err != nil {
			log.Error().Err(err).Str("query", q).Msg("search failed")
			p.renderError(w, r, http.StatusInternalServerError, "La búsqueda no está disponible en este momento.")
			return
		}
	}

	p.render(w, r, http.StatusOK, "search", &render.SiteData{
		Title: "Buscar",
		Query: q,
		Data:  map[string]any{"Results": results},
	})
}

// NotFound renders the 404 page for unknown routes.
func (p *Public) NotFound(w http.ResponseWriter, r *http.Request) {
	p.renderError(w, r, http.StatusNotFound, "")
}

// cached serves key from the page cache, or builds the page with load,
// renders it and stores it. Only successful pages are cached.
func (p *Public) cached(w http.ResponseWriter, r *http.Request, key string, load func(context.Context) (*render.SiteData, string, error)) {
	ctx := r.Context()
	if p.pages != nil {
		if html, ok := p.pages.Get(ctx, key); ok {
			writeHTML(w, http.StatusOK, html)
			return
		}
	}

	data, name, err := load(ctx)
	if err != nil {
		if errors.Is(err, content.ErrPostNotFound) || errors.Is(err, content.ErrCategoryNotFound) {
			p.renderError(w, r, http.StatusNotFound, "")
			return
		}
		log.Error().Err(err).Str("path", r.URL.Path).Msg("load public page")
		p.renderError(w, r, http.StatusInternalServerError, "Ocurrió un error al cargar la página.")
		return
	}

	html, ok := p.build(ctx, name, data)
	if !ok {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if p.pages != nil {
		p.pages.Set(ctx, key, html)
	}
	writeHTML(w, http.StatusOK, html)
}

func (p *Public) render(w http.ResponseWriter, r *http.Request, status int, name string, data *render.SiteData) {
	html, ok := p.build(r.Context(), name, data)
	if !ok {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeHTML(w, status, html)
}

func (p *Public) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	data := &render.SiteData{Title: "Página no encontrada", Data: map[string]any{}}
	if msg != "" {
		data.Title = "Error"
		data.Data["Message"] = msg
	}
	p.render(w, r, status, "not_found", data)
}

// build fills in the navigation and renders the page.
func (p *Public) build(ctx context.Context, name string, data *render.SiteData) ([]byte, bool) {
	cats, err := p.content.Categories(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("load navigation categories")
	}
	data.Categories = cats

	html, err := p.site.Render(name, data)
	if err != nil {
		log.Error().Err(err).Str("template", name).Msg("render public page")
		return nil, false
	}
	return html, true
}

func writeHTML(w http.ResponseWriter, status int, html []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(html)
}
