// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"studentblog/internal/models"
)

// SiteData is passed to every public template.
type SiteData struct {
	Title       string
	Description string
	Categories  []models.Category // navigation
	Active      string            // slug of the highlighted nav entry
	Query       string            // search box contents
	Data        map[string]any
}

// Site renders the public blog pages. Output is returned as bytes so the
// caller can store it in the page cache.
type Site struct {
	templates map[string]*template.Template
}

// NewSite parses the public templates. Every page is paired with the
// layout and the shared partials.
func NewSite() (*Site, error) {
	entries, err := templateFS.ReadDir("templates/public")
	if err != nil {
		return nil, fmt.Errorf("read public templates: %w", err)
	}

	s := &Site{templates: make(map[string]*template.Template)}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "layout.html" || name == "partials.html" {
			continue
		}
		tmpl, err := template.New("layout.html").Funcs(sharedFuncs()).ParseFS(templateFS,
			"templates/public/layout.html",
			"templates/public/partials.html",
			"templates/public/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		s.templates[strings.TrimSuffix(name, ".html")] = tmpl
	}
	return s, nil
}

// Render executes the named page.
func (s *Site) Render(name string, data *SiteData) ([]byte, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}
	if data.Data == nil {
		data.Data = map[string]any{}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
