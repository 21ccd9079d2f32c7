// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var months = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// stripTags removes all markup from post bodies for excerpts.
var stripTags = bluemonday.StrictPolicy()

// sharedFuncs are available to admin and public templates.
func sharedFuncs() template.FuncMap {
	return template.FuncMap{
		"date":     formatDate,
		"ago":      func(t any) string { return timeAgo(t, time.Now()) },
		"excerpt":  excerpt,
		"safeHTML": func(s string) template.HTML { return template.HTML(s) }, //nolint:gosec // post bodies are sanitized on write
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"dict": func(kv ...any) (map[string]any, error) {
			if len(kv)%2 != 0 {
				return nil, fmt.Errorf("dict: odd number of arguments")
			}
			m := make(map[string]any, len(kv)/2)
			for i := 0; i < len(kv); i += 2 {
				k, ok := kv[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
				}
				m[k] = kv[i+1]
			}
			return m, nil
		},
		"inputTime": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.UTC().Format("2006-01-02T15:04")
		},
	}
}

// toTime accepts time.Time or *time.Time. ok is false for nil.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

// formatDate renders "14 de marzo, 2026". A missing date is "Sin fecha".
func formatDate(v any) string {
	t, ok := toTime(v)
	if !ok {
		return "Sin fecha"
	}
	return fmt.Sprintf("%d de %s, %d", t.Day(), months[t.Month()-1], t.Year())
}

// timeAgo renders a coarse Spanish relative time such as "hace 3 días".
func timeAgo(v any, now time.Time) string {
	t, ok := toTime(v)
	if !ok {
		return "Sin fecha"
	}
	d := now.Sub(t)
	if d < 0 {
		return formatDate(t)
	}

	plural := func(n int, one, many string) string {
		if n == 1 {
			return "hace 1 " + one
		}
		return fmt.Sprintf("hace %d %s", n, many)
	}

	switch {
	case d < time.Minute:
		return "hace un momento"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minuto", "minutos")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hora", "horas")
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "día", "días")
	case d < 365*24*time.Hour:
		return plural(int(d/(30*24*time.Hour)), "mes", "meses")
	default:
		return plural(int(d/(365*24*time.Hour)), "año", "años")
	}
}

// excerpt returns the text of an HTML body cut to at most n runes on a
// word boundary.
func excerpt(body string, n int) string {
	text := html.UnescapeString(stripTags.Sanitize(body))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:n])
	if runes[n] != ' ' {
		if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
