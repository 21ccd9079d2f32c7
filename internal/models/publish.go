// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"strings"
	"time"
)

// publishedAtLayouts are the date formats accepted from clients, tried in
// order. The last two are what HTML date inputs submit.
var publishedAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParsePublishedAt parses a client-supplied publish date. An empty string
// means "no date" and yields nil. Anything unparseable is a validation error.
func ParsePublishedAt(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var lastErr error
	for _, layout := range publishedAtLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			t = t.UTC()
			return &t, nil
		}
		lastErr = err
	}
	return nil, &ValidationError{
		Field:   "publishedAt",
		Message: "invalid date " + `"` + s + `"`,
		Err:     lastErr,
	}
}

// NormalizePublishedAt returns the publish date a post should be stored
// with. A non-draft without a date gets now. Everything else is returned
// unchanged: a draft keeps whatever date it already has.
func NormalizePublishedAt(isDraft bool, publishedAt *time.Time, now time.Time) *time.Time {
	if !isDraft && publishedAt == nil {
		return &now
	}
	return publishedAt
}
