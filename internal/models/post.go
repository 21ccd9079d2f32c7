// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a blog entry. A post is visible to readers only when it is not a
// draft and has a publish date.
type Post struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Content       string     `json:"content"`
	CategoryID    uuid.UUID  `json:"categoryId"`
	AuthorID      uuid.UUID  `json:"authorId"`
	PublishedAt   *time.Time `json:"publishedAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	IsDraft       bool       `json:"isDraft"`
	FeaturedImage *string    `json:"featuredImage"`
}

// IsPublished returns true if the post shows up in public listings.
func (p *Post) IsPublished() bool {
	return !p.IsDraft && p.PublishedAt != nil
}

// NormalizePublish stamps PublishedAt with now when the post is being
// published without a date.
func (p *Post) NormalizePublish(now time.Time) {
	p.PublishedAt = NormalizePublishedAt(p.IsDraft, p.PublishedAt, now)
}
