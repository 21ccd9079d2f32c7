// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"studentblog/internal/models"
	"studentblog/internal/slug"
)

// CreatePostInput is what a client sends to create a post. A missing slug
// is derived from the title; a missing isDraft means draft.
type CreatePostInput struct {
	Title         string  `json:"title" validate:"required,max=300"`
	Slug          string  `json:"slug" validate:"omitempty,min=3,max=300,slug"`
	Content       string  `json:"content" validate:"max=100000"`
	CategoryID    string  `json:"categoryId" validate:"required,uuid"`
	IsDraft       *bool   `json:"isDraft"`
	PublishedAt   *string `json:"publishedAt"`
	FeaturedImage *string `json:"featuredImage" validate:"omitnil,max=2048"`
}

// UpdatePostInput carries a partial update. Nil pointers and unset
// Optionals leave the field as it is. An explicit null publishedAt or
// featuredImage clears it.
type UpdatePostInput struct {
	Title         *string                 `json:"title" validate:"omitnil,min=1,max=300"`
	Slug          *string                 `json:"slug" validate:"omitnil,min=3,max=300,slug"`
	Content       *string                 `json:"content" validate:"omitnil,max=100000"`
	CategoryID    *string                 `json:"categoryId" validate:"omitnil,uuid"`
	IsDraft       *bool                   `json:"isDraft"`
	PublishedAt   models.Optional[string] `json:"publishedAt" validate:"-"`
	FeaturedImage models.Optional[string] `json:"featuredImage" validate:"-"`
}

// CreatePost validates in, applies the publish-date rule and stores a new
// post authored by authorID. The returned post carries the final slug,
// which may have a numeric suffix if the requested one was taken.
func (s *Service) CreatePost(ctx context.Context, in CreatePostInput, authorID uuid.UUID) (*models.Post, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	candidate := in.Slug
	if candidate == "" {
		candidate = slug.Generate(in.Title)
		if candidate == "" {
			return nil, models.Invalid("slug", "could not be derived from the title, please provide one")
		}
		if len(candidate) < slug.MinLength {
			return nil, models.Invalid("slug", fmt.Sprintf("derived from the title is shorter than %d characters, please provide one", slug.MinLength))
		}
	}

	categoryID, err := s.checkCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	var publishedAt string
	if in.PublishedAt != nil {
		publishedAt = *in.PublishedAt
	}
	parsed, err := models.ParsePublishedAt(publishedAt)
	if err != nil {
		return nil, err
	}

	isDraft := true
	if in.IsDraft != nil {
		isDraft = *in.IsDraft
	}

	p := &models.Post{
		Title:         in.Title,
		Slug:          candidate,
		Content:       s.policy.Sanitize(in.Content),
		CategoryID:    categoryID,
		AuthorID:      authorID,
		IsDraft:       isDraft,
		PublishedAt:   parsed,
		FeaturedImage: featuredImage(in.FeaturedImage),
	}
	p.NormalizePublish(s.now().UTC())

	created, err := s.posts.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("post_id", created.ID.String()).
		Str("slug", created.Slug).
		Bool("draft", created.IsDraft).
		Msg("post created")
	s.afterWrite(ctx, nil, created)
	return created, nil
}

// UpdatePost applies a partial update to the post with id. A slug equal to
// the stored one is treated as absent, so editors can send it back as is.
// A changed slug is resolved with the post itself excluded. Reverting a post
// to draft keeps its publish date.
func (s *Service) UpdatePost(ctx context.Context, id uuid.UUID, in UpdatePostInput) (*models.Post, error) {
	trimPtr(in.Title)
	trimPtr(in.Slug)

	existing, err := s.Post(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Slug != nil && *in.Slug == existing.Slug {
		in.Slug = nil
	}
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	p := *existing
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Slug != nil {
		p.Slug = *in.Slug
	}
	if in.Content != nil {
		p.Content = s.policy.Sanitize(*in.Content)
	}
	if in.CategoryID != nil {
		if p.CategoryID, err = s.checkCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
	}
	if in.IsDraft != nil {
		p.IsDraft = *in.IsDraft
	}
	if in.PublishedAt.Set {
		var raw string
		if in.PublishedAt.Value != nil {
			raw = *in.PublishedAt.Value
		}
		if p.PublishedAt, err = models.ParsePublishedAt(raw); err != nil {
			return nil, err
		}
	}
	if in.FeaturedImage.Set {
		if in.FeaturedImage.Value != nil && len(*in.FeaturedImage.Value) > maxImageLen {
			return nil, models.Invalid("featuredImage", fmt.Sprintf("must be at most %d characters", maxImageLen))
		}
		p.FeaturedImage = featuredImage(in.FeaturedImage.Value)
	}
	p.NormalizePublish(s.now().UTC())

	return s.save(ctx, existing, &p)
}

// PublishPost takes a post out of draft and stamps it with the current time.
func (s *Service) PublishPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	existing, err := s.Post(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := *existing
	p.IsDraft = false
	p.PublishedAt = &now

	return s.save(ctx, existing, &p)
}

func (s *Service) save(ctx context.Context, before, p *models.Post) (*models.Post, error) {
	updated, err := s.posts.Update(ctx, p, p.Slug != before.Slug)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("post %s: %w", p.ID, ErrPostNotFound)
	}

	log.Info().
		Str("post_id", updated.ID.String()).
		Str("slug", updated.Slug).
		Bool("draft", updated.IsDraft).
		Msg("post updated")
	s.afterWrite(ctx, before, updated)
	return updated, nil
}

// checkCategory parses id and makes sure the category exists.
func (s *Service) checkCategory(ctx context.Context, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &models.ValidationError{Field: "categoryId", Message: "must be a valid id", Err: err}
	}
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	if c == nil {
		return uuid.Nil, models.Invalid("categoryId", "unknown category")
	}
	return id, nil
}

// featuredImage turns an empty image reference into nil.
func featuredImage(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
