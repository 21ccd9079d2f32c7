// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package content implements the blog's post operations on top of the
// repositories: input handling, publish-date rules, sanitizing, and keeping
// the search index and page cache in step with every write.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"studentblog/internal/models"
)

var (
	// ErrPostNotFound is returned when a post id or slug matches nothing
	// visible to the caller.
	ErrPostNotFound = errors.New("post not found")

	// ErrCategoryNotFound is returned when a category slug matches nothing.
	ErrCategoryNotFound = errors.New("category not found")
)

// PostRepository persists posts. Create and Update resolve the slug to a
// free value and return the post as stored.
type PostRepository interface {
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	Update(ctx context.Context, p *models.Post, resolveSlug bool) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindPublishedBySlug(ctx context.Context, slug string) (*models.Post, error)
	ListPublished(ctx context.Context) ([]models.Post, error)
	ListPublishedByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Post, error)
	ListDrafts(ctx context.Context) ([]models.Post, error)
}

// CategoryRepository reads categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
}

// Indexer keeps the search index in step with published posts.
type Indexer interface {
	IndexPost(p *models.Post) error
	Remove(id uuid.UUID) error
}

// PageInvalidator drops cached public pages.
type PageInvalidator interface {
	InvalidatePage(ctx context.Context, key string)
	InvalidateHomepage(ctx context.Context)
}

// Service implements post operations.
type Service struct {
	posts      PostRepository
	categories CategoryRepository
	index      Indexer
	pages      PageInvalidator
	keys       PageKeys
	policy     *bluemonday.Policy
	validate   *validator.Validate
	now        func() time.Time
}

// PageKeys builds cache keys for the pages a post appears on.
type PageKeys struct {
	Post     func(slug string) string
	Category func(slug string) string
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIndexer keeps idx updated on every write.
func WithIndexer(idx Indexer) Option {
	return func(s *Service) { s.index = idx }
}

// WithPageCache invalidates cached pages on every write.
func WithPageCache(pages PageInvalidator, keys PageKeys) Option {
	return func(s *Service) {
		s.pages = pages
		s.keys = keys
	}
}

// NewService returns a Service over the given repositories.
func NewService(posts PostRepository, categories CategoryRepository, opts ...Option) *Service {
	s := &Service{
		posts:      posts,
		categories: categories,
		policy:     bluemonday.UGCPolicy(),
		validate:   newValidator(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categories lists all categories.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

// Category returns the category with slug, or ErrCategoryNotFound.
func (s *Service) Category(ctx context.Context, slug string) (*models.Category, error) {
	c, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("category %q: %w", slug, ErrCategoryNotFound)
	}
	return c, nil
}

// PublishedPosts lists published posts, newest first.
func (s *Service) PublishedPosts(ctx context.Context) ([]models.Post, error) {
	return s.posts.ListPublished(ctx)
}

// DraftPosts lists drafts, most recently created first.
func (s *Service) DraftPosts(ctx context.Context) ([]models.Post, error) {
	return s.posts.ListDrafts(ctx)
}

// PostsByCategory returns a category and its published posts.
func (s *Service) PostsByCategory(ctx context.Context, slug string) (*models.Category, []models.Post, error) {
	c, err := s.Category(ctx, slug)
	if err != nil {
		return nil, nil, err
	}
	posts, err := s.posts.ListPublishedByCategory(ctx, c.ID)
	if err != nil {
		return nil, nil, err
	}
	return c, posts, nil
}

// PublishedPost returns the non-draft post with slug, or ErrPostNotFound.
func (s *Service) PublishedPost(ctx context.Context, slug string) (*models.Post, error) {
	p, err := s.posts.FindPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("post %q: %w", slug, ErrPostNotFound)
	}
	return p, nil
}

// Post returns any post by id, drafts included, or ErrPostNotFound.
func (s *Service) Post(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("post %s: %w", id, ErrPostNotFound)
	}
	return p, nil
}

// Stats summarizes post counts for the dashboard.
type Stats struct {
	Published int
	Drafts    int
}

// Dashboard returns the published and draft listings with their counts.
func (s *Service) Dashboard(ctx context.Context) (published, drafts []models.Post, stats Stats, err error) {
	published, err = s.PublishedPosts(ctx)
	if err != nil {
		return nil, nil, Stats{}, err
	}
	drafts, err = s.DraftPosts(ctx)
	if err != nil {
		return nil, nil, Stats{}, err
	}
	return published, drafts, Stats{Published: len(published), Drafts: len(drafts)}, nil
}

// DeletePost removes a post. Returns ErrPostNotFound if nothing was deleted.
func (s *Service) DeletePost(ctx context.Context, id uuid.UUID) error {
	existing, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.posts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("post %s: %w", id, ErrPostNotFound)
	}

	log.Info().Str("post_id", id.String()).Msg("post deleted")
	s.afterWrite(ctx, existing, nil)
	return nil
}

// afterWrite syncs the search index and drops cached pages. before is the
// post as it was, after as it is now; either may be nil. Failures are
// logged and never fail the write.
func (s *Service) afterWrite(ctx context.Context, before, after *models.Post) {
	if s.index != nil {
		switch {
		case after != nil && after.IsPublished():
			if err := s.index.IndexPost(after); err != nil {
				log.Warn().Err(err).Str("post_id", after.ID.String()).Msg("search index update failed")
			}
		case after != nil:
			if err := s.index.Remove(after.ID); err != nil {
				log.Warn().Err(err).Str("post_id", after.ID.String()).Msg("search index removal failed")
			}
		case before != nil:
			if err := s.index.Remove(before.ID); err != nil {
				log.Warn().Err(err).Str("post_id", before.ID.String()).Msg("search index removal failed")
			}
		}
	}

	if s.pages == nil {
		return
	}
	s.pages.InvalidateHomepage(ctx)
	for _, p := range []*models.Post{before, after} {
		if p == nil {
			continue
		}
		if s.keys.Post != nil {
			s.pages.InvalidatePage(ctx, s.keys.Post(p.Slug))
		}
		if s.keys.Category != nil {
			if c, err := s.categories.FindByID(ctx, p.CategoryID); err == nil && c != nil {
				s.pages.InvalidatePage(ctx, s.keys.Category(c.Slug))
			}
		}
	}
}
