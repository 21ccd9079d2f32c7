// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"studentblog/internal/models"
	"studentblog/internal/slug"
)

// maxSlugAttempts bounds how many times a write re-resolves its slug after
// losing a race on the unique constraint.
const maxSlugAttempts = 2

// PostStore handles all post-related database operations.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postColumns = `id, title, slug, content, category_id, author_id,
	published_at, created_at, updated_at, is_draft, featured_image`

// scanPost scans a post row from the result set.
func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var p models.Post
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Content, &p.CategoryID, &p.AuthorID,
		&p.PublishedAt, &p.CreatedAt, &p.UpdatedAt, &p.IsDraft, &p.FeaturedImage,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SlugExists reports whether any post other than excludeID uses slug.
func (s *PostStore) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	var err error
	if excludeID == nil {
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`, slug,
		).Scan(&exists)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1 AND id <> $2)`, slug, *excludeID,
		).Scan(&exists)
	}
	if err != nil {
		return false, fmt.Errorf("check slug exists: %w", err)
	}
	return exists, nil
}

// Create resolves the post's slug to a free value and inserts the post.
// The stored post, with its final slug, is returned.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	return writeWithSlug(ctx, s, "create post", p.Slug, nil, true, func(resolved string) (*models.Post, error) {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO posts (title, slug, content, category_id, author_id,
			                   published_at, is_draft, featured_image)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+postColumns,
			p.Title, resolved, p.Content, p.CategoryID, p.AuthorID,
			p.PublishedAt, p.IsDraft, p.FeaturedImage,
		)
		return scanPost(row)
	})
}

// Update writes every field of p to the row with p.ID. When resolveSlug is
// set the slug is resolved first with the post itself excluded; otherwise
// p.Slug is written as it is. Returns nil if no post has that ID.
func (s *PostStore) Update(ctx context.Context, p *models.Post, resolveSlug bool) (*models.Post, error) {
	return writeWithSlug(ctx, s, "update post", p.Slug, &p.ID, resolveSlug, func(resolved string) (*models.Post, error) {
		row := s.db.QueryRowContext(ctx, `
			UPDATE posts SET
				title = $1, slug = $2, content = $3, category_id = $4,
				published_at = $5, is_draft = $6, featured_image = $7,
				updated_at = NOW()
			WHERE id = $8
			RETURNING `+postColumns,
			p.Title, resolved, p.Content, p.CategoryID,
			p.PublishedAt, p.IsDraft, p.FeaturedImage, p.ID,
		)
		post, err := scanPost(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return post, err
	})
}

// writeWithSlug runs write with candidate, resolved against checker first
// when resolve is set. If the write hits the slug unique constraint, because
// another writer took the slug between the check and the write, it resolves
// again and retries once.
func writeWithSlug(
	ctx context.Context,
	checker slug.Checker,
	op, candidate string,
	excludeID *uuid.UUID,
	resolve bool,
	write func(resolved string) (*models.Post, error),
) (*models.Post, error) {
	for attempt := 1; ; attempt++ {
		resolved := candidate
		if resolve || attempt > 1 {
			var err error
			resolved, err = slug.Resolve(ctx, candidate, checker, excludeID)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}

		post, err := write(resolved)
		if err == nil {
			return post, nil
		}
		if !IsUniqueViolation(err, constraintPostSlug) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if attempt >= maxSlugAttempts {
			return nil, fmt.Errorf("%s %q: %w", op, resolved, ErrSlugConflict)
		}

		log.Warn().
			Str("op", op).
			Str("slug", resolved).
			Int("attempt", attempt).
			Msg("slug taken by a concurrent write, resolving again")
	}
}

// Delete removes a post by ID. It reports whether a row was deleted.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete post: %w", err)
	}
	return n > 0, nil
}

// FindByID retrieves a post by its UUID, draft or not. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// FindPublishedBySlug retrieves a non-draft post by slug. Drafts are never
// returned. Returns nil if not found.
func (s *PostStore) FindPublishedBySlug(ctx context.Context, slug string) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE slug = $1 AND is_draft = FALSE
	`, slug)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by slug: %w", err)
	}
	return p, nil
}

// ListPublished returns all published posts, newest publish date first.
func (s *PostStore) ListPublished(ctx context.Context) ([]models.Post, error) {
	return s.list(ctx, "list published posts", `
		SELECT `+postColumns+` FROM posts
		WHERE is_draft = FALSE AND published_at IS NOT NULL
		ORDER BY published_at DESC
	`)
}

// ListPublishedByCategory returns the published posts of one category,
// newest publish date first.
func (s *PostStore) ListPublishedByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Post, error) {
	return s.list(ctx, "list posts by category", `
		SELECT `+postColumns+` FROM posts
		WHERE category_id = $1 AND is_draft = FALSE AND published_at IS NOT NULL
		ORDER BY published_at DESC
	`, categoryID)
}

// ListDrafts returns all drafts, most recently created first.
func (s *PostStore) ListDrafts(ctx context.Context) ([]models.Post, error) {
	return s.list(ctx, "list drafts", `
		SELECT `+postColumns+` FROM posts
		WHERE is_draft = TRUE
		ORDER BY created_at DESC
	`)
}

func (s *PostStore) list(ctx context.Context, op, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}
