// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE PostgreSQL reports for a unique
// constraint violation.
const pgUniqueViolation = "23505"

// Constraint names the stores react to. They match the migrations.
const (
	constraintPostSlug     = "posts_slug_key"
	constraintUserUsername = "users_username_key"
)

var (
	// ErrSlugConflict is returned when a post write keeps losing the race
	// for its slug after the allowed retry.
	ErrSlugConflict = errors.New("slug already taken")

	// ErrUsernameTaken is returned when creating a user with a username
	// that already exists.
	ErrUsernameTaken = errors.New("username already taken")
)

// IsUniqueViolation reports whether err is a PostgreSQL unique violation.
// When constraint is non-empty the violated constraint must match too.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
