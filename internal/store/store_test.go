// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"studentblog/internal/database"
	"studentblog/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("BLOG_DB_HOST", "localhost")
	port := envOr("BLOG_DB_PORT", "5432")
	user := envOr("BLOG_DB_USER", "studentblog")
	pass := envOr("BLOG_DB_PASSWORD", "changeme")
	name := envOr("BLOG_DB_NAME", "studentblog")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testUser creates a throwaway user and removes it, with everything it
// authored, when the test finishes.
func testUser(t *testing.T, db *sql.DB) *models.User {
	t.Helper()
	username := "store-test-" + uuid.NewString()[:8]
	u, err := NewUserStore(db).Create(context.Background(), username, "testpass123", true)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM media WHERE uploaded_by = $1", u.ID)
		db.Exec("DELETE FROM posts WHERE author_id = $1", u.ID)
		db.Exec("DELETE FROM users WHERE id = $1", u.ID)
	})
	return u
}

// testCategory returns one of the seeded categories.
func testCategory(t *testing.T, db *sql.DB, slug string) *models.Category {
	t.Helper()
	c, err := NewCategoryStore(db).FindBySlug(context.Background(), slug)
	if err != nil {
		t.Fatalf("find category %s: %v", slug, err)
	}
	if c == nil {
		t.Fatalf("seeded category %s missing", slug)
	}
	return c
}

// uniqueSlug returns a slug prefix unlikely to clash with other test runs.
func uniqueSlug(base string) string {
	return base + "-" + uuid.NewString()[:8]
}
