// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentblog/internal/models"
	"studentblog/internal/search"
	"studentblog/internal/store"
)

func TestAPICreatePostDuplicateTitles(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessions.login(env.admin, true)

	want := []string{"intro-to-markets", "intro-to-markets-1", "intro-to-markets-2"}
	for _, slug := range want {
		w := env.do(jsonRequest(http.MethodPost, "/api/admin/posts", map[string]any{
			"title":      "Intro to Markets",
			"categoryId": env.finance.ID.String(),
		}, cookie))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		post := decodeBody[models.Post](t, w)
		assert.Equal(t, slug, post.Slug)
		assert.True(t, post.IsDraft, "posts default to draft")
		assert.Nil(t, post.PublishedAt)
		assert.Equal(t, env.admin.ID, post.AuthorID)
	}
}

func TestAPICreatePostPublishedGetsStamped(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessions.login(env.admin, true)

	w := env.do(jsonRequest(http.MethodPost, "/api/admin/posts", map[string]any{
		"title":      "Presupuesto Personal",
		"content":    "<p>Hola</p><script>alert(1)</script>",
		"categoryId": env.finance.ID.String(),
		"isDraft":    false,
	}, cookie))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	post := decodeBody[models.Post](t, w)
	assert.Equal(t, "presupuesto-personal", post.Slug)
	require.NotNil(t, post.PublishedAt)
	assert.True(t, post.PublishedAt.Equal(fixedNow))
	assert.NotContains(t, post.Content, "<script>")
}

func TestAPICreatePostValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessions.login(env.admin, true)
	cat := env.finance.ID.String()

	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{"missing title", map[string]any{"categoryId": cat}, "title"},
		{"blank title", map[string]any{"title": "   ", "categoryId": cat}, "title"},
		{"title too long", map[string]any{"title": string(bytes.Repeat([]byte("a"), 301)), "categoryId": cat}, "title"},
		{"bad slug", map[string]any{"title": "Hola", "slug": "Bad Slug", "categoryId": cat}, "slug"},
		{"short slug", map[string]any{"title": "Hola", "slug": "ab", "categoryId": cat}, "slug"},
		{"missing category", map[string]any{"title": "Hola"}, "categoryId"},
		{"malformed category", map[string]any{"title": "Hola", "categoryId": "nope"}, "categoryId"},
		{"unknown category", map[string]any{"title": "Hola", "categoryId": "7f1f7a6e-8a4c-4f43-9d0e-1d6f0f8b5e11"}, "categoryId"},
		{"bad date", map[string]any{"title": "Hola", "categoryId": cat, "publishedAt": "ayer"}, "publishedAt"},
		{"title without slug characters", map[string]any{"title": "¿¡!?", "categoryId": cat}, "slug"},
		{"malformed json", `{"title":`, "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(jsonRequest(http.MethodPost, "/api/admin/posts", tt.body, cookie))
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			body := decodeBody[errorBody](t, w)
			assert.Equal(t, tt.wantField, body.Field)
			assert.NotEmpty(t, body.Error)
		})
	}
	assert.Empty(t, env.posts.byID, "nothing stored on invalid input")
}

func TestAPICreatePostSlugConflict(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessions.login(env.admin, true)
	env.posts.failErr = fmt.Errorf("create post: %w", store.ErrSlugConflict)

	w := env.do(jsonRequest(http.MethodPost, "/api/admin/posts", map[string]any{
		"title":      "Carrera",
		"categoryId": env.finance.ID.String(),
	}, cookie))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "slug", decodeBody[errorBody](t, w).Field)
}

func TestAPICreatePostStoreFailure(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessions.login(env.admin, true)
	env.posts.failErr = errors.New("connection reset by peer")

	w := env.do(jsonRequest(http.MethodPost, "/api/admin/posts", map[string]any{
		"title":      "Carrera",
		"categoryId": env.finance.ID.String(),
	}, cookie))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset", "internal errors are not exposed")
}

func TestAPIUpdatePost(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessions.login(env.admin, true)
	env.seedPost("Taken", "taken", env.finance, false)
	post := env.seedPost("Borrador", "borrador", env.finance, true)

	t.Run("same slug is kept", func(t *testing.T) {
		w := env.do(jsonRequest(http.MethodPut, "/api/admin/posts/"+post.ID.String(), map[string]any{
			"title": "Borrador editado",
			"slug":  "borrador",
		}, cookie))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decodeBody[models.Post](t, w)
		assert.Equal(t, "borrador", got.Slug)
		assert.Equal(t, "Borrador editado", got.Title)
	})

	t.Run("taken slug gets a suffix", func(t *testing.T) {
		w := env.do(jsonRequest(http.MethodPut, "/api/admin/posts/"+post.ID.String(), map[string]any{
			"slug": "taken",
		}, cookie))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "taken-1", decodeBody[models.Post](t, w).Slug)
	})

	t.Run("publishing stamps the date", func(t *testing.T) {
		w := env.do(jsonRequest(http.MethodPut, "/api/admin/posts/"+post.ID.String(), map[string]any{
			"isDraft": false,
		}, cookie))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := decodeBody[models.Post](t, w)
		require.NotNil(t, got.PublishedAt)
		assert.True(t, got.PublishedAt.Equal(fixedNow))
	})

	t.Run("unknown id", func(t *testing.T) {
		w := env.do(jsonRequest(http.MethodPut, "/api/admin/posts/7f1f7a6e-8a4c-4f43-9d0e-1d6f0f8b5e11", map[string]any{"title": "x"}, cookie))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := env.do(jsonRequest(http.MethodPut, "/api/admin/posts/not-a-uuid", map[string]any{"title": "x"}, cookie))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAPIPublishAndDeletePost(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessions.login(env.admin, true)
	post := env.seedPost("Borrador", "borrador", env.tech, true)

	w := env.do(jsonRequest(http.MethodPost, "/api/admin/posts/"+post.ID.String()+"/publish", nil, cookie))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decodeBody[models.Post](t, w)
	assert.False(t, got.IsDraft)
	require.NotNil(t, got.PublishedAt)
	assert.True(t, got.PublishedAt.Equal(fixedNow))

	w = env.do(jsonRequest(http.MethodDelete, "/api/admin/posts/"+post.ID.String(), nil, cookie))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = env.do(jsonRequest(http.MethodDelete, "/api/admin/posts/"+post.ID.String(), nil, cookie))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPIAdminPostsListing(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessions.login(env.admin, true)

	w := env.do(jsonRequest(http.MethodGet, "/api/admin/posts", nil, cookie))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"published":[],"drafts":[]}`, w.Body.String())

	env.seedPost("Publicada", "publicada", env.finance, false)
	env.seedPost("Borrador", "borrador", env.finance, true)

	w = env.do(jsonRequest(http.MethodGet, "/api/admin/posts", nil, cookie))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody[adminPostsResponse](t, w)
	require.Len(t, body.Published, 1)
	require.Len(t, body.Drafts, 1)
	assert.Equal(t, "publicada", body.Published[0].Slug)
	assert.Equal(t, "borrador", body.Drafts[0].Slug)
}

func TestAPIAdminAccess(t *testing.T) {
	env := newTestEnv(t)

	adminToken, _, err := env.tokens.Issue(env.admin.ID, env.admin.Username, true)
	require.NoError(t, err)
	studentToken, _, err := env.tokens.Issue(env.student.ID, env.student.Username, false)
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie *http.Cookie
		bearer string
		want   int
	}{
		{"anonymous", nil, "", http.StatusUnauthorized},
		{"session without second factor", env.sessions.login(env.admin, false), "", http.StatusUnauthorized},
		{"non-admin session", env.sessions.login(env.student, true), "", http.StatusForbidden},
		{"admin session", env.sessions.login(env.admin, true), "", http.StatusOK},
		{"admin token", nil, adminToken, http.StatusOK},
		{"non-admin token", nil, studentToken, http.StatusForbidden},
		{"garbage token", nil, "not.a.jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(http.MethodGet, "/api/admin/posts", nil, tt.cookie)
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			w := env.do(req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAPITokenAuthorsPosts(t *testing.T) {
	env := newTestEnv(t)
	raw, _, err := env.tokens.Issue(env.admin.ID, env.admin.Username, true)
	require.NoError(t, err)

	req := jsonRequest(http.MethodPost, "/api/admin/posts", map[string]any{
		"title":      "Desde la API",
		"categoryId": env.tech.ID.String(),
	}, nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w := env.do(req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, env.admin.ID, decodeBody[models.Post](t, w).AuthorID)
}

func TestAPIPublicReads(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(jsonRequest(http.MethodGet, "/api/posts", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String(), "empty listing is an array")

	env.seedPost("Ahorro", "ahorro", env.finance, false)
	env.seedPost("Secreto", "secreto", env.finance, true)
	env.seedPost("Go", "go-basico", env.tech, false)

	w = env.do(jsonRequest(http.MethodGet, "/api/posts", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]models.Post](t, w), 2)

	w = env.do(jsonRequest(http.MethodGet, "/api/posts/ahorro", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ahorro", decodeBody[models.Post](t, w).Title)

	w = env.do(jsonRequest(http.MethodGet, "/api/posts/secreto", nil, nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "drafts are not public")

	w = env.do(jsonRequest(http.MethodGet, "/api/posts/category/tecnologia", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	posts := decodeBody[[]models.Post](t, w)
	require.Len(t, posts, 1)
	assert.Equal(t, "go-basico", posts[0].Slug)

	w = env.do(jsonRequest(http.MethodGet, "/api/posts/category/nada", nil, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(jsonRequest(http.MethodGet, "/api/categories", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]models.Category](t, w), 2)

	w = env.do(jsonRequest(http.MethodGet, "/api/categories/finanzas", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Finanzas", decodeBody[models.Category](t, w).Name)

	w = env.do(jsonRequest(http.MethodGet, "/api/categories/nada", nil, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPISearch(t *testing.T) {
	env := newTestEnv(t)
	env.search.results = []search.Result{{ID: uuid.New(), Title: "Ahorro", Slug: "ahorro", Score: 1.5}}

	w := env.do(jsonRequest(http.MethodGet, "/api/posts/search?q=", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Empty(t, env.search.queries, "blank query never reaches the index")

	w = env.do(jsonRequest(http.MethodGet, "/api/posts/search?q=ahorro", nil, nil))
	require.Equal(t, http.StatusOK, w.Code)
	results := decodeBody[[]search.Result](t, w)
	require.Len(t, results, 1)
	assert.Equal(t, "ahorro", results[0].Slug)
	assert.Equal(t, []string{"ahorro"}, env.search.queries)

	env.search.err = errors.New("index closed")
	w = env.do(jsonRequest(http.MethodGet, "/api/posts/search?q=ahorro", nil, nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// pngBytes is the 8-byte PNG signature followed by an IHDR chunk header.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func multipartUpload(t *testing.T, target, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "sin archivo"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAPIUploadMedia(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.sessions.login(env.admin, true)

	t.Run("image", func(t *testing.T) {
		req := multipartUpload(t, "/api/admin/media", "logo.png", pngBytes)
		req.AddCookie(cookie)
		w := env.do(req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		m := decodeBody[models.Media](t, w)
		assert.Equal(t, "image/png", m.Mimetype)
		assert.Equal(t, "logo.png", m.OriginalFilename)
		assert.Equal(t, env.admin.ID, m.UploadedBy)
		assert.Equal(t, pngBytes, env.backend.saved[m.Filename])
	})

	t.Run("disallowed type", func(t *testing.T) {
		req := multipartUpload(t, "/api/admin/media", "notes.txt", []byte("just some plain text"))
		req.AddCookie(cookie)
		w := env.do(req)
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Equal(t, "file", decodeBody[errorBody](t, w).Field)
	})

	t.Run("missing file", func(t *testing.T) {
		req := multipartUpload(t, "/api/admin/media", "", nil)
		req.AddCookie(cookie)
		w := env.do(req)
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		assert.Equal(t, "file", decodeBody[errorBody](t, w).Field)
	})

	t.Run("too large", func(t *testing.T) {
		big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, testMaxUpload)...)
		req := multipartUpload(t, "/api/admin/media", "big.png", big)
		req.AddCookie(cookie)
		w := env.do(req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	})

	w := env.do(jsonRequest(http.MethodGet, "/api/admin/media", nil, cookie))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[[]models.Media](t, w), 1, "only the accepted upload is listed")
}

func TestAPIListMediaOnlyOwnUploads(t *testing.T) {
	env := newTestEnv(t)
	other := env.users.add("otra", "pass", true)
	env.mediaRepo.items = append(env.mediaRepo.items,
		models.Media{Filename: "a.png", UploadedBy: env.admin.ID, UploadedAt: fixedNow},
		models.Media{Filename: "b.png", UploadedBy: other.ID, UploadedAt: fixedNow.Add(time.Minute)},
	)

	w := env.do(jsonRequest(http.MethodGet, "/api/admin/media", nil, env.sessions.login(env.admin, true)))
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody[[]models.Media](t, w)
	require.Len(t, items, 1)
	assert.Equal(t, "a.png", items[0].Filename)
}
