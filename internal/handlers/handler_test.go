// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for the handler
// tests: in-memory repositories, a fake session store and a router wired
// the way the server wires it.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"studentblog/internal/content"
	"studentblog/internal/media"
	"studentblog/internal/middleware"
	"studentblog/internal/models"
	"studentblog/internal/render"
	"studentblog/internal/search"
	"studentblog/internal/session"
	"studentblog/internal/slug"
	"studentblog/internal/token"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

// --- posts and categories ---

type memPosts struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*models.Post
	failErr error
}

func (m *memPosts) SlugExists(_ context.Context, s string, excludeID *uuid.UUID) (bool, error) {
	for id, p := range m.byID {
		if p.Slug == s && (excludeID == nil || id != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPosts) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	resolved, err := slug.Resolve(ctx, p.Slug, m, nil)
	if err != nil {
		return nil, err
	}
	cp := *p
	cp.ID = uuid.New()
	cp.Slug = resolved
	cp.CreatedAt = fixedNow
	cp.UpdatedAt = fixedNow
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memPosts) Update(ctx context.Context, p *models.Post, resolveSlug bool) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	if _, ok := m.byID[p.ID]; !ok {
		return nil, nil
	}
	resolved := p.Slug
	if resolveSlug {
		var err error
		if resolved, err = slug.Resolve(ctx, p.Slug, m, &p.ID); err != nil {
			return nil, err
		}
	}
	cp := *p
	cp.Slug = resolved
	m.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memPosts) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return false, nil
	}
	delete(m.byID, id)
	return true, nil
}

func (m *memPosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (m *memPosts) FindPublishedBySlug(_ context.Context, s string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Slug == s && !p.IsDraft {
			out := *p
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memPosts) filter(keep func(*models.Post) bool) []models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Post
	for _, p := range m.byID {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func (m *memPosts) ListPublished(context.Context) ([]models.Post, error) {
	return m.filter(func(p *models.Post) bool { return !p.IsDraft }), nil
}

func (m *memPosts) ListPublishedByCategory(_ context.Context, categoryID uuid.UUID) ([]models.Post, error) {
	return m.filter(func(p *models.Post) bool { return !p.IsDraft && p.CategoryID == categoryID }), nil
}

func (m *memPosts) ListDrafts(context.Context) ([]models.Post, error) {
	return m.filter(func(p *models.Post) bool { return p.IsDraft }), nil
}

type memCategories struct {
	list []models.Category
}

func (m *memCategories) List(context.Context) ([]models.Category, error) {
	return m.list, nil
}

func (m *memCategories) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	for i := range m.list {
		if m.list[i].ID == id {
			c := m.list[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memCategories) FindBySlug(_ context.Context, s string) (*models.Category, error) {
	for i := range m.list {
		if m.list[i].Slug == s {
			c := m.list[i]
			return &c, nil
		}
	}
	return nil, nil
}

// --- media ---

type memMedia struct {
	items []models.Media
}

func (m *memMedia) Create(_ context.Context, item *models.Media) (*models.Media, error) {
	cp := *item
	cp.ID = uuid.New()
	cp.UploadedAt = fixedNow
	m.items = append(m.items, cp)
	return &cp, nil
}

func (m *memMedia) ListByUploader(_ context.Context, userID uuid.UUID) ([]models.Media, error) {
	var out []models.Media
	for _, item := range m.items {
		if item.UploadedBy == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

type memBackend struct {
	saved map[string][]byte
}

func (b *memBackend) Save(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.saved[key] = data
	return "/uploads/" + key, nil
}

// --- users and sessions ---

// memUsers stores plain-text passwords in PasswordHash.
type memUsers struct {
	byID map[uuid.UUID]*models.User
}

func (m *memUsers) add(username, password string, admin bool) *models.User {
	u := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: password,
		IsAdmin:      admin,
		CreatedAt:    fixedNow,
	}
	m.byID[u.ID] = u
	return u
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	m.byID[id].TOTPSecret = &secret
	return nil
}

func (m *memUsers) EnableTOTP(_ context.Context, id uuid.UUID) error {
	m.byID[id].TOTPEnabled = true
	return nil
}

func (m *memUsers) CheckPassword(u *models.User, password string) bool {
	return u.PasswordHash == password
}

// memSessions keeps sessions in a map keyed by the cookie value.
type memSessions struct {
	mu   sync.Mutex
	data map[string]*session.Data
}

func (m *memSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	cp := *data
	m.data[id] = &cp
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: id, Path: "/"})
	return id, nil
}

func (m *memSessions) Get(_ context.Context, r *http.Request) (*session.Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := r.Cookie(session.CookieName)
	if err != nil {
		return nil, nil
	}
	data, ok := m.data[c.Value]
	if !ok {
		return nil, nil
	}
	cp := *data
	return &cp, nil
}

func (m *memSessions) Update(_ context.Context, r *http.Request, data *session.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := r.Cookie(session.CookieName)
	if err != nil {
		return session.ErrNoSession
	}
	cp := *data
	m.data[c.Value] = &cp
	return nil
}

func (m *memSessions) Destroy(_ context.Context, w http.ResponseWriter, r *http.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, err := r.Cookie(session.CookieName); err == nil {
		delete(m.data, c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "", Path: "/", MaxAge: -1})
	return nil
}

// login stores a session directly and returns its cookie.
func (m *memSessions) login(u *models.User, twoFADone bool) *http.Cookie {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.data[id] = &session.Data{
		UserID:    u.ID,
		Username:  u.Username,
		IsAdmin:   u.IsAdmin,
		TwoFADone: twoFADone,
		CreatedAt: fixedNow,
	}
	return &http.Cookie{Name: session.CookieName, Value: id}
}

// --- search and page cache ---

type stubSearch struct {
	results []search.Result
	err     error
	queries []string
}

func (s *stubSearch) Search(q string, _ int) ([]search.Result, error) {
	s.queries = append(s.queries, q)
	return s.results, s.err
}

type memPages struct {
	mu    sync.Mutex
	pages map[string][]byte
}

func (m *memPages) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.pages[key]
	return b, ok
}

func (m *memPages) Set(_ context.Context, key string, html []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[key] = html
}

func (m *memPages) InvalidatePage(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, key)
}

func (m *memPages) InvalidateHomepage(ctx context.Context) {
	m.InvalidatePage(ctx, "_homepage")
}

// --- environment ---

// testEnv holds every handler group over shared in-memory state.
type testEnv struct {
	posts      *memPosts
	categories *memCategories
	mediaRepo  *memMedia
	backend    *memBackend
	users      *memUsers
	sessions   *memSessions
	search     *stubSearch
	pages      *memPages
	tokens     *token.Issuer

	admin   *models.User
	student *models.User
	finance models.Category
	tech    models.Category

	content *content.Service
	router  chi.Router
}

const testMaxUpload = 1 << 10

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		posts:     &memPosts{byID: make(map[uuid.UUID]*models.Post)},
		mediaRepo: &memMedia{},
		backend:   &memBackend{saved: make(map[string][]byte)},
		users:     &memUsers{byID: make(map[uuid.UUID]*models.User)},
		sessions:  &memSessions{data: make(map[string]*session.Data)},
		search:    &stubSearch{},
		pages:     &memPages{pages: make(map[string][]byte)},
		tokens:    token.NewIssuer("test-secret", time.Hour, "studentblog"),
		finance:   models.Category{ID: uuid.New(), Name: "Finanzas", Slug: "finanzas", Icon: "💰"},
		tech:      models.Category{ID: uuid.New(), Name: "Tecnología", Slug: "tecnologia", Icon: "💻"},
	}
	env.categories = &memCategories{list: []models.Category{env.finance, env.tech}}
	env.admin = env.users.add("profesora", "secret-pass", true)
	env.student = env.users.add("alumno", "student-pass", false)

	env.content = content.NewService(env.posts, env.categories,
		content.WithClock(func() time.Time { return fixedNow }),
		content.WithPageCache(env.pages, content.PageKeys{
			Post:     func(s string) string { return "post:" + s },
			Category: func(s string) string { return "category:" + s },
		}),
	)
	mediaSvc := media.NewService(env.mediaRepo, env.backend, testMaxUpload)

	renderer, err := render.New(false)
	require.NoError(t, err)
	site, err := render.NewSite()
	require.NoError(t, err)

	api := NewAPI(env.content, mediaSvc, env.search)
	apiAuth := NewAPIAuth(env.users, env.sessions, env.tokens, true)
	adminH := NewAdmin(renderer, env.content, mediaSvc)
	authH := NewAuth(renderer, env.sessions, env.users, true)
	public, err := NewPublic(env.content, env.search, site, env.pages, []byte("# Acerca de\n\nUn blog **académico**."))
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.LoadSession(env.sessions))

	r.Get("/", public.Home)
	r.Get("/category/{slug}", public.Category)
	r.Get("/post/{slug}", public.Post)
	r.Get("/about", public.About)
	r.Get("/search", public.Search)
	r.NotFound(public.NotFound)

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", api.Categories)
		r.Get("/categories/{slug}", api.Category)
		r.Get("/posts", api.Posts)
		r.Get("/posts/search", api.Search)
		r.Get("/posts/category/{slug}", api.PostsByCategory)
		r.Get("/posts/{slug}", api.Post)
		r.Post("/login", apiAuth.Login)
		r.Post("/logout", apiAuth.Logout)
		r.Get("/user", apiAuth.User)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAPIAdmin(env.tokens))
			r.Get("/posts", api.AdminPosts)
			r.Post("/posts", api.CreatePost)
			r.Get("/posts/{id}", api.AdminPost)
			r.Put("/posts/{id}", api.UpdatePost)
			r.Delete("/posts/{id}", api.DeletePost)
			r.Post("/posts/{id}/publish", api.PublishPost)
			r.Get("/media", api.ListMedia)
			r.Post("/media", api.UploadMedia)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", authH.LoginPage)
		r.Post("/login", authH.LoginSubmit)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/2fa/setup", authH.TwoFASetupPage)
			r.Get("/2fa/verify", authH.TwoFAVerifyPage)
			r.Post("/2fa/verify", authH.TwoFAVerifySubmit)
			r.Post("/logout", authH.Logout)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth, middleware.Require2FA, middleware.RequireAdmin)
			r.Get("/", adminH.Dashboard)
			r.Get("/posts", adminH.PostsList)
			r.Get("/posts/new", adminH.PostNew)
			r.Post("/posts", adminH.PostCreate)
			r.Get("/posts/{id}", adminH.PostEdit)
			r.Put("/posts/{id}", adminH.PostUpdate)
			r.Post("/posts/{id}", adminH.PostUpdate)
			r.Delete("/posts/{id}", adminH.PostDelete)
			r.Post("/posts/{id}/publish", adminH.PostPublish)
			r.Get("/media", adminH.MediaLibrary)
			r.Post("/media", adminH.MediaUpload)
		})
	})

	env.router = r
	return env
}

// do sends req through the router.
func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// jsonRequest builds a JSON request, optionally with a session cookie.
func jsonRequest(method, target string, body any, cookie *http.Cookie) *http.Request {
	var rd io.Reader
	if body != nil {
		if s, ok := body.(string); ok {
			rd = strings.NewReader(s)
		} else {
			b, _ := json.Marshal(body)
			rd = strings.NewReader(string(b))
		}
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

// formRequest builds a urlencoded form request with a session cookie.
func formRequest(method, target, form string, cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

// seedPost stores a post directly, bypassing the service.
func (env *testEnv) seedPost(title, s string, cat models.Category, draft bool) *models.Post {
	p := &models.Post{
		ID:         uuid.New(),
		Title:      title,
		Slug:       s,
		Content:    "<p>" + title + "</p>",
		CategoryID: cat.ID,
		AuthorID:   env.admin.ID,
		IsDraft:    draft,
		CreatedAt:  fixedNow,
		UpdatedAt:  fixedNow,
	}
	if !draft {
		at := fixedNow.Add(-time.Hour)
		p.PublishedAt = &at
	}
	env.posts.byID[p.ID] = p
	return p
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}
