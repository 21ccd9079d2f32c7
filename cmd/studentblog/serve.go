// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"studentblog/internal/cache"
	"studentblog/internal/config"
	"studentblog/internal/content"
	"studentblog/internal/handlers"
	"studentblog/internal/media"
	"studentblog/internal/middleware"
	"studentblog/internal/render"
	"studentblog/internal/router"
	"studentblog/internal/search"
	"studentblog/internal/session"
	"studentblog/internal/storage"
	"studentblog/internal/store"
	"studentblog/internal/token"
	"studentblog/web"
)

const (
	// loginAttempts per loginWindow and client IP.
	loginAttempts = 10
	loginWindow   = time.Minute

	shutdownTimeout = 30 * time.Second
)

func runServe(ctx context.Context, cfg *config.Config) error {
	log.Info().Str("env", cfg.Env).Str("addr", cfg.Addr()).Msg("configuration loaded")

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	userStore := store.NewUserStore(db)
	if n, err := userStore.Count(ctx); err != nil {
		return err
	} else if n == 0 {
		log.Warn().Msg("no users yet; run `studentblog create-admin` before signing in")
	}

	// Valkey holds sessions and the public page cache.
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyAddr(), cfg.Valkey.Password)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)
	pageCache := cache.NewPageCache(valkeyClient, cache.DefaultPageTTL)
	// Templates may have changed since the last deploy.
	pageCache.InvalidateAll(ctx)

	idx, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	backend, uploads, err := mediaBackend(cfg)
	if err != nil {
		return err
	}

	contentSvc := content.NewService(
		store.NewPostStore(db),
		store.NewCategoryStore(db),
		content.WithIndexer(idx),
		content.WithPageCache(pageCache, content.PageKeys{
			Post:     cache.PostKey,
			Category: cache.CategoryKey,
		}),
	)
	mediaSvc := media.NewService(store.NewMediaStore(db), backend, cfg.Uploads.MaxBytes)
	tokens := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	if n, err := idx.Count(); err == nil && n == 0 {
		if posts, err := contentSvc.PublishedPosts(ctx); err == nil && len(posts) > 0 {
			if err := idx.Rebuild(posts); err != nil {
				log.Error().Err(err).Msg("search index rebuild failed")
			}
		}
	}

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		return err
	}
	site, err := render.NewSite()
	if err != nil {
		return err
	}
	public, err := handlers.NewPublic(contentSvc, idx, site, pageCache, web.About)
	if err != nil {
		return err
	}
	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}

	limiter := middleware.NewRateLimiter(loginAttempts, loginWindow)
	defer limiter.Stop()

	r := router.New(router.Deps{
		Sessions:       sessionStore,
		Tokens:         tokens,
		API:            handlers.NewAPI(contentSvc, mediaSvc, idx),
		APIAuth:        handlers.NewAPIAuth(userStore, sessionStore, tokens, cfg.Auth.Require2FA),
		Admin:          handlers.NewAdmin(renderer, contentSvc, mediaSvc),
		Auth:           handlers.NewAuth(renderer, sessionStore, userStore, cfg.Auth.Require2FA),
		Public:         public,
		Static:         static,
		Uploads:        uploads,
		UploadsPrefix:  cfg.Uploads.URLPrefix,
		AllowedOrigins: cfg.AllowedOrigins(),
		SecureCookies:  secureCookies,
		TrustProxy:     cfg.Server.TrustProxy,
		LoginLimiter:   limiter,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped gracefully")
	return nil
}

// mediaBackend picks S3 when it is configured and local disk otherwise. The
// handler is non-nil only for disk, which serves its own files.
func mediaBackend(cfg *config.Config) (storage.Backend, http.Handler, error) {
	if cfg.S3Enabled() {
		s3 := cfg.Uploads.S3
		client, err := storage.NewS3(s3.Endpoint, s3.Region, s3.AccessKey, s3.SecretKey, s3.Bucket, s3.PublicURL)
		if err != nil {
			return nil, nil, fmt.Errorf("s3 storage: %w", err)
		}
		log.Info().Str("endpoint", s3.Endpoint).Str("bucket", s3.Bucket).Msg("s3 storage connected")
		return client, nil, nil
	}

	disk, err := storage.NewDisk(cfg.Uploads.Dir, cfg.Uploads.URLPrefix)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("dir", cfg.Uploads.Dir).Msg("storing uploads on disk")
	return disk, disk.Handler(), nil
}
