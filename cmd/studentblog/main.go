// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the student blog. The default command
// serves the site; the others cover one-off operations a deployment runs by
// hand: applying migrations, provisioning admins and rebuilding the search
// index.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"studentblog/internal/config"
	"studentblog/internal/content"
	"studentblog/internal/database"
	"studentblog/internal/logger"
	"studentblog/internal/search"
	"studentblog/internal/store"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// minPasswordLength applies to accounts created from the command line.
const minPasswordLength = 8

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "studentblog",
		Short:         "Blog de recursos académicos para estudiantes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger.Setup(cfg.Log)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending migrations, including the category seed, and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := openDB(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				return db.Close()
			},
		},
		newCreateAdminCmd(&cfg),
		&cobra.Command{
			Use:   "reindex",
			Short: "Rebuild the search index from published posts",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runReindex(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "studentblog", version)
			},
		},
	)

	return root
}

func newCreateAdminCmd(cfg **config.Config) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long: "Create an administrator account. Posts are always attributed to the\n" +
			"account that writes them, so at least one admin must exist before the\n" +
			"panel or the admin API can be used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("BLOG_ADMIN_PASSWORD")
			}
			if err := checkCredentials(username, password); err != nil {
				return err
			}

			db, err := openDB(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := store.NewUserStore(db).Create(cmd.Context(), username, password, true)
			if errors.Is(err, store.ErrUsernameTaken) {
				return fmt.Errorf("user %q already exists", username)
			}
			if err != nil {
				return err
			}

			log.Info().Str("username", user.Username).Str("id", user.ID.String()).Msg("admin created")
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "login name of the new admin")
	cmd.Flags().StringVar(&password, "password", "", "password (defaults to $BLOG_ADMIN_PASSWORD)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

// checkCredentials validates command line account input.
func checkCredentials(username, password string) error {
	if username == "" {
		return errors.New("username is required")
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// openDB connects to PostgreSQL and applies pending migrations.
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runReindex(ctx context.Context, cfg *config.Config) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	idx, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	svc := content.NewService(store.NewPostStore(db), store.NewCategoryStore(db))
	posts, err := svc.PublishedPosts(ctx)
	if err != nil {
		return err
	}
	if err := idx.Rebuild(posts); err != nil {
		return err
	}

	log.Info().Int("posts", len(posts)).Str("path", cfg.Search.IndexPath).Msg("search index rebuilt")
	return nil
}
