// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"studentblog/internal/config"
)

// New builds a logger writing to out. Format "console" gives human-readable
// output; anything else is JSON. An unknown level falls back to info.
func New(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	if strings.ToLower(cfg.Format) == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: out != os.Stdout}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
		if cfg.Level != "" {
			tmp := zerolog.New(os.Stderr).With().Timestamp().Logger()
			tmp.Warn().Str("level", cfg.Level).Msg("invalid log level, defaulting to info")
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Setup installs a logger built from cfg as the global logger used through
// github.com/rs/zerolog/log.
func Setup(cfg config.LogConfig) {
	log.Logger = New(cfg, os.Stdout)
}
