// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage writes uploaded media files to their backing store:
// the local disk by default, or an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Backend stores a file under key and returns the URL it is served from.
type Backend interface {
	Save(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// ErrInvalidKey is returned for keys that are not a plain file name.
var ErrInvalidKey = errors.New("invalid storage key")

// validKey accepts plain file names only: no separators, no dot segments.
func validKey(key string) bool {
	if key == "" || key == "." || key == ".." {
		return false
	}
	return !strings.ContainsAny(key, `/\`) && !strings.HasPrefix(key, ".")
}
