// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Checker reports whether a slug is already taken. When excludeID is set,
// the post with that id does not count as a holder of the slug.
type Checker interface {
	SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
}

// CheckerFunc adapts a plain function to the Checker interface.
type CheckerFunc func(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)

// SlugExists calls f.
func (f CheckerFunc) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	return f(ctx, slug, excludeID)
}

// Resolve returns candidate if it is free, otherwise the first of
// candidate-1, candidate-2, ... that the checker reports as free.
//
// Resolve never writes. The result is only a point-in-time answer: callers
// must still handle a unique-constraint violation on the write that follows.
// Checker errors are returned as-is (wrapped) and are not retried here.
func Resolve(ctx context.Context, candidate string, c Checker, excludeID *uuid.UUID) (string, error) {
	resolved := candidate
	for counter := 1; ; counter++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("resolve slug %q: %w", candidate, err)
		}

		taken, err := c.SlugExists(ctx, resolved, excludeID)
		if err != nil {
			return "", fmt.Errorf("resolve slug %q: %w", candidate, err)
		}
		if !taken {
			return resolved, nil
		}
		resolved = candidate + "-" + strconv.Itoa(counter)
	}
}
