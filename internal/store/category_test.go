// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"testing"
)

func TestCategoryStoreList(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)

	cats, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cats) < 6 {
		t.Fatalf("expected at least the 6 seeded categories, got %d", len(cats))
	}
	for i := 1; i < len(cats); i++ {
		if cats[i].Name < cats[i-1].Name {
			t.Errorf("categories not sorted by name: %q before %q", cats[i-1].Name, cats[i].Name)
		}
	}
}

func TestCategoryStoreFind(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db)
	ctx := context.Background()

	c, err := s.FindBySlug(ctx, "legislacion-comercial")
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if c == nil || c.Name != "Legislación Comercial" || c.Icon != "ScalesIcon" {
		t.Fatalf("FindBySlug returned %+v", c)
	}

	byID, err := s.FindByID(ctx, c.ID)
	if err != nil || byID == nil || byID.Slug != c.Slug {
		t.Fatalf("FindByID = %+v, %v", byID, err)
	}

	missing, err := s.FindBySlug(ctx, "no-such-category")
	if err != nil {
		t.Fatalf("FindBySlug(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing category, got %+v", missing)
	}
}
