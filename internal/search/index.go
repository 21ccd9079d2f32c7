// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package search keeps a full-text index of published posts.
package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/es"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/google/uuid"

	"studentblog/internal/models"
)

// Index wraps a Bleve search index.
type Index struct {
	index bleve.Index
}

// document is what gets stored per post.
type document struct {
	ID          string
	Title       string
	Slug        string
	Content     string
	CategoryID  string
	PublishedAt time.Time
}

// Result is a single search hit.
type Result struct {
	ID        uuid.UUID           `json:"id"`
	Title     string              `json:"title"`
	Slug      string              `json:"slug"`
	Score     float64             `json:"score"`
	Fragments map[string][]string `json:"fragments"` // highlighted snippets, HTML
}

// Open opens the index at path, creating it if it does not exist. An empty
// path gives an in-memory index that is lost on restart.
func Open(path string) (*Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &Index{index: idx}, nil
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// buildIndexMapping indexes title and content with the Spanish analyzer,
// most posts being written in Spanish. Slug is stored for links only.
func buildIndexMapping() mapping.IndexMapping {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = "es"

	stored := bleve.NewTextFieldMapping()
	stored.Index = false
	stored.Store = true

	keyword := bleve.NewKeywordFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Title", text)
	docMapping.AddFieldMappingsAt("Content", text)
	docMapping.AddFieldMappingsAt("Slug", stored)
	docMapping.AddFieldMappingsAt("ID", keyword)
	docMapping.AddFieldMappingsAt("CategoryID", keyword)
	docMapping.AddFieldMappingsAt("PublishedAt", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = "es"
	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

func toDocument(p *models.Post) *document {
	doc := &document{
		ID:         p.ID.String(),
		Title:      p.Title,
		Slug:       p.Slug,
		Content:    p.Content,
		CategoryID: p.CategoryID.String(),
	}
	if p.PublishedAt != nil {
		doc.PublishedAt = *p.PublishedAt
	}
	return doc
}

// IndexPost adds or replaces a post in the index.
func (i *Index) IndexPost(p *models.Post) error {
	if err := i.index.Index(p.ID.String(), toDocument(p)); err != nil {
		return fmt.Errorf("index post %s: %w", p.ID, err)
	}
	return nil
}

// Remove drops a post from the index. Removing an unknown id is not an error.
func (i *Index) Remove(id uuid.UUID) error {
	if err := i.index.Delete(id.String()); err != nil {
		return fmt.Errorf("remove post %s: %w", id, err)
	}
	return nil
}

// Search runs a query-string query (quotes, +/- and fuzzy ~ supported)
// and returns up to limit hits with highlighted fragments.
func (i *Index) Search(queryStr string, limit int) ([]Result, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Fields = []string{"Title", "Slug"}

	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		r := Result{ID: id, Score: hit.Score, Fragments: hit.Fragments}
		if title, ok := hit.Fields["Title"].(string); ok {
			r.Title = title
		}
		if slug, ok := hit.Fields["Slug"].(string); ok {
			r.Slug = slug
		}
		results = append(results, r)
	}
	return results, nil
}

// Rebuild indexes every post in one batch. Posts that are not published
// are skipped.
func (i *Index) Rebuild(posts []models.Post) error {
	batch := i.index.NewBatch()
	for idx := range posts {
		p := &posts[idx]
		if !p.IsPublished() {
			continue
		}
		if err := batch.Index(p.ID.String(), toDocument(p)); err != nil {
			return fmt.Errorf("batch index %s: %w", p.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Count returns the number of documents in the index.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}
