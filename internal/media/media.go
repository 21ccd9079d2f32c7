// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package media accepts uploaded files, checks them against the allowed
// types and size, stores them and records them in the media library.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"studentblog/internal/models"
	"studentblog/internal/storage"
)

// DefaultMaxBytes is the upload size limit (10 MB).
const DefaultMaxBytes = 10 << 20

// allowedTypes are the MIME types accepted for upload.
var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/svg+xml",
	"video/mp4",
	"video/webm",
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("file too large")

// Repository records uploaded files.
type Repository interface {
	Create(ctx context.Context, m *models.Media) (*models.Media, error)
	ListByUploader(ctx context.Context, userID uuid.UUID) ([]models.Media, error)
}

// Service handles uploads.
type Service struct {
	repo     Repository
	backend  storage.Backend
	maxBytes int64
}

// NewService returns a Service. maxBytes <= 0 means DefaultMaxBytes.
func NewService(repo Repository, backend storage.Backend, maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{repo: repo, backend: backend, maxBytes: maxBytes}
}

// MaxBytes returns the upload size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload is a file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.ReadSeeker
}

// Upload checks, stores and records a file for uploaderID. The stored file
// is named with a fresh UUID plus the extension of the sniffed type; the
// client's filename is only kept as OriginalFilename.
func (s *Service) Upload(ctx context.Context, up Upload, uploaderID uuid.UUID) (*models.Media, error) {
	if up.Size > s.maxBytes {
		return nil, fmt.Errorf("%s is %d bytes: %w", up.Filename, up.Size, ErrTooLarge)
	}

	contentType, err := Detect(up.Body)
	if err != nil {
		return nil, err
	}
	if _, err := up.Body.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}

	filename := uuid.NewString() + extensionFor(contentType)

	url, err := s.backend.Save(ctx, filename, contentType, io.LimitReader(up.Body, s.maxBytes), up.Size)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	m, err := s.repo.Create(ctx, &models.Media{
		Filename:         filename,
		OriginalFilename: filepath.Base(up.Filename),
		Mimetype:         contentType,
		Size:             up.Size,
		Path:             url,
		UploadedBy:       uploaderID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("file", m.Filename).
		Str("original", m.OriginalFilename).
		Str("type", contentType).
		Int64("size", m.Size).
		Msg("media uploaded")
	return m, nil
}

// List returns the files uploaded by userID, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Media, error) {
	return s.repo.ListByUploader(ctx, userID)
}

// Detect sniffs the content type of r and checks it against the allowed
// types. A disallowed type is a validation error.
func Detect(r io.Reader) (string, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("detect file type: %w", err)
	}
	for _, t := range allowedTypes {
		if mt.Is(t) {
			return t, nil
		}
	}
	return "", models.Invalid("file", fmt.Sprintf("file type %q is not allowed", mt.String()))
}

// extensionFor is the canonical extension of a content type.
func extensionFor(contentType string) string {
	if mt := mimetype.Lookup(contentType); mt != nil {
		return mt.Extension()
	}
	return ""
}
