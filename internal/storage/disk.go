// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Disk stores files in a local directory and serves them under urlPrefix.
type Disk struct {
	dir       string
	urlPrefix string
}

// NewDisk creates the upload directory if needed.
func NewDisk(dir, urlPrefix string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

// Save writes body to dir/key. The file is written under a temporary name
// and renamed into place so readers never see a partial file.
func (d *Disk) Save(ctx context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("save %q: %w", key, ErrInvalidKey)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(d.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, key)); err != nil {
		return "", fmt.Errorf("move %s into place: %w", key, err)
	}

	return d.urlPrefix + "/" + key, nil
}

// Handler serves stored files by name. Only the last path element of the
// request is used, so nothing outside dir is reachable. Mount it with
// http.StripPrefix or under a wildcard route.
func (d *Disk) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Base(r.URL.Path)
		if !validKey(name) {
			http.NotFound(w, r)
			return
		}

		f, err := os.Open(filepath.Join(d.dir, name))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		// Uploaded SVG or HTML-looking files must not run script in our origin.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; sandbox")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		http.ServeContent(w, r, name, info.ModTime(), f)
	})
}
