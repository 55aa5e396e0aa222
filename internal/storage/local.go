// Package storage keeps uploaded files on local disk and hands out stable URLs.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedType is returned for extensions outside the allow list.
var ErrUnsupportedType = errors.New("unsupported file type")

// ErrTooLarge is returned when the upload exceeds the size limit.
var ErrTooLarge = errors.New("file too large")

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".pdf": true,
}

// Local stores files under Dir and serves them below BaseURL.
type Local struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

// NewLocal creates the upload directory if needed.
func NewLocal(dir, baseURL string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), MaxBytes: maxBytes}, nil
}

// Save writes r under a random name keeping filename's extension and returns its URL.
func (l *Local) Save(r io.Reader, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	name := uuid.New().String() + ext
	path := filepath.Join(l.Dir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	src := r
	if l.MaxBytes > 0 {
		src = io.LimitReader(r, l.MaxBytes+1)
	}
	n, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && l.MaxBytes > 0 && n > l.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return l.BaseURL + "/" + name, nil
}
