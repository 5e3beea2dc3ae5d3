// Package storage persists uploaded spot images.  A store returns an opaque
// reference from Save and accepts exactly that reference in Release.
package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ImageStore is implemented by DiskStore and S3Store.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Release(ctx context.Context, ref string) error
}

// ErrForeignRef is returned by Release for references the store did not
// produce.
var ErrForeignRef = errors.New("storage: reference not owned by this store")

// SanitizeName reduces an uploaded file name to a safe base name made of
// letters, digits, dot, dash and underscore.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "image"
	}
	return out
}
