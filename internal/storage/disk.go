package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskStore writes images into Dir and hands out references of the form
// URLPrefix/<file>, which the router serves as static files.
type DiskStore struct {
	Dir       string
	URLPrefix string
	Now       func() time.Time
}

func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{Dir: dir, URLPrefix: "/uploads", Now: time.Now}
}

// Save stores r as Dir/<unixmillis>-<name>.
func (s *DiskStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir uploads: %w", err)
	}
	base := fmt.Sprintf("%d-%s", s.Now().UnixMilli(), SanitizeName(filename))

	name := base
	var f *os.File
	for i := 1; ; i++ {
		var err error
		f, err = os.OpenFile(filepath.Join(s.Dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) || i > 100 {
			return "", fmt.Errorf("create upload: %w", err)
		}
		name = fmt.Sprintf("%d-%s", i, base)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	return s.URLPrefix + "/" + name, nil
}

// Release removes the file behind ref.  A file that is already gone is not
// an error.
func (s *DiskStore) Release(ctx context.Context, ref string) error {
	name, ok := strings.CutPrefix(ref, s.URLPrefix+"/")
	if !ok || name == "" || name != filepath.Base(name) || name == ".." {
		return ErrForeignRef
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}
