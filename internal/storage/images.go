// Package storage keeps uploaded car images on a filesystem.
package storage

import (
    "errors"
    "fmt"
    "io"
    "net/http"
    "os"
    "path"
    "path/filepath"
    "regexp"
    "strings"

    "github.com/google/uuid"
    "github.com/spf13/afero"
)

var (
    ErrTooLarge        = errors.New("image exceeds the upload size limit")
    ErrUnsupportedType = errors.New("only jpeg, jpg, png and webp images are allowed")
    ErrInvalidName     = errors.New("invalid image name")
    ErrImageNotFound   = errors.New("image not found")
)

// allowed maps accepted extensions to the content types sniffed from
// the first bytes of the upload.
var allowed = map[string][]string{
    ".jpg":  {"image/jpeg"},
    ".jpeg": {"image/jpeg"},
    ".png":  {"image/png"},
    ".webp": {"image/webp"},
}

var storedName = regexp.MustCompile(`^car-[0-9a-f-]{36}\.(jpe?g|png|webp)$`)

// ImageStore saves images under a directory of an afero filesystem.
// Stored names are generated, so callers never control the path.
type ImageStore struct {
    fs       afero.Fs
    dir      string
    maxBytes int64
}

// NewImageStore returns a store rooted at dir on fs, creating the
// directory if needed.
func NewImageStore(fs afero.Fs, dir string, maxBytes int64) (*ImageStore, error) {
    if err := fs.MkdirAll(dir, 0o755); err != nil {
        return nil, fmt.Errorf("create upload dir: %w", err)
    }
    return &ImageStore{fs: fs, dir: dir, maxBytes: maxBytes}, nil
}

// MaxBytes is the largest accepted upload.
func (s *ImageStore) MaxBytes() int64 { return s.maxBytes }

// Save validates and stores the upload read from r.  filename is the
// client supplied name and only contributes its extension.  It returns
// the generated name.
func (s *ImageStore) Save(filename string, r io.Reader) (string, error) {
    ext := strings.ToLower(filepath.Ext(filename))
    types, ok := allowed[ext]
    if !ok {
        return "", ErrUnsupportedType
    }

    // one extra byte tells us the limit was exceeded
    data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
    if err != nil {
        return "", fmt.Errorf("read upload: %w", err)
    }
    if int64(len(data)) > s.maxBytes {
        return "", ErrTooLarge
    }
    if !contains(types, http.DetectContentType(data)) {
        return "", ErrUnsupportedType
    }

    name := "car-" + uuid.NewString() + ext
    if err := afero.WriteFile(s.fs, path.Join(s.dir, name), data, 0o644); err != nil {
        return "", fmt.Errorf("write image: %w", err)
    }
    return name, nil
}

// Open returns the stored image called name.
func (s *ImageStore) Open(name string) (afero.File, error) {
    if !storedName.MatchString(name) {
        return nil, ErrInvalidName
    }
    f, err := s.fs.Open(path.Join(s.dir, name))
    if errors.Is(err, os.ErrNotExist) {
        return nil, ErrImageNotFound
    }
    return f, err
}

// Delete removes name.  Missing files are not an error.
func (s *ImageStore) Delete(name string) error {
    if !storedName.MatchString(name) {
        return ErrInvalidName
    }
    err := s.fs.Remove(path.Join(s.dir, name))
    if err != nil && !errors.Is(err, os.ErrNotExist) {
        return err
    }
    return nil
}

// ContentType returns the MIME type served for a stored name.
func ContentType(name string) string {
    ext := strings.ToLower(filepath.Ext(name))
    if types, ok := allowed[ext]; ok {
        return types[0]
    }
    return "application/octet-stream"
}

func contains(list []string, v string) bool {
    for _, s := range list {
        if s == v {
            return true
        }
    }
    return false
}
