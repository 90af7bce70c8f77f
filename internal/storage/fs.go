package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FSStore keeps blobs as files under base and exposes them below urlPrefix.
type FSStore struct {
	base      string
	urlPrefix string
}

func NewFSStore(base, urlPrefix string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// resolve maps key to a path inside base, refusing keys that escape it.
func (s *FSStore) resolve(key string) (string, string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" || clean == "." || clean != strings.TrimPrefix(key, "/") {
		return "", "", ErrInvalidKey
	}
	return clean, filepath.Join(s.base, filepath.FromSlash(clean)), nil
}

func (s *FSStore) Put(key string, r io.Reader) (string, error) {
	clean, dst, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return clean, nil
}

func (s *FSStore) Get(key string) (io.ReadCloser, error) {
	_, p, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (s *FSStore) Delete(key string) error {
	_, p, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FSStore) URL(key string) string {
	return s.urlPrefix + "/" + strings.TrimPrefix(key, "/")
}

// KeyFromURL reverses URL. ok is false for URLs outside this store.
func (s *FSStore) KeyFromURL(u string) (string, bool) {
	if !strings.HasPrefix(u, s.urlPrefix+"/") {
		return "", false
	}
	return strings.TrimPrefix(u, s.urlPrefix+"/"), true
}
