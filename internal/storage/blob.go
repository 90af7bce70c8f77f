package storage

import (
	"errors"
	"io"
)

var ErrInvalidKey = errors.New("storage: invalid key")

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
	URL(key string) string // public path the HTTP layer serves the blob under
}
