package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// ErrNotFound is returned for unknown or expired tokens.
var ErrNotFound = errors.New("upload session not found")

// Upload is a stored occurrence file.
type Upload struct {
	Filename   string
	Data       []byte
	UploadedAt time.Time
}

// Store keeps raw uploads in memory so every interaction can re-run the pipeline on
// the uploaded bytes without asking for the file again.
type Store struct {
	cache *gocache.Cache
}

// NewStore creates a store whose entries expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{cache: gocache.New(ttl, ttl)}
}

// Put saves an upload and returns its token.
func (s *Store) Put(filename string, data []byte) string {
	token := uuid.NewString()
	s.cache.SetDefault(token, Upload{
		Filename:   filename,
		Data:       data,
		UploadedAt: time.Now().UTC(),
	})
	return token
}

// Get returns the upload for token and extends its lifetime.
func (s *Store) Get(token string) (Upload, error) {
	if _, err := uuid.Parse(token); err != nil {
		return Upload{}, ErrNotFound
	}
	v, found := s.cache.Get(token)
	if !found {
		return Upload{}, ErrNotFound
	}
	up := v.(Upload)
	s.cache.SetDefault(token, up)
	return up, nil
}
