package logic

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store keeps sessions by id, the least recently used ones are evicted once
// `size` is exceeded and idle ones expire after `ttl`.
type Store struct {
	cache *expirable.LRU[string, *Session]
}

func NewStore(size int, ttl time.Duration) Store {
	return Store{
		cache: expirable.NewLRU[string, *Session](size, nil, ttl),
	}
}

// Create registers a new empty session under a random id.
func (s Store) Create() (string, *Session) {
	id := uuid.NewString()
	session := NewSession()
	s.cache.Add(id, session)
	return id, session
}

// Get returns the session and refreshes its position in the cache.
func (s Store) Get(id string) (*Session, bool) {
	session, ok := s.cache.Get(id)
	if ok {
		// expirable only refreshes the ttl on Add
		s.cache.Add(id, session)
	}
	return session, ok
}

func (s Store) Delete(id string) bool {
	return s.cache.Remove(id)
}

func (s Store) Len() int {
	return s.cache.Len()
}
