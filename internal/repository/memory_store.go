package repository

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore keeps everything in process. Used by the local dev server and
// handler tests; state is lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	now    func() time.Time
	values map[string]memEntry
	hashes map[string]map[string]string
	zsets  map[string]map[string]float64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:    time.Now,
		values: make(map[string]memEntry),
		hashes: make(map[string]map[string]string),
		zsets:  make(map[string]map[string]float64),
	}
}

func (s *MemoryStore) live(key string) (memEntry, bool) {
	e, ok := s.values[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.values, key)
		return memEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	return e.value, ok, nil
}

func (s *MemoryStore) SetEX(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.values[key] = e
	return nil
}

// Incr keeps any existing expiry, matching Redis INCR.
func (s *MemoryStore) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, _ := s.live(key)
	var n int64
	if e.value != "" {
		v, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, errors.New("repository: Incr: value is not an integer")
		}
		n = v
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	s.values[key] = e
	return n, nil
}

func (s *MemoryStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return errors.New("repository: HSet: fields are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (s *MemoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	if member == "" {
		return errors.New("repository: ZAdd: member is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zsets[key]
	if !ok {
		z = make(map[string]float64)
		s.zsets[key] = z
	}
	z[member] = score
	return nil
}

// Hash returns a copy of the hash stored under key.
func (s *MemoryStore) Hash(key string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out
}

// Score reports the score of member in the sorted set under key.
func (s *MemoryStore) Score(key, member string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.zsets[key][member]
	return v, ok
}
