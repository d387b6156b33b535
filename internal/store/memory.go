package store

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var errMemoryDown = errors.New("memory store marked unavailable")

// Memory is a mutex-guarded in-process Store. It backs tests, serves as the
// dependency-free fallback backend, and provides the state for the file store.
type Memory struct {
	mu     sync.RWMutex
	scores map[string]map[string]int64
	logs   map[string][][]byte
	sets   map[string]map[string]struct{}
	docs   map[string][]byte
	down   bool
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		scores: make(map[string]map[string]int64),
		logs:   make(map[string][][]byte),
		sets:   make(map[string]map[string]struct{}),
		docs:   make(map[string][]byte),
	}
}

// SetUnavailable toggles simulated backend failure. Every operation errors
// while the store is down. Test hook only.
func (s *Memory) SetUnavailable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func (s *Memory) IncrScore(_ context.Context, key, member string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return 0, errMemoryDown
	}
	if s.scores[key] == nil {
		s.scores[key] = make(map[string]int64)
	}
	s.scores[key][member] += delta
	return s.scores[key][member], nil
}

func (s *Memory) GetScore(_ context.Context, key, member string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down {
		return 0, false, errMemoryDown
	}
	score, ok := s.scores[key][member]
	return score, ok, nil
}

func (s *Memory) TopN(_ context.Context, key string, n int64) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down {
		return nil, errMemoryDown
	}

	entries := make([]Entry, 0, len(s.scores[key]))
	for member, score := range s.scores[key] {
		entries = append(entries, Entry{Member: member, Score: score})
	}
	// Equal scores order by member descending, the ZREVRANGE rule.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Member > entries[j].Member
	})

	if n >= 0 && int64(len(entries)) > n {
		entries = entries[:n]
	}
	return entries, nil
}

func (s *Memory) PushEntry(_ context.Context, key string, value []byte, max int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errMemoryDown
	}

	entry := make([]byte, len(value))
	copy(entry, value)

	log := append([][]byte{entry}, s.logs[key]...)
	if max >= 0 && int64(len(log)) > max {
		log = log[:max]
	}
	s.logs[key] = log
	return nil
}

func (s *Memory) RangeEntries(_ context.Context, key string, n int64) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down {
		return nil, errMemoryDown
	}

	log := s.logs[key]
	if n >= 0 && int64(len(log)) > n {
		log = log[:n]
	}
	entries := make([][]byte, len(log))
	for i, value := range log {
		entry := make([]byte, len(value))
		copy(entry, value)
		entries[i] = entry
	}
	return entries, nil
}

func (s *Memory) AddToSet(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errMemoryDown
	}
	if s.sets[key] == nil {
		s.sets[key] = make(map[string]struct{})
	}
	s.sets[key][member] = struct{}{}
	return nil
}

func (s *Memory) IsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down {
		return false, errMemoryDown
	}
	_, ok := s.sets[key][member]
	return ok, nil
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down {
		return nil, false, errMemoryDown
	}
	value, ok := s.docs[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (s *Memory) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return errMemoryDown
	}
	entry := make([]byte, len(value))
	copy(entry, value)
	s.docs[key] = entry
	return nil
}

func (s *Memory) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.down {
		return errMemoryDown
	}
	return nil
}

func (s *Memory) Close() error {
	return nil
}
