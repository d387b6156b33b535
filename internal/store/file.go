package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// File is a Store that keeps all state in memory and mirrors it to a JSON
// snapshot on disk after every write. Lightweight persistence for deployments
// without a database.
type File struct {
	mem    *Memory
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// fileSnapshot is the on-disk layout.
type fileSnapshot struct {
	Scores map[string]map[string]int64  `json:"scores"`
	Logs   map[string][]json.RawMessage `json:"logs"`
	Sets   map[string][]string          `json:"sets"`
	Docs   map[string]json.RawMessage   `json:"docs"`
}

// NewFile creates a file-backed store, loading any existing snapshot.
func NewFile(path string, logger *slog.Logger) (*File, error) {
	s := &File{
		mem:    NewMemory(),
		path:   path,
		logger: logger,
	}
	if err := s.load(); err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return s, nil
}

func (s *File) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing snapshot: %w", err)
	}

	mem := s.mem
	mem.mu.Lock()
	defer mem.mu.Unlock()
	for key, members := range snap.Scores {
		mem.scores[key] = make(map[string]int64, len(members))
		for member, score := range members {
			mem.scores[key][member] = score
		}
	}
	for key, entries := range snap.Logs {
		log := make([][]byte, len(entries))
		for i, entry := range entries {
			log[i] = []byte(entry)
		}
		mem.logs[key] = log
	}
	for key, members := range snap.Sets {
		set := make(map[string]struct{}, len(members))
		for _, member := range members {
			set[member] = struct{}{}
		}
		mem.sets[key] = set
	}
	for key, value := range snap.Docs {
		mem.docs[key] = []byte(value)
	}
	return nil
}

// save writes the full snapshot atomically via a temp file rename.
func (s *File) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem := s.mem
	mem.mu.RLock()
	snap := fileSnapshot{
		Scores: make(map[string]map[string]int64, len(mem.scores)),
		Logs:   make(map[string][]json.RawMessage, len(mem.logs)),
		Sets:   make(map[string][]string, len(mem.sets)),
		Docs:   make(map[string]json.RawMessage, len(mem.docs)),
	}
	for key, members := range mem.scores {
		out := make(map[string]int64, len(members))
		for member, score := range members {
			out[member] = score
		}
		snap.Scores[key] = out
	}
	for key, log := range mem.logs {
		entries := make([]json.RawMessage, len(log))
		for i, entry := range log {
			entries[i] = json.RawMessage(entry)
		}
		snap.Logs[key] = entries
	}
	for key, set := range mem.sets {
		members := make([]string, 0, len(set))
		for member := range set {
			members = append(members, member)
		}
		snap.Sets[key] = members
	}
	for key, value := range mem.docs {
		snap.Docs[key] = json.RawMessage(value)
	}
	mem.mu.RUnlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

func (s *File) IncrScore(ctx context.Context, key, member string, delta int64) (int64, error) {
	score, err := s.mem.IncrScore(ctx, key, member, delta)
	if err != nil {
		return 0, err
	}
	return score, s.save()
}

func (s *File) GetScore(ctx context.Context, key, member string) (int64, bool, error) {
	return s.mem.GetScore(ctx, key, member)
}

func (s *File) TopN(ctx context.Context, key string, n int64) ([]Entry, error) {
	return s.mem.TopN(ctx, key, n)
}

func (s *File) PushEntry(ctx context.Context, key string, value []byte, max int64) error {
	if err := s.mem.PushEntry(ctx, key, value, max); err != nil {
		return err
	}
	return s.save()
}

func (s *File) RangeEntries(ctx context.Context, key string, n int64) ([][]byte, error) {
	return s.mem.RangeEntries(ctx, key, n)
}

func (s *File) AddToSet(ctx context.Context, key, member string) error {
	if err := s.mem.AddToSet(ctx, key, member); err != nil {
		return err
	}
	return s.save()
}

func (s *File) IsMember(ctx context.Context, key, member string) (bool, error) {
	return s.mem.IsMember(ctx, key, member)
}

func (s *File) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.mem.Get(ctx, key)
}

func (s *File) Set(ctx context.Context, key string, value []byte) error {
	if err := s.mem.Set(ctx, key, value); err != nil {
		return err
	}
	return s.save()
}

func (s *File) Ping(ctx context.Context) error {
	return s.mem.Ping(ctx)
}

func (s *File) Close() error {
	return s.save()
}
