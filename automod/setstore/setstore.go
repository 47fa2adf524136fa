// Automod component for named sets of strings, such as the list of suspect tokens.
package setstore

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"
)

type SetStore interface {
	InSet(ctx context.Context, name, val string) (bool, error)
	// Returns all members of the set, sorted. A missing set is empty.
	Members(ctx context.Context, name string) ([]string, error)
}

type MemSetStore struct {
	lk   sync.RWMutex
	Sets map[string]map[string]bool
}

func NewMemSetStore() *MemSetStore {
	return &MemSetStore{
		Sets: make(map[string]map[string]bool),
	}
}

func (s *MemSetStore) InSet(ctx context.Context, name, val string) (bool, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	set, ok := s.Sets[name]
	if !ok {
		// NOTE: currently returns false when entire set isn't found
		return false, nil
	}
	return set[val], nil
}

func (s *MemSetStore) Members(ctx context.Context, name string) ([]string, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	out := make([]string, 0, len(s.Sets[name]))
	for v := range s.Sets[name] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// Replaces the named set.
func (s *MemSetStore) Put(name string, vals []string) {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	s.lk.Lock()
	defer s.lk.Unlock()
	s.Sets[name] = m
}

// Loads sets from a JSON object of the form {"name": ["val", ...]}. Sets in the file replace any existing set of the same name.
func (s *MemSetStore) LoadFromFileJSON(p string) error {

	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	var sets map[string][]string
	if err := json.Unmarshal(raw, &sets); err != nil {
		return err
	}

	for name, l := range sets {
		s.Put(name, l)
	}
	return nil
}
