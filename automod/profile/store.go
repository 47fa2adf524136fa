package profile

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Concurrent registry of profiles. Safe for use from the event path and sweeps at the same time.
type Store struct {
	profiles *xsync.MapOf[Key, *Profile]
}

func NewStore() *Store {
	return &Store{
		profiles: xsync.NewMapOf[Key, *Profile](),
	}
}

// Returns the profile for key, creating it if this is the first time the member is seen.
func (s *Store) GetOrCreate(key Key) *Profile {
	p, _ := s.profiles.LoadOrCompute(key, func() *Profile {
		return New(key)
	})
	return p
}

// Returns nil if no profile exists.
func (s *Store) Get(key Key) *Profile {
	p, ok := s.profiles.Load(key)
	if !ok {
		return nil
	}
	return p
}

// Calls f for every profile belonging to tenant. f is called without the profile lock held.
func (s *Store) RangeTenant(tenant string, f func(p *Profile) bool) {
	s.profiles.Range(func(k Key, p *Profile) bool {
		if k.Tenant != tenant {
			return true
		}
		return f(p)
	})
}

func (s *Store) Len() int {
	return s.profiles.Size()
}
