package inspection

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// SessionStore keeps in-progress wizards in memory. Entries expire after the
// configured TTL of inactivity; partial wizards never outlive the process.
type SessionStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionStore{
		cache: cache.New(ttl, 10*time.Minute),
		ttl:   ttl,
	}
}

func (s *SessionStore) Save(w *Wizard) {
	s.cache.Set(w.ID(), w, cache.DefaultExpiration)
}

// Get returns the wizard and refreshes its expiry.
func (s *SessionStore) Get(id string) (*Wizard, bool) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	w := x.(*Wizard)
	s.cache.Set(id, w, cache.DefaultExpiration)
	return w, true
}

func (s *SessionStore) Delete(id string) {
	s.cache.Delete(id)
}

// ForOwner returns the ids of all wizards started by ownerID.
func (s *SessionStore) ForOwner(ownerID string) []string {
	var ids []string
	for id, item := range s.cache.Items() {
		if w, ok := item.Object.(*Wizard); ok && w.OwnerID() == ownerID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *SessionStore) Count() int {
	return s.cache.ItemCount()
}
