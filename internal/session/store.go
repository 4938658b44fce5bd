package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// CookieName is the cookie carrying the browser id.
const CookieName = "docview_session"

// Store is an in-memory session registry with sliding TTL eviction. A
// browser is identified by its cookie and holds one Session per document,
// so views of different documents never reset each other.
type Store struct {
	sessions *cache.Cache
	browsers *cache.Cache
	ttl      time.Duration
	secure   bool
}

// NewStore returns a Store whose sessions expire after ttl of inactivity.
func NewStore(ttl time.Duration, secureCookie bool) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{
		sessions: cache.New(ttl, ttl/2),
		browsers: cache.New(ttl, ttl/2),
		ttl:      ttl,
		secure:   secureCookie,
	}
}

func sessionKey(browserID, file string) string {
	return browserID + "\x00" + file
}

// Get returns the session of browser id for file, refreshing its TTL.
func (s *Store) Get(id, file string) *Session {
	key := sessionKey(id, file)
	v, ok := s.sessions.Get(key)
	if !ok {
		return nil
	}
	sess := v.(*Session)
	s.sessions.Set(key, sess, cache.DefaultExpiration)
	return sess
}

// Create registers a fresh empty session of browser id for file.
func (s *Store) Create(id, file string) *Session {
	sess := New(id)
	s.sessions.Set(sessionKey(id, file), sess, cache.DefaultExpiration)
	return sess
}

// Len returns the number of live sessions across all browsers.
func (s *Store) Len() int {
	return s.sessions.ItemCount()
}

// For returns the caller's session for file. A request without a valid
// browser cookie gets a new id and the cookie is set on w.
func (s *Store) For(w http.ResponseWriter, r *http.Request, file string) *Session {
	id := browserID(r)
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(s.ttl.Seconds()),
			HttpOnly: true,
			Secure:   s.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	s.browsers.Set(id, struct{}{}, cache.DefaultExpiration)

	if sess := s.Get(id, file); sess != nil {
		return sess
	}
	return s.Create(id, file)
}

// Known reports whether r carries the cookie of a browser that opened a
// viewer page within the TTL.
func (s *Store) Known(r *http.Request) bool {
	id := browserID(r)
	if id == "" {
		return false
	}
	_, ok := s.browsers.Get(id)
	return ok
}

// Lookup returns the caller's session for file without creating one.
func (s *Store) Lookup(r *http.Request, file string) *Session {
	id := browserID(r)
	if id == "" {
		return nil
	}
	return s.Get(id, file)
}

// browserID returns the id from the session cookie, or "" when the cookie
// is missing or not an id this store issued.
func browserID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}
