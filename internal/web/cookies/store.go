package cookies

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/willemschots/newsletter/internal/krypto"
)

const CookieName = "nl-session"

// Options configure the session cookie.
type Options struct {
	Secure bool
	MaxAge time.Duration
}

type Store struct {
	store sessions.Store
}

// NewStore creates a cookie store. Cookies are signed with the first of
// each pair of keys and encrypted with the second. Keys are rotated by
// prepending a new pair.
func NewStore(keys []krypto.Key, opts Options) *Store {
	pairs := make([][]byte, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k.SecretValue())
	}

	store := sessions.NewCookieStore(pairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.MaxAge.Seconds()),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &Store{store: store}
}

// Get returns the session of the request, a cookie that can't be decoded
// results in a new, empty session.
func (s *Store) Get(r *http.Request) (*Session, error) {
	base, err := s.store.Get(r, CookieName)
	if err != nil && base == nil {
		return nil, err
	}

	return &Session{base: base}, nil
}

func (s *Store) Save(r *http.Request, w http.ResponseWriter, sess *Session) error {
	return s.store.Save(r, w, sess.base)
}
