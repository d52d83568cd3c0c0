package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/willemschots/newsletter/internal/sessions"
)

func (s *Server) public(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, handler)
}

// publicOnly routes are only for anonymous users, logged in users are sent
// to their dashboard.
func (s *Server) publicOnly(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := UserIDFromContext(r.Context())
		if ok {
			http.Redirect(w, r, "/admin/dashboard", http.StatusSeeOther)
			return
		}

		handler.ServeHTTP(w, r)
	}))
}

// loggedIn routes require a valid session. Anonymous users are sent to the login form.
func (s *Server) loggedIn(pattern string, handler http.Handler) {
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		handler.ServeHTTP(w, r)
	}))
}

// session loads the cookie session and resolves its token to a user.
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.deps.CookieStore.Get(r)
		if err != nil {
			s.handleError(w, r, err)
			return
		}

		ctx := ctxWithCookieSession(r.Context(), sess)

		token, ok := sess.Token()
		if ok {
			userID, err := s.deps.Authority.Authorize(ctx, token)
			switch {
			case err == nil:
				ctx = ContextWithUserID(ctx, userID)
			case errors.Is(err, sessions.ErrNoSession):
				// expired or revoked, forget the token on the next save.
				sess.DeleteToken()
			default:
				s.handleError(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type ctxKey string

const userIDKey ctxKey = "newsletterUserID"

func ContextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, false
	}

	return userID, true
}

// mustUserID is for handlers behind the loggedIn gate. A missing user is a bug
// in the routing, not a client error.
func mustUserID(ctx context.Context) uuid.UUID {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		panic("web: no user id in context of a logged in route")
	}
	return userID
}
