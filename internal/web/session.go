package web

import (
	"context"
	"net/http"

	"github.com/willemschots/newsletter/internal/web/cookies"
)

const cookieSessionKey ctxKey = "_session"

func ctxWithCookieSession(ctx context.Context, sess *cookies.Session) context.Context {
	return context.WithValue(ctx, cookieSessionKey, sess)
}

// mustCookieSession returns the session loaded by the session middleware.
func mustCookieSession(ctx context.Context) *cookies.Session {
	sess, ok := ctx.Value(cookieSessionKey).(*cookies.Session)
	if !ok {
		panic("web: no cookie session in context")
	}

	return sess
}

// redirectWithFlash stores msg in the session and redirects to target.
func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, msg string) error {
	sess := mustCookieSession(r.Context())
	sess.AddFlash(msg)

	err := s.deps.CookieStore.Save(r, w, sess)
	if err != nil {
		return err
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
	return nil
}
