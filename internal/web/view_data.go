package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/willemschots/newsletter/internal"
)

type viewData struct {
	Version    string
	CSRFField  template.HTML
	IsLoggedIn bool
	Flashes    []string
	Data       any
}

// writeView renders the named view. Flashes are consumed and the session is
// saved before anything is written, so the cookie header can still be set.
func (s *Server) writeView(w http.ResponseWriter, r *http.Request, name string, data any) error {
	sess := mustCookieSession(r.Context())
	_, loggedIn := UserIDFromContext(r.Context())

	vd := viewData{
		Version:    internal.CurrentBuild.ShortRevision(),
		CSRFField:  csrf.TemplateField(r),
		IsLoggedIn: loggedIn,
		Flashes:    sess.ConsumeFlashes(),
		Data:       data,
	}

	err := s.deps.CookieStore.Save(r, w, sess)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = s.deps.ViewRenderer.Render(&buf, name, vd)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = buf.WriteTo(w)
	return err
}

func (s *Server) viewHandler(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := s.writeView(w, r, name, nil)
		if err != nil {
			s.handleError(w, r, err)
			return
		}
	})
}
