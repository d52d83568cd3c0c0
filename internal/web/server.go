// Package web contains the HTTP side of the newsletter: the public
// subscription form, the login flow and the admin pages behind it.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/schema"
	"github.com/willemschots/newsletter/internal/auth"
	"github.com/willemschots/newsletter/internal/errorz"
	"github.com/willemschots/newsletter/internal/krypto"
	"github.com/willemschots/newsletter/internal/metrics"
	"github.com/willemschots/newsletter/internal/newsletter"
	"github.com/willemschots/newsletter/internal/sessions"
	"github.com/willemschots/newsletter/internal/subscriber"
	"github.com/willemschots/newsletter/internal/web/cookies"
)

const (
	csrfTokenCookieName = "nl-csrf"
	csrfTokenField      = "csrf_token"
)

// ViewRenderer renders named views with the given data.
type ViewRenderer interface {
	Render(w io.Writer, name string, data any) error
}

// ServerDeps are the dependencies for the server.
type ServerDeps struct {
	Logger            *slog.Logger
	ViewRenderer      ViewRenderer
	AuthService       *auth.Service
	Authority         *sessions.Authority
	SubscriberService *subscriber.Service
	Dispatcher        *newsletter.Dispatcher
	CookieStore       *cookies.Store
	StaticFS          http.FileSystem
	// Metrics is optional.
	Metrics *metrics.HTTPMiddleware
}

// ServerConfig is the configuration for the server.
type ServerConfig struct {
	CSRFKey      krypto.Key
	SecureCookie bool
}

type Server struct {
	deps    *ServerDeps
	mux     *http.ServeMux
	decoder *schema.Decoder
	handler http.Handler
}

func NewServer(deps *ServerDeps, cfg ServerConfig) *Server {
	s := &Server{
		deps:    deps,
		mux:     http.NewServeMux(),
		decoder: schema.NewDecoder(),
	}

	// Homepage with the subscription form.
	s.public("GET /{$}", s.viewHandler("home"))
	{
		h := mapRequest(s, deps.SubscriberService.Subscribe)
		h.response(func(r result[subscriber.Signup, struct{}]) error {
			return r.s.redirectWithFlash(r.w, r.r, "/", "Thanks for subscribing! You'll receive new issues once your subscription is confirmed.")
		})
		h.onFail(s.flashInvalidInput("/", "Please provide your name and a valid email address."))

		s.public("POST /subscriptions", h)
	}

	// Login endpoints.
	s.publicOnly("GET /login", s.viewHandler("login"))
	{
		h := mapBoth(s, func(ctx context.Context, c auth.Credentials) (uuid.UUID, error) {
			defer c.Password.Wipe()
			return deps.AuthService.Validate(ctx, c)
		})
		h.response(func(r result[auth.Credentials, uuid.UUID]) error {
			sess := mustCookieSession(r.r.Context())

			// Any token the client had is replaced, this prevents session fixation.
			previous, _ := sess.Token()
			token, err := r.s.deps.Authority.Establish(r.r.Context(), previous, r.out)
			if err != nil {
				return err
			}
			sess.SetToken(token)

			// Drop the CSRF token as well, a new one is generated on the
			// next GET request. A token obtained before login is worthless after.
			http.SetCookie(r.w, &http.Cookie{
				Name:   csrfTokenCookieName,
				Path:   "/",
				MaxAge: -1,
			})

			err = r.s.deps.CookieStore.Save(r.r, r.w, sess)
			if err != nil {
				return err
			}

			http.Redirect(r.w, r.r, "/admin/dashboard", http.StatusSeeOther)
			return nil
		})
		h.onFail(func(w http.ResponseWriter, r *http.Request, err error) {
			msg := "Authentication failed"
			if !errors.Is(err, auth.ErrInvalidCredentials) && !isInvalidInput(err) {
				s.deps.Logger.Error("failed to validate credentials", "url", r.URL.String(), "error", err)
				msg = "Something went wrong, please try again."
			}

			s.flash(w, r, "/login", msg)
		})

		s.publicOnly("POST /login", h)
	}

	// Admin endpoints.
	{
		h := mapResponse(s, func(ctx context.Context) (auth.User, error) {
			return deps.AuthService.FindUser(ctx, mustUserID(ctx))
		})
		h.response(func(r result[struct{}, auth.User]) error {
			return r.s.writeView(r.w, r.r, "dashboard", r.out)
		})

		s.loggedIn("GET /admin/dashboard", h)
	}

	s.loggedIn("GET /admin/newsletter", s.viewHandler("newsletter"))
	{
		h := mapBoth(s, deps.Dispatcher.Deliver)
		h.response(func(r result[newsletter.Issue, newsletter.Report]) error {
			msg := "The newsletter issue has been published!"
			if failed := r.out.Failed(); failed > 0 {
				msg += fmt.Sprintf(" Delivery failed for %d of %d subscribers.", failed, len(r.out.Outcomes))
			}

			return r.s.redirectWithFlash(r.w, r.r, "/admin/newsletter", msg)
		})
		h.onFail(s.flashInvalidInput("/admin/newsletter", "Please provide a title, text content and HTML content."))

		s.loggedIn("POST /admin/newsletter", h)
	}

	s.loggedIn("GET /admin/password", s.viewHandler("password"))
	{
		h := mapRequest(s, func(ctx context.Context, req auth.PasswordChange) error {
			defer func() {
				req.Current.Wipe()
				req.New.Wipe()
				req.Confirm.Wipe()
			}()

			req.UserID = mustUserID(ctx)
			return deps.AuthService.ChangePassword(ctx, req)
		})
		h.response(func(r result[auth.PasswordChange, struct{}]) error {
			return r.s.redirectWithFlash(r.w, r.r, "/admin/password", "Your password has been changed.")
		})
		h.onFail(func(w http.ResponseWriter, r *http.Request, err error) {
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				s.flash(w, r, "/admin/password", "The current password is incorrect.")
			case errors.Is(err, auth.ErrPasswordMismatch):
				s.flash(w, r, "/admin/password", "You entered two different new passwords, the field values must match.")
			case errors.Is(err, auth.ErrInvalidPassword), isInvalidInput(err):
				s.flash(w, r, "/admin/password", "The new password should be between 8 and 512 bytes long.")
			default:
				s.handleError(w, r, err)
			}
		})

		s.loggedIn("POST /admin/password", h)
	}

	{
		h := mapRequest(s, deps.SubscriberService.Confirm)
		h.response(func(r result[subscriber.Confirmation, struct{}]) error {
			return r.s.redirectWithFlash(r.w, r.r, "/admin/dashboard", "The subscriber has been confirmed.")
		})
		h.onFail(func(w http.ResponseWriter, r *http.Request, err error) {
			switch {
			case errors.Is(err, errorz.ErrNotFound):
				s.flash(w, r, "/admin/dashboard", "There is no subscriber with that email address.")
			case isInvalidInput(err):
				s.flash(w, r, "/admin/dashboard", "Please provide a valid email address.")
			default:
				s.handleError(w, r, err)
			}
		})

		s.loggedIn("POST /admin/subscribers/confirm", h)
	}

	s.loggedIn("POST /admin/logout", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := mustCookieSession(r.Context())

		token, ok := sess.Token()
		if ok {
			err := s.deps.Authority.Revoke(r.Context(), token)
			if err != nil {
				s.handleError(w, r, err)
				return
			}
		}

		sess.DeleteToken()
		s.flash(w, r, "/login", "You have successfully logged out.")
	}))

	// Wrap the mux with global middlewares.
	csrfMW := csrf.Protect(
		cfg.CSRFKey.SecretValue(),
		csrf.CookieName(csrfTokenCookieName),
		csrf.FieldName(csrfTokenField),
		csrf.Path("/"),
		csrf.Secure(cfg.SecureCookie),
		csrf.ErrorHandler(http.HandlerFunc(s.csrfFailure)),
	)

	middlewares := []func(http.Handler) http.Handler{
		csrfMW,
		s.session,
	}
	var app http.Handler = s.mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		app = middlewares[i](app)
	}

	// Health checks and static files don't need sessions or CSRF protection.
	root := http.NewServeMux()
	root.HandleFunc("GET /health_check", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	root.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(deps.StaticFS)))
	root.Handle("/", app)

	s.handler = root
	if deps.Metrics != nil {
		s.handler = deps.Metrics.Wrap(root)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// flash redirects with a flash message and handles a failure to do so.
func (s *Server) flash(w http.ResponseWriter, r *http.Request, target, msg string) {
	err := s.redirectWithFlash(w, r, target, msg)
	if err != nil {
		s.handleError(w, r, err)
	}
}

// flashInvalidInput returns a fail handler that turns invalid input into a
// flash message. Other errors go to the error handler.
func (s *Server) flashInvalidInput(target, msg string) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		var invalid errorz.InvalidInput
		if !errors.As(err, &invalid) {
			s.handleError(w, r, err)
			return
		}

		s.deps.Logger.Debug("rejected form input", "url", r.URL.String(), "fields", invalid.Keys())
		s.flash(w, r, target, msg)
	}
}

func (s *Server) csrfFailure(w http.ResponseWriter, r *http.Request) {
	s.deps.Logger.Warn("csrf check failed", "url", r.URL.String(), "reason", csrf.FailureReason(r))
	http.Error(w, "forbidden", http.StatusForbidden)
}

func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errorz.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if isInvalidInput(err) {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	s.deps.Logger.Error("internal server error", "url", r.URL.String(), "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
