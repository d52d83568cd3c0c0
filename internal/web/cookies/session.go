// Package cookies keeps per-browser state in a signed cookie: the session
// token and flash messages. The identity behind a token lives server side.
package cookies

import (
	"github.com/gorilla/sessions"
	"github.com/willemschots/newsletter/internal/krypto"
)

const tokenKey = "token"

type Session struct {
	base *sessions.Session
}

// Token returns the session token stored in the cookie, if any.
func (s *Session) Token() (krypto.Token, bool) {
	raw, ok := s.base.Values[tokenKey].(string)
	if !ok {
		return krypto.Token{}, false
	}

	token, err := krypto.ParseToken(raw)
	if err != nil {
		return krypto.Token{}, false
	}

	return token, true
}

func (s *Session) SetToken(token krypto.Token) {
	s.base.Values[tokenKey] = token.String()
}

func (s *Session) DeleteToken() {
	delete(s.base.Values, tokenKey)
}

func (s *Session) AddFlash(msg string) {
	s.base.AddFlash(msg)
}

// ConsumeFlashes returns the flash messages and removes them from the
// session. The session needs to be saved for the removal to stick.
func (s *Session) ConsumeFlashes() []string {
	var out []string
	for _, f := range s.base.Flashes() {
		if msg, ok := f.(string); ok {
			out = append(out, msg)
		}
	}
	return out
}
