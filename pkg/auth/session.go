package auth

import (
	"crypto/sha256"
	"errors"
	"net/http"

	"github.com/gorilla/sessions"
)

// SessionName is the name of the browser session cookie.
const SessionName = "notebook-session"

const sessionKeyToken = "access_token"

// SessionManager keeps the access token in a signed cookie for browser clients.
type SessionManager struct {
	store *sessions.CookieStore
}

// NewSessionManager creates a cookie-backed session store.
//
// The secret is SHA-256 hashed to derive a 32-byte signing key; it must be
// stable across restarts and replicas. maxAge should match the access token TTL.
func NewSessionManager(secret string, cookie CookieSettings, maxAge int) *SessionManager {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   cookie.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// Token returns the access token stored in the session cookie, if any.
func (m *SessionManager) Token(r *http.Request) (string, bool) {
	if _, err := r.Cookie(SessionName); err != nil {
		return "", false
	}
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return "", false
	}
	token, ok := session.Values[sessionKeyToken].(string)
	return token, ok && token != ""
}

// Save stores the access token in the session cookie.
func (m *SessionManager) Save(w http.ResponseWriter, r *http.Request, token string) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil && session == nil {
		return err
	}
	session.Values[sessionKeyToken] = token
	return session.Save(r, w)
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	session, err := m.store.Get(r, SessionName)
	if session == nil {
		if err == nil {
			err = errors.New("no session")
		}
		return err
	}
	delete(session.Values, sessionKeyToken)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
