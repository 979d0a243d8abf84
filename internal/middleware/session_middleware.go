package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/vatbridge/vatbridge/internal/models"
	"github.com/vatbridge/vatbridge/internal/session"
)

// CookieName is the browser session cookie. It carries only an opaque id;
// the HMRC tokens never leave the server.
const CookieName = "vatbridge_session"

type contextKey string

const sessionContextKey contextKey = "session"

type SessionMiddleware struct {
	store  session.Store
	logger *logrus.Logger
}

func NewSessionMiddleware(store session.Store, logger *logrus.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		store:  store,
		logger: logger,
	}
}

// LoadSession attaches the session to the request context when the cookie
// resolves to a live record, and passes through untouched otherwise.
func (m *SessionMiddleware) LoadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := m.lookup(r); sess != nil {
			r = r.WithContext(context.WithValue(r.Context(), sessionContextKey, sess))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession redirects to the login page when no live session exists.
func (m *SessionMiddleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.lookup(r)
		if sess == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionMiddleware) lookup(r *http.Request) *models.Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sess, err := m.store.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			m.logger.WithError(err).Error("Session lookup failed")
		}
		return nil
	}

	return sess
}

// SessionFrom extracts the session placed in the context by the middleware.
func SessionFrom(ctx context.Context) (*models.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*models.Session)
	return sess, ok
}
