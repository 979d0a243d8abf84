package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vatbridge/vatbridge/internal/hmrc"
	"github.com/vatbridge/vatbridge/internal/middleware"
	"github.com/vatbridge/vatbridge/internal/models"
	"github.com/vatbridge/vatbridge/internal/service"
	"github.com/vatbridge/vatbridge/internal/session"
	"github.com/vatbridge/vatbridge/internal/web"
)

// FlowCookieName binds an in-flight OAuth flow to the browser that
// started it, so the state token on the callback can be matched up.
const FlowCookieName = "vatbridge_oauth_flow"

type AuthHandlers struct {
	oauth    *hmrc.OAuth
	states   *service.StateService
	store    session.Store
	renderer *web.Renderer
	logger   *logrus.Logger
}

func NewAuthHandlers(
	oauth *hmrc.OAuth,
	states *service.StateService,
	store session.Store,
	renderer *web.Renderer,
	logger *logrus.Logger,
) *AuthHandlers {
	return &AuthHandlers{
		oauth:    oauth,
		states:   states,
		store:    store,
		renderer: renderer,
		logger:   logger,
	}
}

type indexPage struct {
	Title           string
	Authenticated   bool
	HasAccessToken  bool
	HasRefreshToken bool
	ExpiresAt       string
	Error           string
	Notice          string
}

func indexPageFor(sess *models.Session) indexPage {
	page := indexPage{Title: "Home"}
	if sess == nil {
		return page
	}

	page.Authenticated = true
	page.HasAccessToken = sess.Token.AccessToken != ""
	page.HasRefreshToken = sess.Token.RefreshToken != ""
	page.ExpiresAt = sess.Token.ExpiresAt.Format(time.RFC3339)
	return page
}

// Index renders the login card, or the dashboard when a session exists.
func (h *AuthHandlers) Index(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	h.renderer.Render(w, http.StatusOK, "index", indexPageFor(sess))
}

// Login starts the Authorization Code Flow: bind a flow id to the browser
// and redirect to the HMRC consent page with a signed state token.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	flowID := uuid.New().String()

	state, err := h.states.Issue(flowID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue state token")
		page := indexPage{Title: "Home", Error: "Could not start the sign-in flow. Try again."}
		h.renderer.Render(w, http.StatusInternalServerError, "index", page)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     FlowCookieName,
		Value:    flowID,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthorizationURL(state), http.StatusFound)
}

// Callback completes the flow: verify state, exchange the code, and hand
// the browser a session cookie for the stored token pair.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errCode := q.Get("error"); errCode != "" {
		msg := fmt.Sprintf("Authorization failed: %s", errCode)
		if desc := q.Get("error_description"); desc != "" {
			msg += ": " + desc
		}
		h.renderer.Render(w, http.StatusOK, "index", indexPage{Title: "Home", Error: msg})
		return
	}

	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		h.renderer.Render(w, http.StatusBadRequest, "index", indexPage{
			Title: "Home",
			Error: "Callback is missing the authorization code or state.",
		})
		return
	}

	flowCookie, err := r.Cookie(FlowCookieName)
	if err != nil || flowCookie.Value == "" {
		h.renderer.Render(w, http.StatusBadRequest, "index", indexPage{
			Title: "Home",
			Error: "Sign-in flow was not started from this browser. Try again.",
		})
		return
	}

	if err := h.states.Verify(state, flowCookie.Value); err != nil {
		h.logger.WithError(err).Warn("State verification failed")
		h.renderer.Render(w, http.StatusBadRequest, "index", indexPage{
			Title: "Home",
			Error: "Sign-in state check failed. Try again.",
		})
		return
	}

	tokens, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.renderer.Render(w, http.StatusBadGateway, "index", indexPage{
			Title: "Home",
			Error: fmt.Sprintf("Token exchange failed: %v", err),
		})
		return
	}

	sess := &models.Session{
		ID:        uuid.New().String(),
		Token:     *tokens,
		CreatedAt: time.Now(),
	}

	if err := h.store.Save(r.Context(), sess); err != nil {
		h.logger.WithError(err).Error("Failed to save session")
		h.renderer.Render(w, http.StatusInternalServerError, "index", indexPage{
			Title: "Home",
			Error: "Could not create a session. Try again.",
		})
		return
	}

	// Browser-session cookie on purpose: no Max-Age, dies with the browser.
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	clearCookie(w, FlowCookieName)

	page := indexPageFor(sess)
	page.Notice = "Signed in with HMRC Sandbox. You can now access the VAT endpoints."
	h.renderer.Render(w, http.StatusOK, "index", page)
}

// Logout discards the server-side session and clears the cookie.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.CookieName); err == nil && cookie.Value != "" {
		if err := h.store.Delete(r.Context(), cookie.Value); err != nil {
			h.logger.WithError(err).Error("Failed to delete session")
		}
	}

	clearCookie(w, middleware.CookieName)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
