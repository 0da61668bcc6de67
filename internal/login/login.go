// Package login serves the admin login page, the delegated login callback and logout.
package login

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/musickatta/katta-admin/internal/client"
	"github.com/musickatta/katta-admin/internal/guard"
	"github.com/musickatta/katta-admin/internal/models"
	"github.com/musickatta/katta-admin/internal/session"
	"github.com/rs/zerolog/log"
)

// Where the dashboard and login page live.
const (
	DashboardURL = "/dashboard"
	LoginURL     = "/login"
)

// FlashLoggedIn is the dashboard flash shown after a successful login.
const FlashLoggedIn = "login"

// StateCookie holds the nonce of a delegated login in progress. The callback must echo
// it back as the state parameter.
const StateCookie = "katta_login_state"

// stateTTL is the state cookie lifetime in seconds.
const stateTTL = 300

// Backend authenticates admins against the login service.
type Backend interface {
	LoginAdmin(ctx context.Context, email, password string) (*session.AdminSession, error)
}

// Renderer renders a page template.
type Renderer interface {
	Render(w io.Writer, templateName, title, entryPoint string, data any) error
}

// Page is the data of the login template.
type Page struct {
	Banner    *client.Banner
	Email     string
	GoogleURL string
}

// Handlers serves the login routes.
type Handlers struct {
	backend    Backend
	render     Renderer
	stores     guard.StoreFunc
	backendURL string
}

// New creates the login handlers. backendURL is where the delegated login starts.
func New(backend Backend, render Renderer, stores guard.StoreFunc, backendURL string) *Handlers {
	return &Handlers{
		backend:    backend,
		render:     render,
		stores:     stores,
		backendURL: strings.TrimRight(backendURL, "/"),
	}
}

// Register adds the login routes to mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+LoginURL, h.PageHandler)
	mux.HandleFunc("POST "+LoginURL, h.SubmitHandler)
	mux.HandleFunc("GET /login/google", h.GoogleHandler)
	mux.HandleFunc("GET /oauth/callback", h.CallbackHandler)
	mux.HandleFunc("POST /logout", h.LogoutHandler)
}

// PageHandler shows the login form. A visitor who is already logged in goes straight
// to the dashboard, and a delegated login redirected here is completed.
func (h *Handlers) PageHandler(w http.ResponseWriter, r *http.Request) {
	store := h.stores(w, r)
	if session.IsAuthorized(r.Context(), store, session.RequireLogin) {
		http.Redirect(w, r, DashboardURL, http.StatusFound)
		return
	}

	q := r.URL.Query()
	if q.Get("code") != "" || q.Get("googleAuth") != "" {
		h.CallbackHandler(w, r)
		return
	}

	var banner *client.Banner
	switch q.Get("error_code") {
	case "unauthenticated":
		banner = &client.Banner{Kind: client.BannerError, Text: "Please log in to continue."}
	case "forbidden":
		banner = &client.Banner{Kind: client.BannerError, Text: "Admin access is required for that page."}
	}

	h.renderPage(w, r, http.StatusOK, Page{Banner: banner})
}

// SubmitHandler performs the email/password admin login.
func (h *Handlers) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	email := r.PostFormValue("email")

	admin, err := h.backend.LoginAdmin(ctx, email, r.PostFormValue("password"))
	if err != nil {
		log.Ctx(ctx).Info().Err(err).Str("email", email).Msg("Admin login failed")
		h.renderPage(w, r, http.StatusOK, Page{Banner: client.ErrorBanner(err), Email: email})
		return
	}

	if err := h.stores(w, r).Save(ctx, admin); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to save admin session")
		h.renderPage(w, r, http.StatusInternalServerError, Page{Banner: client.ErrorBanner(err), Email: email})
		return
	}
	session.RecordLogin(ctx, admin)

	log.Ctx(ctx).Info().Str("email", admin.Email).Msg("Admin logged in")
	redirectToDashboard(w, r)
}

// GoogleHandler starts the delegated login at the backend with a fresh state nonce.
func (h *Handlers) GoogleHandler(w http.ResponseWriter, r *http.Request) {
	state := rand.Text()
	setStateCookie(w, r, state, stateTTL)
	http.Redirect(w, r, h.googleURL(state), http.StatusFound)
}

// CallbackHandler completes the delegated login from the callback query parameters.
// A successful result is only trusted when its state matches the nonce set by
// GoogleHandler.
func (h *Handlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	user, err := ParseCallback(q)
	if errors.Is(err, ErrNoCallback) {
		http.Redirect(w, r, LoginURL, http.StatusFound)
		return
	}
	validState := checkState(r, q.Get("state"))
	setStateCookie(w, r, "", -1)
	if err != nil {
		log.Ctx(ctx).Info().Err(err).Msg("Delegated login failed")
		h.renderPage(w, r, http.StatusOK, Page{Banner: client.ErrorBanner(err)})
		return
	}
	if !validState {
		log.Ctx(ctx).Warn().Msg("Delegated login callback with missing or mismatched state")
		h.renderPage(w, r, http.StatusBadRequest, Page{Banner: &client.Banner{Kind: client.BannerError, Text: ErrStateMismatch.Error()}})
		return
	}

	if err := h.stores(w, r).Save(ctx, user); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to save delegated session")
		h.renderPage(w, r, http.StatusInternalServerError, Page{Banner: client.ErrorBanner(err)})
		return
	}
	session.RecordLogin(ctx, user)

	log.Ctx(ctx).Info().Str("user", string(user.UserID)).Str("role", user.Role).Msg("User logged in via delegated login")
	redirectToDashboard(w, r)
}

// ErrStateMismatch is shown when a callback does not belong to a login started here.
var ErrStateMismatch = errors.New("Your Google sign-in could not be verified. Please try again.")

func checkState(r *http.Request, state string) bool {
	c, err := r.Cookie(StateCookie)
	if err != nil || c.Value == "" || state == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(state)) == 1
}

func setStateCookie(w http.ResponseWriter, r *http.Request, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// LogoutHandler deletes the session and returns to the login page. It only accepts
// POST so another site cannot log a visitor out with a link.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.stores(w, r).Clear(r.Context()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to clear session")
	}
	http.Redirect(w, r, LoginURL, http.StatusSeeOther)
}

// ErrNoCallback is returned for a query that carries neither a code nor a result.
var ErrNoCallback = errors.New("not a login callback")

// ParseCallback reads the delegated login result. A failed login returns an error whose
// text is the message to show.
func ParseCallback(q url.Values) (*session.OAuthUserSession, error) {
	switch {
	case q.Get("googleAuth") == "error":
		msg := strings.TrimSpace(q.Get("message"))
		if msg == "" {
			msg = "Google authentication failed"
		}
		return nil, errors.New(msg)
	case q.Get("code") == "" && q.Get("googleAuth") != "success":
		return nil, ErrNoCallback
	}
	return SessionFromCallback(q), nil
}

// SessionFromCallback builds the delegated session from the callback parameters. Missing
// fields get placeholder values and a profile picture that is not an absolute URL is dropped.
func SessionFromCallback(q url.Values) *session.OAuthUserSession {
	get := func(key, def string) string {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			return v
		}
		return def
	}

	return &session.OAuthUserSession{
		UserID:         models.ID(get("userId", "user123")),
		FirstName:      get("firstName", "User"),
		LastName:       get("lastName", ""),
		Username:       get("username", "user"),
		Email:          get("email", "user@example.com"),
		MobileNo:       get("phone", ""),
		Role:           get("role", session.RoleUser),
		ProfilePicture: validPictureURL(q.Get("profilePicture")),
		Token:          get("accessToken", ""),
		IsLoggedIn:     true,
	}
}

func validPictureURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return raw
}

func (h *Handlers) googleURL(state string) string {
	return h.backendURL + "/auth/google/login?" + url.Values{"state": {state}}.Encode()
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, status int, page Page) {
	page.GoogleURL = "/login/google"
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.render.Render(w, "login", "Admin Login", "", page); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to render template")
	}
}

func redirectToDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, DashboardURL+"?"+url.Values{"flash": {FlashLoggedIn}}.Encode(), http.StatusFound)
}
