package handlers

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gorilla/sessions"

	"sitegate/auth"
	"sitegate/crypto"
	"sitegate/guard"
	"sitegate/logging"
	"sitegate/session"
)

// Handler serves the static site behind the page guard together with the
// login, logout and API endpoints.
type Handler struct {
	Verifier *auth.Verifier
	Cookies  sessions.Store
	Pages    guard.Pages
	Hasher   crypto.Hasher
	Salt     string
	Log      logging.Logger

	// Site serves the static pages and assets.
	Site http.Handler
}

func (h *Handler) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/", h.GuardMiddleware(h.Site))
	mux.HandleFunc("/login", h.LoginHandler)
	mux.HandleFunc("/logout", h.LogoutHandler)

	mux.HandleFunc("/api/v1/csrf", h.APICSRFHandler)
	mux.HandleFunc("/api/v1/login", h.APILoginHandler)
	mux.HandleFunc("/api/v1/logout", h.APILogoutHandler)
	mux.HandleFunc("/api/v1/me", h.APIMeHandler)
	mux.HandleFunc("/api/v1/hashgen", h.APIHashgenHandler)
}

// client returns the auth client bound to the request's cookie session.
func (h *Handler) client(r *http.Request) (*auth.Client, *session.CookieStorage) {
	storage := session.NewCookieStorage(h.Cookies, r)
	return auth.NewClient(h.Verifier, session.NewStore(storage), h.Pages), storage
}

func (h *Handler) logger() logging.Logger {
	if h.Log == nil {
		return logging.Nop()
	}
	return h.Log
}

func (h *Handler) pageURL(page string) string {
	return "/" + strings.TrimPrefix(page, "/")
}

// GuardMiddleware runs the page guard on every HTML page before next serves
// it. Directory requests ("/", "/docs/") never reach next: the guard treats
// them as the login page, so they are sent to the login or home page.
// Assets pass through unchecked.
func (h *Handler) GuardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isPage(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		c, _ := h.client(r)
		decision := c.CheckAuth(r.Context(), r.URL.Path)
		if decision == guard.Allowed && guard.PageName(r.URL.Path) == "" {
			decision = guard.MustRedirectToLogin
		}

		switch decision {
		case guard.MustRedirectToLogin, guard.MustRedirectToHome:
			h.logger().Debug(r.Context(), "page guard redirect", "path", r.URL.Path, "decision", decision.String())
			http.Redirect(w, r, h.pageURL(h.Pages.Target(decision)), http.StatusFound)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func isPage(p string) bool {
	if strings.HasSuffix(p, "/") {
		return true
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// LoginHandler handles the login form. Failures go back to the login page
// with the message in the "error" query parameter.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, h.pageURL(h.Pages.Login), http.StatusSeeOther)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		h.loginError(w, r, auth.MsgMissingCredentials)
		return
	}

	c, storage := h.client(r)
	result := c.Login(r.Context(), username, password)
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = auth.MsgLoginFailed
		}
		h.loginError(w, r, msg)
		return
	}

	if err := storage.Save(w, r); err != nil {
		h.logger().Error(r.Context(), "saving session cookie failed", "error", err)
		h.loginError(w, r, auth.MsgLoginFailed)
		return
	}
	http.Redirect(w, r, h.pageURL(h.Pages.Home), http.StatusSeeOther)
}

func (h *Handler) loginError(w http.ResponseWriter, r *http.Request, msg string) {
	target := h.pageURL(h.Pages.Login) + "?error=" + url.QueryEscape(msg)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// LogoutHandler clears the session and returns to the login page. Only
// POST is accepted so the request passes the CSRF check.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	c, storage := h.client(r)
	if err := c.Logout(r.Context()); err != nil {
		h.logger().Error(r.Context(), "clearing session failed", "error", err)
	}
	if err := storage.Save(w, r); err != nil {
		h.logger().Error(r.Context(), "saving session cookie failed", "error", err)
	}
	http.Redirect(w, r, h.pageURL(h.Pages.Login), http.StatusSeeOther)
}
