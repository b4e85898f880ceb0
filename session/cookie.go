package session

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"

	"sitegate/crypto"
)

const CookieName = "sitegate-session"

// NewCookieStore builds the signed and encrypted cookie store holding the
// browser's session keys. The session has no expiry beyond the cookie's
// MaxAge; logout is the only way it ends early.
func NewCookieStore(secret string, secure bool) (*sessions.CookieStore, error) {
	authKey, encKey, err := crypto.DeriveCookieKeys(secret)
	if err != nil {
		return nil, err
	}

	store := sessions.NewCookieStore(authKey, encKey)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	// also bounds the codecs' timestamp check
	store.MaxAge(86400 * 365)
	return store, nil
}

// CookieStorage is a Storage over one request's cookie session. Writes are
// buffered in the session values; call Save before the response is written.
type CookieStorage struct {
	sess  *sessions.Session
	dirty bool
}

// NewCookieStorage loads the request's session. A cookie that fails to
// decode yields a fresh, empty session.
func NewCookieStorage(store sessions.Store, r *http.Request) *CookieStorage {
	sess, err := store.Get(r, CookieName)
	if err != nil {
		sess, _ = store.New(r, CookieName)
	}
	if sess.Values == nil {
		sess.Values = make(map[any]any)
	}
	return &CookieStorage{sess: sess}
}

func (c *CookieStorage) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.sess.Values[key].(string)
	return v, ok, nil
}

func (c *CookieStorage) Set(_ context.Context, key, value string) error {
	c.sess.Values[key] = value
	c.dirty = true
	return nil
}

func (c *CookieStorage) Delete(_ context.Context, key string) error {
	if _, ok := c.sess.Values[key]; ok {
		delete(c.sess.Values, key)
		c.dirty = true
	}
	return nil
}

// Save writes the cookie if anything changed.
func (c *CookieStorage) Save(w http.ResponseWriter, r *http.Request) error {
	if !c.dirty {
		return nil
	}
	c.dirty = false
	return c.sess.Save(r, w)
}
