package auth

import (
	"context"

	"sitegate/guard"
	"sitegate/models"
	"sitegate/session"
)

// Client binds the shared Verifier to one visitor's session store.
type Client struct {
	verifier *Verifier
	store    *session.Store
	pages    guard.Pages
}

func NewClient(verifier *Verifier, store *session.Store, pages guard.Pages) *Client {
	return &Client{verifier: verifier, store: store, pages: pages}
}

func (c *Client) Login(ctx context.Context, username, password string) Result {
	return c.verifier.Verify(ctx, c.store, username, password)
}

// Logout clears the session. The caller navigates to Pages().Login.
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// CurrentUser returns the session's user, or false when there is no
// complete session.
func (c *Client) CurrentUser(ctx context.Context) (models.User, bool) {
	sess, ok, err := c.store.Get(ctx)
	if err != nil || !ok {
		return models.User{}, false
	}
	return models.User{UsernameHash: sess.UserHash, Role: sess.Role}, true
}

func (c *Client) IsAdmin(ctx context.Context) bool {
	return c.store.HasRole(ctx, models.RoleAdmin)
}

// CheckAuth runs the page guard for the current route.
func (c *Client) CheckAuth(ctx context.Context, route string) guard.Decision {
	return c.pages.Evaluate(c.store.LoggedIn(ctx), guard.PageName(route))
}

func (c *Client) Pages() guard.Pages {
	return c.pages
}
