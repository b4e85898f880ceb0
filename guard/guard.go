// Package guard decides, for each page load, whether the visitor may see the
// page or must be sent elsewhere.
package guard

import (
	"path"
	"strings"
)

type Decision int

const (
	Unknown Decision = iota
	MustRedirectToLogin
	MustRedirectToHome
	Allowed
)

func (d Decision) String() string {
	switch d {
	case MustRedirectToLogin:
		return "redirect-login"
	case MustRedirectToHome:
		return "redirect-home"
	case Allowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Pages names the pages the guard knows about. Names are compared
// case-insensitively against the last path segment of the route.
type Pages struct {
	Login  string
	Home   string
	Public []string
}

func DefaultPages() Pages {
	return Pages{Login: "login.html", Home: "index.html", Public: []string{"hashgen.html"}}
}

// IsLogin reports whether page is the login page. An empty page name (the
// site root) also counts as the login page.
func (p Pages) IsLogin(page string) bool {
	return page == "" || strings.EqualFold(page, p.Login)
}

func (p Pages) IsPublic(page string) bool {
	for _, pub := range p.Public {
		if strings.EqualFold(page, pub) {
			return true
		}
	}
	return false
}

// Evaluate applies the rules in order: an anonymous visitor on a protected
// page goes to login, a logged-in visitor on the login page goes home,
// everything else is allowed.
func (p Pages) Evaluate(loggedIn bool, page string) Decision {
	page = strings.ToLower(page)

	if !loggedIn && !p.IsLogin(page) && !p.IsPublic(page) {
		return MustRedirectToLogin
	}
	if loggedIn && p.IsLogin(page) {
		return MustRedirectToHome
	}
	return Allowed
}

// Target returns the page to navigate to for d, or "" when none.
func (p Pages) Target(d Decision) string {
	switch d {
	case MustRedirectToLogin:
		return p.Login
	case MustRedirectToHome:
		return p.Home
	default:
		return ""
	}
}

// PageName returns the lowercased last segment of a URL path.
// "/docs/Report.HTML" gives "report.html"; "/" and "/docs/" give "".
func PageName(urlPath string) string {
	if urlPath == "" || strings.HasSuffix(urlPath, "/") {
		return ""
	}
	return strings.ToLower(path.Base(urlPath))
}

// NavPage is the page highlighted in the navigation: the current page, or
// the home page at the site root.
func (p Pages) NavPage(urlPath string) string {
	if name := PageName(urlPath); name != "" {
		return name
	}
	return strings.ToLower(p.Home)
}
