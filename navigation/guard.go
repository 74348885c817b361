package navigation

import (
	"net/url"

	"github.com/jmcleod/adconsole/session"
)

// DefaultLoginPath is the login entry point.
const DefaultLoginPath = "/login"

// ReturnParam is the query parameter carrying the post-login target.
const ReturnParam = "redirect"

// Decision is the guard's verdict on a transition.
type Decision struct {
	Allow bool
	// Redirect is set when the transition is replaced by another one.
	Redirect string
}

// Guard is the per-transition checkpoint.
type Guard struct {
	LoginPath string
}

// Check decides whether target may be entered with session s.
func (g Guard) Check(target Match, s session.Snapshot) Decision {
	if !target.RequiresAuth() || s.BearerToken != "" {
		return Decision{Allow: true}
	}
	return Decision{Redirect: g.loginURL(target.FullPath)}
}

func (g Guard) loginPath() string {
	if g.LoginPath == "" {
		return DefaultLoginPath
	}
	return g.LoginPath
}

func (g Guard) loginURL(returnTo string) string {
	if returnTo == "" {
		return g.loginPath()
	}
	return g.loginPath() + "?" + url.Values{ReturnParam: {returnTo}}.Encode()
}
