package session

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// RouteGuard admits or redirects navigation based on the session state:
// while the session is loading it renders a neutral waiting view and admits
// nothing; without authentication it redirects to the login entry point,
// remembering the rejected location for the post-login hop; otherwise it
// admits the request with the user resolved onto the request context.
type RouteGuard struct {
	session        SessionReader
	cfg            Config
	Logger         Logger
	WaitingHandler func(c router.Context) error
}

// NewRouteGuard creates a guard reading session state from session.
func NewRouteGuard(session SessionReader, cfg Config) *RouteGuard {
	g := &RouteGuard{
		session: session,
		cfg:     cfg,
		Logger:  defLogger{},
	}

	g.WaitingHandler = g.defaultWaitingHandler

	return g
}

// Protected returns the guard middleware.
func (g *RouteGuard) Protected() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			current := g.session.Current()

			if current.IsLoading() {
				return g.WaitingHandler(c)
			}

			if !current.IsAuthenticated() {
				g.SetRedirect(c)

				statusCode := http.StatusSeeOther
				if c.Method() == string(router.GET) {
					statusCode = http.StatusFound
				}
				return c.Redirect(g.loginRoute(), statusCode)
			}

			c.SetContext(WithUser(c.Context(), current.User))
			return next(c)
		}
	}
}

// SetRedirect remembers the rejected location so a successful login can
// return to it.
func (g *RouteGuard) SetRedirect(c router.Context) {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	if rejectedRoute == "" {
		return
	}

	g.Logger.Info("Setting redirect cookie %s to %s", rejectedRoute, c.OriginalURL())

	c.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// GetRedirect pops the remembered location, falling back to def. Absent
// cookies are not an error.
func (g *RouteGuard) GetRedirect(c router.Context, def ...string) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	r := c.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return g.defaultRoute()
	}
	g.cookieDel(c, rejectedRoute)
	return r
}

// GetRedirectOrDefault pops the remembered location, trying the referer
// header before the configured default.
func (g *RouteGuard) GetRedirectOrDefault(c router.Context) string {
	rejectedRoute := g.cfg.GetRejectedRouteKey()
	refererHeader := string(c.Referer())

	r := c.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = g.defaultRoute()
	}
	g.cookieDel(c, rejectedRoute)
	return r
}

func (g *RouteGuard) loginRoute() string {
	if r := g.cfg.GetLoginRoute(); r != "" {
		return r
	}
	return "/login"
}

func (g *RouteGuard) defaultRoute() string {
	if r := g.cfg.GetRejectedRouteDefault(); r != "" {
		return r
	}
	return "/"
}

func (g *RouteGuard) defaultWaitingHandler(c router.Context) error {
	return c.Status(http.StatusServiceUnavailable).Render("loading", router.ViewContext{
		"message": "Checking authentication...",
	})
}

func (g *RouteGuard) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
