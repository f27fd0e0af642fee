package session_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	session "github.com/fintrack/go-session"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// staticSession satisfies session.SessionReader with a fixed snapshot.
type staticSession struct {
	snapshot session.Session
}

func (s staticSession) Current() session.Session { return s.snapshot }

func guardConfig() testConfig {
	return testConfig{
		loginRoute:    "/login",
		rejectedKey:   "rejected_route",
		rejectedRoute: "/",
	}
}

func TestGuardAdmitsAuthenticated(t *testing.T) {
	user := testUser()
	guard := session.NewRouteGuard(staticSession{session.Session{
		State: session.StateAuthenticated,
		User:  user,
		Token: "tok-abc",
	}}, guardConfig())
	guard.Logger = testLogger{}

	mc := &MockContext{}
	mc.On("Context").Return(context.Background())
	mc.On("SetContext", mock.MatchedBy(func(ctx context.Context) bool {
		resolved, ok := session.UserFromContext(ctx)
		return ok && resolved.ID == user.ID
	})).Return()

	nextCalled := false
	next := func(c router.Context) error {
		nextCalled = true
		return nil
	}

	err := guard.Protected()(next)(mc)
	require.NoError(t, err)
	assert.True(t, nextCalled)
	mc.AssertExpectations(t)
}

func TestGuardRedirectsAnonymousGet(t *testing.T) {
	guard := session.NewRouteGuard(staticSession{session.Session{
		State: session.StateAnonymous,
	}}, guardConfig())
	guard.Logger = testLogger{}

	mc := &MockContext{}
	mc.On("OriginalURL").Return("/dashboard?tab=cards")
	mc.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "rejected_route" &&
			c.Value == "/dashboard?tab=cards" &&
			c.HTTPOnly &&
			c.Expires.After(time.Now())
	})).Return()
	mc.On("Method").Return("GET")
	mc.On("Redirect", "/login", []int{http.StatusFound}).Return(nil)

	next := func(c router.Context) error {
		t.Fatal("handler must not run for anonymous requests")
		return nil
	}

	err := guard.Protected()(next)(mc)
	require.NoError(t, err)
	assert.False(t, mc.NextCalled)
	mc.AssertExpectations(t)
}

func TestGuardRedirectsAnonymousPostWithSeeOther(t *testing.T) {
	guard := session.NewRouteGuard(staticSession{session.Session{
		State: session.StateAuthFailed,
	}}, guardConfig())
	guard.Logger = testLogger{}

	mc := &MockContext{}
	mc.On("OriginalURL").Return("/transactions")
	mc.On("Cookie", mock.Anything).Return()
	mc.On("Method").Return("POST")
	mc.On("Redirect", "/login", []int{http.StatusSeeOther}).Return(nil)

	err := guard.Protected()(func(c router.Context) error { return nil })(mc)
	require.NoError(t, err)
	mc.AssertExpectations(t)
}

func TestGuardRendersWaitingWhileLoading(t *testing.T) {
	for _, state := range []session.State{session.StateRestoring, session.StateAuthenticating} {
		t.Run(string(state), func(t *testing.T) {
			guard := session.NewRouteGuard(staticSession{session.Session{State: state}},
				guardConfig())
			guard.Logger = testLogger{}

			mc := &MockContext{}
			mc.On("Status", http.StatusServiceUnavailable).Return(mc)
			mc.On("Render", "loading", mock.Anything).Return(nil)

			err := guard.Protected()(func(c router.Context) error {
				t.Fatal("handler must not run while loading")
				return nil
			})(mc)
			require.NoError(t, err)
			mc.AssertExpectations(t)
		})
	}
}

func TestGuardWaitingHandlerOverride(t *testing.T) {
	guard := session.NewRouteGuard(staticSession{session.Session{
		State: session.StateRestoring,
	}}, guardConfig())
	guard.Logger = testLogger{}

	called := false
	guard.WaitingHandler = func(c router.Context) error {
		called = true
		return nil
	}

	err := guard.Protected()(func(c router.Context) error { return nil })(&MockContext{})
	require.NoError(t, err)
	assert.True(t, called)
}

// treat sessions that somehow carry a user without a token as unauthenticated
func TestGuardRejectsPartialSession(t *testing.T) {
	guard := session.NewRouteGuard(staticSession{session.Session{
		State: session.StateAuthenticated,
		User:  testUser(),
	}}, guardConfig())
	guard.Logger = testLogger{}

	mc := &MockContext{}
	mc.On("OriginalURL").Return("/dashboard")
	mc.On("Cookie", mock.Anything).Return()
	mc.On("Method").Return("GET")
	mc.On("Redirect", "/login", []int{http.StatusFound}).Return(nil)

	err := guard.Protected()(func(c router.Context) error {
		t.Fatal("handler must not run without a token")
		return nil
	})(mc)
	require.NoError(t, err)
}

func TestGuardGetRedirect(t *testing.T) {
	guard := session.NewRouteGuard(staticSession{session.Session{
		State: session.StateAnonymous,
	}}, guardConfig())
	guard.Logger = testLogger{}

	mc := &MockContext{}
	mc.On("Cookies", "rejected_route").Return("/dashboard")
	mc.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		// popping the value deletes the cookie
		return c.Name == "rejected_route" && c.Value == "" && c.Expires.Before(time.Now())
	})).Return()

	assert.Equal(t, "/dashboard", guard.GetRedirect(mc))
	mc.AssertExpectations(t)
}

func TestGuardGetRedirectFallsBack(t *testing.T) {
	guard := session.NewRouteGuard(staticSession{session.Session{
		State: session.StateAnonymous,
	}}, guardConfig())
	guard.Logger = testLogger{}

	mc := &MockContext{}
	mc.On("Cookies", "rejected_route").Return("")

	assert.Equal(t, "/overview", guard.GetRedirect(mc, "/overview"))
	assert.Equal(t, "/", guard.GetRedirect(mc))
}

func TestGuardGetRedirectOrDefaultUsesReferer(t *testing.T) {
	guard := session.NewRouteGuard(staticSession{session.Session{
		State: session.StateAnonymous,
	}}, guardConfig())
	guard.Logger = testLogger{}

	mc := &MockContext{}
	mc.On("Referer").Return("/cards")
	mc.On("Cookies", "rejected_route", "/cards").Return("/cards")
	mc.On("Cookie", mock.Anything).Return()

	assert.Equal(t, "/cards", guard.GetRedirectOrDefault(mc))
	mc.AssertExpectations(t)
}
