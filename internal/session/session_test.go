package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shaibs3/geoadmin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestManager(c *clock) *Manager {
	return NewManager("test-secret-test-secret-test-secret", 30*time.Minute, false, zap.NewNop(), WithClock(c.Now))
}

// roundTrip serves one request through the middleware, forwarding cookies
func roundTrip(t *testing.T, h http.Handler, cookies []*http.Cookie) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Result().Cookies(); len(got) > 0 {
		return got[len(got)-1:]
	}
	return cookies
}

func TestLoginIsVisibleOnNextRequest(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(c)
	admin := model.Principal{ID: 4, Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}

	login := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, PrincipalFrom(r.Context()).IsZero())
		require.NoError(t, m.Login(w, r, admin))
	}))
	cookies := roundTrip(t, login, nil)
	require.NotEmpty(t, cookies)

	var seen model.Principal
	probe := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFrom(r.Context())
	}))
	c.now = c.now.Add(10 * time.Minute)
	cookies = roundTrip(t, probe, cookies)
	assert.Equal(t, admin, seen)

	logout := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.Logout(w, r))
	}))
	cookies = roundTrip(t, logout, cookies)
	roundTrip(t, probe, cookies)
	assert.True(t, seen.IsZero())
}

func TestIdleWindow(t *testing.T) {
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	m := newTestManager(c)

	login := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, m.Login(w, r, model.Principal{ID: 1, Email: "u@example.com", Role: model.RoleRegistered}))
	}))
	cookies := roundTrip(t, login, nil)

	var seen model.Principal
	probe := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFrom(r.Context())
	}))

	// activity inside the window slides it forward
	c.now = c.now.Add(25 * time.Minute)
	cookies = roundTrip(t, probe, cookies)
	require.False(t, seen.IsZero())
	c.now = c.now.Add(25 * time.Minute)
	cookies = roundTrip(t, probe, cookies)
	require.False(t, seen.IsZero())

	c.now = c.now.Add(31 * time.Minute)
	roundTrip(t, probe, cookies)
	assert.True(t, seen.IsZero())
}

func TestFlashesAreReadOnce(t *testing.T) {
	m := newTestManager(&clock{now: time.Now()})

	set := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Flash(w, r, FlashError, "hiba")
		m.Flash(w, r, FlashSuccess, "siker")
	})
	cookies := roundTrip(t, set, nil)

	var got Flashes
	read := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = m.Flashes(w, r)
	})
	cookies = roundTrip(t, read, cookies)
	assert.Equal(t, []string{"hiba"}, got.Errors)
	assert.Equal(t, []string{"siker"}, got.Successes)

	roundTrip(t, read, cookies)
	assert.Empty(t, got.Errors)
	assert.Empty(t, got.Successes)
}

func TestGarbageCookieIsAnonymous(t *testing.T) {
	m := newTestManager(&clock{now: time.Now()})
	var seen model.Principal
	probe := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFrom(r.Context())
	}))
	roundTrip(t, probe, []*http.Cookie{{Name: cookieName, Value: "not-a-session"}})
	assert.True(t, seen.IsZero())
}
