package session

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/shaibs3/geoadmin/internal/model"
	"go.uber.org/zap"
)

const (
	cookieName = "geoadmin_session"

	keyUserID    = "user_id"
	keyUserName  = "user_name"
	keyUserEmail = "user_email"
	keyUserRole  = "user_role"
	keyLastSeen  = "last_seen"
)

// Flash severities
const (
	FlashError   = "error"
	FlashSuccess = "success"
)

// Flashes are the notifications pending for the next rendered page
type Flashes struct {
	Errors    []string
	Successes []string
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal carried by ctx, or the zero
// principal for anonymous requests
func PrincipalFrom(ctx context.Context) model.Principal {
	p, _ := ctx.Value(principalKey{}).(model.Principal)
	return p
}

// Manager keeps the signed session cookie: the logged-in user and the
// flash notifications
type Manager struct {
	store  *sessions.CookieStore
	idle   time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces the clock used for the idle window
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(secret string, idle time.Duration, secure bool, logger *zap.Logger, opts ...Option) *Manager {
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(idle / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	m := &Manager{
		store:  cs,
		idle:   idle,
		logger: logger.Named("session"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// get never fails: an undecodable cookie yields a fresh session
func (m *Manager) get(r *http.Request) *sessions.Session {
	s, err := m.store.Get(r, cookieName)
	if err != nil {
		m.logger.Debug("discarding unreadable session cookie", zap.Error(err))
	}
	return s
}

func (m *Manager) save(w http.ResponseWriter, r *http.Request, s *sessions.Session) error {
	if err := s.Save(r, w); err != nil {
		m.logger.Error("failed to save session", zap.Error(err))
		return err
	}
	return nil
}

// Middleware loads the session user into the request context. A user
// idle for longer than the idle window is logged out; an active user has
// the window extended.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.get(r)
		p := principal(s)
		if !p.IsZero() {
			now := m.now()
			last, _ := s.Values[keyLastSeen].(int64)
			if now.Sub(time.Unix(last, 0)) > m.idle {
				clearUser(s)
				p = model.Principal{}
				m.logger.Debug("session expired")
			} else {
				s.Values[keyLastSeen] = now.Unix()
			}
			_ = m.save(w, r, s)
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Login stores p as the session user
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, p model.Principal) error {
	s := m.get(r)
	s.Values[keyUserID] = p.ID
	s.Values[keyUserName] = p.Name
	s.Values[keyUserEmail] = p.Email
	s.Values[keyUserRole] = string(p.Role)
	s.Values[keyLastSeen] = m.now().Unix()
	return m.save(w, r, s)
}

// Logout removes the session user; pending flashes survive
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	s := m.get(r)
	clearUser(s)
	return m.save(w, r, s)
}

// Flash queues a notification for the next rendered page
func (m *Manager) Flash(w http.ResponseWriter, r *http.Request, kind, message string) {
	s := m.get(r)
	s.AddFlash(message, kind)
	_ = m.save(w, r, s)
}

// Flashes consumes the pending notifications
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) Flashes {
	s := m.get(r)
	f := Flashes{
		Errors:    toStrings(s.Flashes(FlashError)),
		Successes: toStrings(s.Flashes(FlashSuccess)),
	}
	if len(f.Errors)+len(f.Successes) > 0 {
		_ = m.save(w, r, s)
	}
	return f
}

func principal(s *sessions.Session) model.Principal {
	id, _ := s.Values[keyUserID].(int64)
	name, _ := s.Values[keyUserName].(string)
	email, _ := s.Values[keyUserEmail].(string)
	role, _ := s.Values[keyUserRole].(string)
	return model.Principal{ID: id, Name: name, Email: email, Role: model.Role(role)}
}

func clearUser(s *sessions.Session) {
	for _, k := range []string{keyUserID, keyUserName, keyUserEmail, keyUserRole, keyLastSeen} {
		delete(s.Values, k)
	}
}

func toStrings(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
