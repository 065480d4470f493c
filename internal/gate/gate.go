package gate

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shaibs3/geoadmin/internal/session"
	"go.uber.org/zap"
)

// Notes shown when a gate turns a request away
const (
	LoginRequiredMessage = "Az oldal megtekintéséhez be kell jelentkezni."
	AdminRequiredMessage = "Nincs jogosultsága az oldal megtekintéséhez."
)

// Redirect targets
const (
	LoginPath = "/bejelentkezes"
	HomePath  = "/"
)

// Flasher queues a notification for the next page
type Flasher interface {
	Flash(w http.ResponseWriter, r *http.Request, kind, message string)
}

// Gate checks the request principal placed in the context by the session
// middleware. It never reads the data store.
type Gate struct {
	flasher Flasher
	logger  *zap.Logger
}

func New(flasher Flasher, logger *zap.Logger) *Gate {
	return &Gate{flasher: flasher, logger: logger.Named("gate")}
}

// RequireUser lets authenticated requests through and sends everyone
// else to the login page
func (g *Gate) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.PrincipalFrom(r.Context()).IsZero() {
			g.deny(w, r, LoginRequiredMessage, LoginPath)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin checks authentication first, then the admin role.
// Authenticated non-admins are sent home.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return g.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.PrincipalFrom(r.Context()).IsAdmin() {
			g.deny(w, r, AdminRequiredMessage, HomePath)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, message, target string) {
	g.logger.Debug("request denied",
		zap.String("path", r.URL.Path),
		zap.String("redirect", target),
	)
	g.flasher.Flash(w, r, session.FlashError, message)
	Redirect(w, r, target)
}

// Redirect answers with 302 for GET and HEAD, 303 otherwise
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	code := http.StatusSeeOther
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		code = http.StatusFound
	}
	http.Redirect(w, r, target, code)
}

var (
	_ mux.MiddlewareFunc = (*Gate)(nil).RequireUser
	_ mux.MiddlewareFunc = (*Gate)(nil).RequireAdmin
)
