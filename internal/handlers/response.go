package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shaibs3/geoadmin/internal/gate"
	"github.com/shaibs3/geoadmin/internal/session"
	"github.com/shaibs3/geoadmin/internal/view"
	"go.uber.org/zap"
)

// ServerErrorMessage is flashed whenever the store fails
const ServerErrorMessage = "Szerverhiba történt."

// Deps are the collaborators shared by the HTML handlers
type Deps struct {
	Sessions *session.Manager
	View     *view.Renderer
	Gate     *gate.Gate
}

// ErrorBody is the JSON error object of the API endpoints
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, logger *zap.Logger, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, logger *zap.Logger, statusCode int, message string) {
	JSONResponse(w, logger, statusCode, ErrorBody{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// responder holds the render and redirect plumbing of the HTML handlers
type responder struct {
	Deps
	logger *zap.Logger
}

func newResponder(deps Deps) responder {
	return responder{Deps: deps, logger: zap.NewNop()}
}

// render consumes the pending flashes and renders a page for the
// current principal
func (h *responder) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any, errs ...string) {
	flashes := h.Sessions.Flashes(w, r)
	h.View.Render(w, status, name, view.Page{
		Title:     title,
		User:      session.PrincipalFrom(r.Context()),
		Errors:    append(flashes.Errors, errs...),
		Successes: flashes.Successes,
		Data:      data,
	})
}

func (h *responder) success(w http.ResponseWriter, r *http.Request, message, to string) {
	h.Sessions.Flash(w, r, session.FlashSuccess, message)
	gate.Redirect(w, r, to)
}

func (h *responder) failure(w http.ResponseWriter, r *http.Request, message, to string) {
	h.Sessions.Flash(w, r, session.FlashError, message)
	gate.Redirect(w, r, to)
}

// serverError logs err and sends the user to a page that does not
// depend on the failed operation
func (h *responder) serverError(w http.ResponseWriter, r *http.Request, err error, to string) {
	h.logger.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	h.failure(w, r, ServerErrorMessage, to)
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}
