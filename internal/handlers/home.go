package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shaibs3/geoadmin/internal/view"
	"go.uber.org/zap"
)

// Pinger reports whether the data store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HomeHandler serves the landing page and the health check
type HomeHandler struct {
	responder
	store Pinger
}

func NewHomeHandler(deps Deps, store Pinger) *HomeHandler {
	return &HomeHandler{responder: newResponder(deps), store: store}
}

// RegisterRoutes registers the routes for this handler
func (h *HomeHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("handlers.home")
	router.HandleFunc("/", h.home).Methods(http.MethodGet)
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
}

func (h *HomeHandler) home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Home, "Főoldal", nil)
}

func (h *HomeHandler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		JSONResponse(w, h.logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	JSONResponse(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
