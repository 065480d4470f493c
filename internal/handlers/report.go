package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shaibs3/geoadmin/internal/geo"
	"github.com/shaibs3/geoadmin/internal/query"
	"github.com/shaibs3/geoadmin/internal/view"
	"go.uber.org/zap"
)

// ReportHandler serves the public population report and its JSON helpers
type ReportHandler struct {
	responder
	geo *geo.Service
}

func NewReportHandler(deps Deps, geoService *geo.Service) *ReportHandler {
	return &ReportHandler{responder: newResponder(deps), geo: geoService}
}

// RegisterRoutes registers the routes for this handler
func (h *ReportHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("handlers.report")
	router.HandleFunc("/adatbazis-lista", h.report).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/varosok-by-megye", h.citiesByCounty).Methods(http.MethodGet)
	api.HandleFunc("/megye-by-varos", h.countyByCity).Methods(http.MethodGet)
}

func filterFrom(r *http.Request) query.Filter {
	q := r.URL.Query()
	return query.Filter{City: q.Get("varos"), County: q.Get("megye")}.Normalize()
}

func (h *ReportHandler) report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := filterFrom(r)

	rows, err := h.geo.Report(ctx, filter)
	if err != nil {
		h.serverError(w, r, err, "/")
		return
	}
	cityNames, err := h.geo.CityNames(ctx)
	if err != nil {
		h.serverError(w, r, err, "/")
		return
	}
	countyNames, err := h.geo.CountyNames(ctx)
	if err != nil {
		h.serverError(w, r, err, "/")
		return
	}

	h.render(w, r, http.StatusOK, view.Report, "Adatbázis lista", view.ReportData{
		Rows:        rows,
		CityNames:   cityNames,
		CountyNames: countyNames,
		Filter:      filter,
	})
}

// citiesByCounty handles GET /api/varosok-by-megye?megye=
func (h *ReportHandler) citiesByCounty(w http.ResponseWriter, r *http.Request) {
	names, err := h.geo.CityNamesInCounty(r.Context(), r.URL.Query().Get("megye"))
	if err != nil {
		h.logger.Error("failed to list cities of county", zap.Error(err))
		ErrorResponse(w, h.logger, http.StatusInternalServerError, "failed to list cities")
		return
	}
	JSONResponse(w, h.logger, http.StatusOK, names)
}

// countyByCity handles GET /api/megye-by-varos?varos=
func (h *ReportHandler) countyByCity(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("varos")
	if city == "" {
		ErrorResponse(w, h.logger, http.StatusBadRequest, "varos is required")
		return
	}
	county, err := h.geo.CountyOfCity(r.Context(), city)
	if err != nil {
		h.logger.Error("failed to resolve county", zap.Error(err))
		ErrorResponse(w, h.logger, http.StatusInternalServerError, "failed to resolve county")
		return
	}
	JSONResponse(w, h.logger, http.StatusOK, map[string]string{"megye": county})
}
