package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shaibs3/geoadmin/internal/geo"
	"github.com/shaibs3/geoadmin/internal/model"
	"github.com/shaibs3/geoadmin/internal/store"
	"github.com/shaibs3/geoadmin/internal/view"
	"go.uber.org/zap"
)

// Notes shown by the admin pages
const (
	CityCreatedMessage        = "Város hozzáadva."
	CityUpdatedMessage        = "Város módosítva."
	CityDeletedMessage        = "Város törölve."
	CityNameRequiredMessage   = "A város neve kötelező."
	UnknownCityMessage        = "Nincs ilyen város."
	CountyCreatedMessage      = "Megye hozzáadva."
	CountyUpdatedMessage      = "Megye módosítva."
	CountyDeletedMessage      = "Megye törölve."
	CountyNameRequiredMessage = "A megye neve kötelező."
	UnknownCountyMessage      = "Nincs ilyen megye."
	PopulationCreatedMessage  = "Lélekszám adat hozzáadva."
	PopulationUpdatedMessage  = "Lélekszám adat módosítva."
	PopulationDeletedMessage  = "Lélekszám adat törölve."
	YearRecordedMessage       = "Erre az évre már van lélekszám adat ennél a városnál."
	UnknownPopulationMessage  = "Nincs ilyen lélekszám adat."
	InvalidPopulationMessage  = "Hibás lélekszám adat."
)

const (
	citiesPath   = "/admin/varosok"
	countiesPath = "/admin/megyek"
)

// AdminHandler serves the admin-only city, county and population pages
type AdminHandler struct {
	responder
	geo *geo.Service
}

func NewAdminHandler(deps Deps, geoService *geo.Service) *AdminHandler {
	return &AdminHandler{responder: newResponder(deps), geo: geoService}
}

// RegisterRoutes registers the routes for this handler. Every route sits
// behind the admin gate.
func (h *AdminHandler) RegisterRoutes(router *mux.Router, logger *zap.Logger) {
	h.logger = logger.Named("handlers.admin")

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(h.Gate.RequireAdmin, rejectCrossSite)

	admin.HandleFunc("/varosok", h.listCities).Methods(http.MethodGet)
	admin.HandleFunc("/varos/uj", h.createCity).Methods(http.MethodPost)
	admin.HandleFunc("/varos/szerkeszt/{id:[0-9]+}", h.editCityForm).Methods(http.MethodGet)
	admin.HandleFunc("/varos/szerkeszt/{id:[0-9]+}", h.updateCity).Methods(http.MethodPost)
	admin.HandleFunc("/varos/torles/{id:[0-9]+}", h.deleteCity).Methods(http.MethodGet)

	admin.HandleFunc("/megyek", h.listCounties).Methods(http.MethodGet)
	admin.HandleFunc("/megye/uj", h.createCounty).Methods(http.MethodPost)
	admin.HandleFunc("/megye/szerkeszt/{id:[0-9]+}", h.editCountyForm).Methods(http.MethodGet)
	admin.HandleFunc("/megye/szerkeszt/{id:[0-9]+}", h.updateCounty).Methods(http.MethodPost)
	admin.HandleFunc("/megye/torles/{id:[0-9]+}", h.deleteCounty).Methods(http.MethodGet)

	admin.HandleFunc("/lelekszam/uj", h.createPopulation).Methods(http.MethodPost)
	admin.HandleFunc("/lelekszam/szerkeszt", h.updatePopulation).Methods(http.MethodPost)
	admin.HandleFunc("/lelekszam/torles", h.deletePopulation).Methods(http.MethodGet, http.MethodPost)
}

// rejectCrossSite refuses admin requests started from another site. The
// delete routes are plain GET links and the session cookie is SameSite=Lax,
// so a top-level navigation from elsewhere would otherwise carry it.
func rejectCrossSite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Sec-Fetch-Site") {
		case "", "same-origin", "none":
		default:
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		if origin := r.Header.Get("Origin"); origin != "" {
			u, err := url.Parse(origin)
			if err != nil || u.Host != r.Host {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func cityEditPath(id int64) string {
	return fmt.Sprintf("/admin/varos/szerkeszt/%d", id)
}

// cityFrom reads the city form. A blank county selects no county.
func cityFrom(r *http.Request) (model.City, error) {
	city := model.City{
		Name:            r.PostFormValue("nev"),
		IsCountySeat:    r.PostFormValue("megyeszekhely") != "",
		HasCountyRights: r.PostFormValue("megyeijogu") != "",
	}
	if v := strings.TrimSpace(r.PostFormValue("megyeid")); v != "" {
		id, ok := parseID(v)
		if !ok {
			return city, store.ErrNotFound
		}
		city.CountyID = &id
	}
	return city, nil
}

func (h *AdminHandler) listCities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := filterFrom(r)

	cities, err := h.geo.Cities(ctx, filter)
	if err != nil {
		h.serverError(w, r, err, "/")
		return
	}
	counties, err := h.geo.Counties(ctx)
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

	h.render(w, r, http.StatusOK, view.Cities, "Városok", view.CityListData{
		Cities:      cities,
		Counties:    counties,
		CityNames:   cityNames,
		CountyNames: countyNames,
		Filter:      filter,
	})
}

func (h *AdminHandler) createCity(w http.ResponseWriter, r *http.Request) {
	city, err := cityFrom(r)
	if err == nil {
		_, err = h.geo.CreateCity(r.Context(), city)
	}
	h.cityResult(w, r, err, CityCreatedMessage, UnknownCountyMessage)
}

func (h *AdminHandler) editCityForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := parseID(mux.Vars(r)["id"])

	city, err := h.geo.City(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		h.failure(w, r, UnknownCityMessage, citiesPath)
		return
	}
	if err != nil {
		h.serverError(w, r, err, citiesPath)
		return
	}
	counties, err := h.geo.Counties(ctx)
	if err != nil {
		h.serverError(w, r, err, citiesPath)
		return
	}
	populations, err := h.geo.CityPopulation(ctx, id)
	if err != nil {
		h.serverError(w, r, err, citiesPath)
		return
	}

	h.render(w, r, http.StatusOK, view.CityEdit, city.Name, view.CityEditData{
		City:        city,
		Counties:    counties,
		Populations: populations,
	})
}

func (h *AdminHandler) updateCity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := parseID(mux.Vars(r)["id"])
	city, err := cityFrom(r)
	if err == nil {
		city.ID = id
		err = h.geo.UpdateCity(ctx, city)
	}

	// not-found covers both the city and its county reference
	missing := UnknownCountyMessage
	if errors.Is(err, store.ErrNotFound) {
		if _, cerr := h.geo.City(ctx, id); errors.Is(cerr, store.ErrNotFound) {
			missing = UnknownCityMessage
		}
	}
	h.cityResult(w, r, err, CityUpdatedMessage, missing)
}

func (h *AdminHandler) deleteCity(w http.ResponseWriter, r *http.Request) {
	id, _ := parseID(mux.Vars(r)["id"])
	err := h.geo.DeleteCity(r.Context(), id)
	switch {
	case err == nil:
		h.success(w, r, CityDeletedMessage, citiesPath)
	case errors.Is(err, store.ErrNotFound):
		h.failure(w, r, UnknownCityMessage, citiesPath)
	default:
		h.serverError(w, r, err, citiesPath)
	}
}

// cityResult maps the outcome of a city write to a flash and a redirect
func (h *AdminHandler) cityResult(w http.ResponseWriter, r *http.Request, err error, ok, missing string) {
	var invalid *geo.InvalidError
	switch {
	case err == nil:
		h.success(w, r, ok, citiesPath)
	case errors.As(err, &invalid):
		h.failure(w, r, CityNameRequiredMessage, citiesPath)
	case errors.Is(err, store.ErrNotFound):
		h.failure(w, r, missing, citiesPath)
	default:
		h.serverError(w, r, err, citiesPath)
	}
}

func (h *AdminHandler) listCounties(w http.ResponseWriter, r *http.Request) {
	counties, err := h.geo.Counties(r.Context())
	if err != nil {
		h.serverError(w, r, err, "/")
		return
	}
	h.render(w, r, http.StatusOK, view.Counties, "Megyék", view.CountyListData{Counties: counties})
}

func (h *AdminHandler) createCounty(w http.ResponseWriter, r *http.Request) {
	_, err := h.geo.CreateCounty(r.Context(), r.PostFormValue("nev"))
	h.countyResult(w, r, err, CountyCreatedMessage)
}

func (h *AdminHandler) editCountyForm(w http.ResponseWriter, r *http.Request) {
	id, _ := parseID(mux.Vars(r)["id"])
	county, err := h.geo.County(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.failure(w, r, UnknownCountyMessage, countiesPath)
		return
	}
	if err != nil {
		h.serverError(w, r, err, countiesPath)
		return
	}
	h.render(w, r, http.StatusOK, view.CountyEdit, county.Name, view.CountyEditData{County: county})
}

func (h *AdminHandler) updateCounty(w http.ResponseWriter, r *http.Request) {
	id, _ := parseID(mux.Vars(r)["id"])
	err := h.geo.UpdateCounty(r.Context(), model.County{ID: id, Name: r.PostFormValue("nev")})
	h.countyResult(w, r, err, CountyUpdatedMessage)
}

func (h *AdminHandler) deleteCounty(w http.ResponseWriter, r *http.Request) {
	id, _ := parseID(mux.Vars(r)["id"])
	err := h.geo.DeleteCounty(r.Context(), id)
	h.countyResult(w, r, err, CountyDeletedMessage)
}

func (h *AdminHandler) countyResult(w http.ResponseWriter, r *http.Request, err error, ok string) {
	var invalid *geo.InvalidError
	switch {
	case err == nil:
		h.success(w, r, ok, countiesPath)
	case errors.As(err, &invalid):
		h.failure(w, r, CountyNameRequiredMessage, countiesPath)
	case errors.Is(err, store.ErrNotFound):
		h.failure(w, r, UnknownCountyMessage, countiesPath)
	default:
		h.serverError(w, r, err, countiesPath)
	}
}

// populationFrom reads varosid, ev, no and osszes from the query or the
// form. cityID is returned even when the rest fails to parse so the
// caller can redirect back to the city.
func populationFrom(r *http.Request, withCounts bool) (p model.Population, cityID int64, ok bool) {
	cityID, ok = parseID(r.FormValue("varosid"))
	if !ok {
		return p, 0, false
	}
	p.CityID = cityID

	year, err := strconv.Atoi(strings.TrimSpace(r.FormValue("ev")))
	if err != nil {
		return p, cityID, false
	}
	p.Year = year
	if !withCounts {
		return p, cityID, true
	}

	if p.FemaleCount, err = strconv.ParseInt(strings.TrimSpace(r.FormValue("no")), 10, 64); err != nil {
		return p, cityID, false
	}
	if p.TotalCount, err = strconv.ParseInt(strings.TrimSpace(r.FormValue("osszes")), 10, 64); err != nil {
		return p, cityID, false
	}
	return p, cityID, true
}

// populationResult always lands on the city editor, whatever happened
func (h *AdminHandler) populationResult(w http.ResponseWriter, r *http.Request, cityID int64, err error, ok, missing string) {
	to := cityEditPath(cityID)
	var invalid *geo.InvalidError
	switch {
	case err == nil:
		h.success(w, r, ok, to)
	case errors.Is(err, geo.ErrYearRecorded):
		h.failure(w, r, YearRecordedMessage, to)
	case errors.As(err, &invalid):
		h.failure(w, r, InvalidPopulationMessage, to)
	case errors.Is(err, store.ErrNotFound):
		h.failure(w, r, missing, to)
	default:
		h.serverError(w, r, err, to)
	}
}

func (h *AdminHandler) createPopulation(w http.ResponseWriter, r *http.Request) {
	p, cityID, ok := populationFrom(r, true)
	if !ok {
		h.badPopulation(w, r, cityID)
		return
	}
	err := h.geo.CreatePopulation(r.Context(), p)
	h.populationResult(w, r, cityID, err, PopulationCreatedMessage, UnknownCityMessage)
}

func (h *AdminHandler) updatePopulation(w http.ResponseWriter, r *http.Request) {
	p, cityID, ok := populationFrom(r, true)
	if !ok {
		h.badPopulation(w, r, cityID)
		return
	}
	err := h.geo.UpdatePopulation(r.Context(), p)
	h.populationResult(w, r, cityID, err, PopulationUpdatedMessage, UnknownPopulationMessage)
}

func (h *AdminHandler) deletePopulation(w http.ResponseWriter, r *http.Request) {
	p, cityID, ok := populationFrom(r, false)
	if !ok {
		h.badPopulation(w, r, cityID)
		return
	}
	err := h.geo.DeletePopulation(r.Context(), p.CityID, p.Year)
	h.populationResult(w, r, cityID, err, PopulationDeletedMessage, UnknownPopulationMessage)
}

// badPopulation handles unparsable input; without a city id there is no
// editor to return to
func (h *AdminHandler) badPopulation(w http.ResponseWriter, r *http.Request, cityID int64) {
	if cityID == 0 {
		h.failure(w, r, UnknownCityMessage, citiesPath)
		return
	}
	h.failure(w, r, InvalidPopulationMessage, cityEditPath(cityID))
}
