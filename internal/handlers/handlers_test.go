package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shaibs3/geoadmin/internal/auth"
	"github.com/shaibs3/geoadmin/internal/gate"
	"github.com/shaibs3/geoadmin/internal/geo"
	"github.com/shaibs3/geoadmin/internal/inbox"
	"github.com/shaibs3/geoadmin/internal/model"
	"github.com/shaibs3/geoadmin/internal/query"
	"github.com/shaibs3/geoadmin/internal/router"
	"github.com/shaibs3/geoadmin/internal/session"
	"github.com/shaibs3/geoadmin/internal/store"
	"github.com/shaibs3/geoadmin/internal/store/provider"
	"github.com/shaibs3/geoadmin/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testApp struct {
	handler http.Handler
	store   store.Provider
	geo     *geo.Service
	auth    *auth.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	st, err := provider.NewDbProviderFactory(logger, nil).CreateProvider(ctx, provider.MemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	authService, err := auth.NewService(st, auth.NewBcryptHasher(4), logger)
	require.NoError(t, err)
	require.NoError(t, authService.EnsureAdmin(ctx, "Admin", "admin@example.com", "titok"))
	_, err = authService.Register(ctx, auth.RegisterInput{Name: "Felhasználó", Email: "user@example.com", Password: "jelszo", Confirm: "jelszo"})
	require.NoError(t, err)

	renderer, err := view.New(logger)
	require.NoError(t, err)
	sessions := session.NewManager("handler-test-secret-handler-test", 30*time.Minute, false, logger)
	deps := Deps{Sessions: sessions, View: renderer, Gate: gate.New(sessions, logger)}

	geoService := geo.NewService(st, logger)
	rt := router.NewRouter(nil, nil, logger, []router.Handler{
		NewHomeHandler(deps, st),
		NewAuthHandler(deps, authService),
		NewContactHandler(deps, inbox.NewService(st, logger)),
		NewReportHandler(deps, geoService),
		NewAdminHandler(deps, geoService),
	}, sessions.Middleware)

	return &testApp{handler: rt, store: st, geo: geoService, auth: authService}
}

// client carries cookies between requests like a browser
type client struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) client(t *testing.T) *client {
	return &client{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.app.handler.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.cookies[ck.Name] = ck
	}
	return w
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, target, nil)
}

func (c *client) post(target string, form url.Values) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, target, form)
}

// follow issues a GET to the redirect target and returns the page
func (c *client) follow(w *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	c.t.Helper()
	loc := w.Header().Get("Location")
	require.NotEmpty(c.t, loc, "expected a redirect, got %d", w.Code)
	return c.get(loc)
}

func (c *client) login(email, password string) {
	c.t.Helper()
	w := c.post("/bejelentkezes", url.Values{"email": {email}, "jelszo": {password}})
	require.Equal(c.t, http.StatusSeeOther, w.Code)
	require.Equal(c.t, "/", w.Header().Get("Location"))
}

func TestGatedRoutes_Anonymous(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/admin/varosok", "/admin/megyek", "/admin/varos/szerkeszt/1", "/uzenetek"} {
		t.Run(target, func(t *testing.T) {
			c := app.client(t)
			w := c.get(target)
			require.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, gate.LoginPath, w.Header().Get("Location"))
			assert.Contains(t, c.follow(w).Body.String(), gate.LoginRequiredMessage)
		})
	}
}

func TestGatedRoutes_AnonymousWritesHaveNoEffect(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	w := c.post("/admin/varos/uj", url.Values{"nev": {"Kaposvár"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, gate.LoginPath, w.Header().Get("Location"))

	w = c.post("/admin/megye/uj", url.Values{"nev": {"Somogy"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	cities, err := app.geo.Cities(context.Background(), query.Filter{})
	require.NoError(t, err)
	assert.Empty(t, cities)
	counties, err := app.geo.Counties(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counties)
}

func TestGatedRoutes_RegisteredUserSentHome(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	c.login("user@example.com", "jelszo")

	w := c.get("/admin/varosok")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, gate.HomePath, w.Header().Get("Location"))
	assert.Contains(t, c.follow(w).Body.String(), gate.AdminRequiredMessage)

	w = c.get("/uzenetek")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	app := newTestApp(t)

	wrong := app.client(t).post("/bejelentkezes", url.Values{"email": {"user@example.com"}, "jelszo": {"rossz"}})
	unknown := app.client(t).post("/bejelentkezes", url.Values{"email": {"nincs@example.com"}, "jelszo": {"rossz"}})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Contains(t, wrong.Body.String(), InvalidCredentialsMessage)
	assert.Contains(t, unknown.Body.String(), InvalidCredentialsMessage)
}

func TestLoginLogout(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	c.login("ADMIN@example.com", "titok")

	home := c.get("/")
	assert.Contains(t, home.Body.String(), LoggedInMessage)
	assert.Contains(t, home.Body.String(), `href="/admin/varosok"`)

	w := c.get("/kijelentkezes")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, c.follow(w).Body.String(), LoggedOutMessage)

	w = c.get("/admin/varosok")
	assert.Equal(t, gate.LoginPath, w.Header().Get("Location"))
}

func TestRegister(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)

	w := c.post("/regisztracio", url.Values{"nev": {"Új"}, "email": {"uj@example.com"}, "jelszo": {"a"}, "jelszo_megerosit": {"b"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), PasswordMismatchMessage)

	form := url.Values{"nev": {"Új"}, "email": {"uj@example.com"}, "jelszo": {"a"}, "jelszo_megerosit": {"a"}}
	w = c.post("/regisztracio", form)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/bejelentkezes", w.Header().Get("Location"))
	assert.Contains(t, c.follow(w).Body.String(), RegisteredMessage)

	w = c.post("/regisztracio", form)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), EmailTakenMessage)

	_, err := app.store.FindUserByEmail(context.Background(), "uj@example.com")
	require.NoError(t, err)
}

func TestContactAndInboxVisibility(t *testing.T) {
	app := newTestApp(t)

	guest := app.client(t)
	w := guest.post("/kapcsolat", url.Values{"nev": {"Vendég"}, "email": {"guest@example.com"}, "uzenet": {"vendég üzenet"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, guest.follow(w).Body.String(), MessageSentMessage)

	w = guest.post("/kapcsolat", url.Values{"nev": {"Vendég"}, "email": {""}, "uzenet": {"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), RequiredFieldsMessage)

	user := app.client(t)
	user.login("user@example.com", "jelszo")
	w = user.post("/kapcsolat", url.Values{"nev": {"Felhasználó"}, "email": {"user@example.com"}, "uzenet": {"saját üzenet"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	page := user.get("/uzenetek").Body.String()
	assert.Contains(t, page, "saját üzenet")
	assert.NotContains(t, page, "vendég üzenet")

	admin := app.client(t)
	admin.login("admin@example.com", "titok")
	page = admin.get("/uzenetek").Body.String()
	assert.Contains(t, page, "saját üzenet")
	assert.Contains(t, page, "vendég üzenet")
}

func TestAdminCityAndPopulationFlow(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	c := app.client(t)
	c.login("admin@example.com", "titok")

	w := c.post("/admin/megye/uj", url.Values{"nev": {"Baranya"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, countiesPath, w.Header().Get("Location"))
	counties, err := app.geo.Counties(ctx)
	require.NoError(t, err)
	require.Len(t, counties, 1)
	countyID := counties[0].ID

	w = c.post("/admin/varos/uj", url.Values{"nev": {"Pécs"}, "megyeid": {itoa(countyID)}, "megyeszekhely": {"1"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Contains(t, c.follow(w).Body.String(), CityCreatedMessage)

	w = c.post("/admin/varos/uj", url.Values{"nev": {"Sehol"}, "megyeid": {"999"}})
	assert.Contains(t, c.follow(w).Body.String(), UnknownCountyMessage)

	cities, err := app.geo.Cities(ctx, query.Filter{City: "Pécs"})
	require.NoError(t, err)
	require.Len(t, cities, 1)
	cityID := cities[0].ID
	assert.True(t, cities[0].IsCountySeat)
	edit := cityEditPath(cityID)

	pop := url.Values{"varosid": {itoa(cityID)}, "ev": {"2022"}, "no": {"75000"}, "osszes": {"140000"}}
	w = c.post("/admin/lelekszam/uj", pop)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, edit, w.Header().Get("Location"))
	page := c.follow(w).Body.String()
	assert.Contains(t, page, PopulationCreatedMessage)
	assert.Contains(t, page, `value="140000"`)

	dup := url.Values{"varosid": {itoa(cityID)}, "ev": {"2022"}, "no": {"1"}, "osszes": {"1"}}
	w = c.post("/admin/lelekszam/uj", dup)
	assert.Equal(t, edit, w.Header().Get("Location"))
	assert.Contains(t, c.follow(w).Body.String(), YearRecordedMessage)
	rows, err := app.geo.CityPopulation(ctx, cityID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(140000), rows[0].TotalCount, "original row unchanged")

	missing := url.Values{"varosid": {itoa(cityID)}, "ev": {"1990"}, "no": {"1"}, "osszes": {"2"}}
	w = c.post("/admin/lelekszam/szerkeszt", missing)
	assert.Equal(t, edit, w.Header().Get("Location"))
	assert.Contains(t, c.follow(w).Body.String(), UnknownPopulationMessage)
	rows, err = app.geo.CityPopulation(ctx, cityID)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "update never inserts")

	w = c.post("/admin/lelekszam/szerkeszt", url.Values{"varosid": {itoa(cityID)}, "ev": {"2022"}, "no": {"80000"}, "osszes": {"150000"}})
	assert.Contains(t, c.follow(w).Body.String(), PopulationUpdatedMessage)

	w = c.post("/admin/lelekszam/uj", url.Values{"varosid": {itoa(cityID)}, "ev": {"abc"}})
	assert.Equal(t, edit, w.Header().Get("Location"))
	assert.Contains(t, c.follow(w).Body.String(), InvalidPopulationMessage)

	w = c.get("/admin/lelekszam/torles?varosid=" + itoa(cityID) + "&ev=1990")
	assert.Equal(t, edit, w.Header().Get("Location"))
	assert.Contains(t, c.follow(w).Body.String(), PopulationDeletedMessage, "deleting a missing row is not an error")

	w = c.get("/admin/varos/torles/" + itoa(cityID))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, c.follow(w).Body.String(), CityDeletedMessage)
	rows, err = app.geo.CityPopulation(ctx, cityID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	w = c.get(edit)
	assert.Equal(t, citiesPath, w.Header().Get("Location"))
	assert.Contains(t, c.follow(w).Body.String(), UnknownCityMessage)
}

func TestAdminCityListFilterKeepsDropdowns(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	baranya, err := app.geo.CreateCounty(ctx, "Baranya")
	require.NoError(t, err)
	_, err = app.geo.CreateCity(ctx, model.City{Name: "Pécs", CountyID: &baranya})
	require.NoError(t, err)
	_, err = app.geo.CreateCity(ctx, model.City{Name: "Árva"})
	require.NoError(t, err)

	c := app.client(t)
	c.login("admin@example.com", "titok")

	page := c.get("/admin/varosok?varos=P%C3%A9cs").Body.String()
	assert.Contains(t, page, `<option value="Árva">Árva</option>`, "dropdown lists unfiltered names")
	assert.NotContains(t, page, "<td>Árva</td>")
	assert.Contains(t, page, "<td>Pécs</td>")

	page = c.get("/admin/varosok").Body.String()
	assert.Contains(t, page, "<td>Árva</td>", "cities without a county are listed")
}

func TestCountyEditAndDelete(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	id, err := app.geo.CreateCounty(ctx, "Tolna")
	require.NoError(t, err)
	cityID, err := app.geo.CreateCity(ctx, model.City{Name: "Szekszárd", CountyID: &id})
	require.NoError(t, err)

	c := app.client(t)
	c.login("admin@example.com", "titok")

	assert.Contains(t, c.get("/admin/megye/szerkeszt/"+itoa(id)).Body.String(), `value="Tolna"`)

	w := c.post("/admin/megye/szerkeszt/"+itoa(id), url.Values{"nev": {""}})
	assert.Contains(t, c.follow(w).Body.String(), CountyNameRequiredMessage)

	w = c.post("/admin/megye/szerkeszt/"+itoa(id), url.Values{"nev": {"Tolna vármegye"}})
	assert.Contains(t, c.follow(w).Body.String(), CountyUpdatedMessage)

	w = c.get("/admin/megye/torles/" + itoa(id))
	assert.Contains(t, c.follow(w).Body.String(), CountyDeletedMessage)

	city, err := app.geo.City(ctx, cityID)
	require.NoError(t, err)
	assert.Nil(t, city.CountyID)
}

func TestPublicReportAndAPI(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	baranya, err := app.geo.CreateCounty(ctx, "Baranya")
	require.NoError(t, err)
	pecs, err := app.geo.CreateCity(ctx, model.City{Name: "Pécs", CountyID: &baranya})
	require.NoError(t, err)
	_, err = app.geo.CreateCity(ctx, model.City{Name: "Mohács", CountyID: &baranya})
	require.NoError(t, err)
	_, err = app.geo.CreateCity(ctx, model.City{Name: "Árva"})
	require.NoError(t, err)
	require.NoError(t, app.geo.CreatePopulation(ctx, model.Population{CityID: pecs, Year: 2022, FemaleCount: 1, TotalCount: 2}))

	c := app.client(t)
	page := c.get("/adatbazis-lista").Body.String()
	assert.Contains(t, page, "<td>Mohács</td>", "cities without population rows remain")
	assert.NotContains(t, page, "<td>Árva</td>", "cities without a county are excluded")

	w := c.get("/api/varosok-by-megye?megye=Baranya")
	require.Equal(t, http.StatusOK, w.Code)
	var names []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
	assert.Equal(t, []string{"Mohács", "Pécs"}, names)

	w = c.get("/api/varosok-by-megye?megye=Nincs")
	assert.JSONEq(t, `[]`, w.Body.String())

	w = c.get("/api/megye-by-varos?varos=P%C3%A9cs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"megye":"Baranya"}`, w.Body.String())

	w = c.get("/api/megye-by-varos?varos=%C3%81rva")
	assert.JSONEq(t, `{"megye":""}`, w.Body.String())

	w = c.get("/api/megye-by-varos")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "varos is required", body.Message)
}

func TestStoreFailureRedirectsWithServerError(t *testing.T) {
	app := newTestApp(t)
	c := app.client(t)
	require.Equal(t, http.StatusOK, c.get("/health").Code)

	require.NoError(t, app.store.Close())

	w := c.get("/adatbazis-lista")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Contains(t, c.follow(w).Body.String(), ServerErrorMessage)

	w = c.get("/api/varosok-by-megye?megye=Baranya")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusServiceUnavailable, c.get("/health").Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestAdminRejectsCrossSiteRequests(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	cityID, err := app.geo.CreateCity(ctx, model.City{Name: "Szeged"})
	require.NoError(t, err)
	require.NoError(t, app.geo.CreatePopulation(ctx, model.Population{CityID: cityID, Year: 2022, FemaleCount: 1, TotalCount: 2}))

	c := app.client(t)
	c.login("admin@example.com", "titok")

	send := func(target, header, value string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set(header, value)
		for _, ck := range c.cookies {
			req.AddCookie(ck)
		}
		w := httptest.NewRecorder()
		app.handler.ServeHTTP(w, req)
		return w
	}

	cityPath := "/admin/varos/torles/" + itoa(cityID)
	popPath := "/admin/lelekszam/torles?varosid=" + itoa(cityID) + "&ev=2022"
	assert.Equal(t, http.StatusForbidden, send(popPath, "Sec-Fetch-Site", "cross-site").Code)
	assert.Equal(t, http.StatusForbidden, send(cityPath, "Sec-Fetch-Site", "same-site").Code)
	assert.Equal(t, http.StatusForbidden, send(cityPath, "Origin", "https://evil.example").Code)

	_, err = app.geo.City(ctx, cityID)
	require.NoError(t, err, "city survives cross-site deletes")
	rows, err := app.geo.CityPopulation(ctx, cityID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	w := send(cityPath, "Sec-Fetch-Site", "same-origin")
	require.Equal(t, http.StatusFound, w.Code)
	_, err = app.geo.City(ctx, cityID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
