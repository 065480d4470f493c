package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/shaibs3/geoadmin/internal/model"
	"github.com/shaibs3/geoadmin/internal/query"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Page names
const (
	Home       = "index"
	Register   = "regisztracio"
	Login      = "bejelentkezes"
	Contact    = "kapcsolat"
	Messages   = "uzenetek"
	Report     = "adatbazis-lista"
	Cities     = "admin-varosok"
	CityEdit   = "admin-varos-szerkeszt"
	Counties   = "admin-megyek"
	CountyEdit = "admin-megye-szerkeszt"
)

var pageNames = []string{Home, Register, Login, Contact, Messages, Report, Cities, CityEdit, Counties, CountyEdit}

// Page is what every template receives
type Page struct {
	Title     string
	User      model.Principal
	Errors    []string
	Successes []string
	Data      any
}

// FormData echoes submitted form values back into a form
type FormData struct {
	Name  string
	Email string
	Body  string
}

// ReportData feeds the public population report
type ReportData struct {
	Rows        []model.ReportRow
	CityNames   []string
	CountyNames []string
	Filter      query.Filter
}

// CityListData feeds the admin city listing
type CityListData struct {
	Cities      []model.CityRow
	Counties    []model.County
	CityNames   []string
	CountyNames []string
	Filter      query.Filter
}

// CityEditData feeds the city editor with its population rows
type CityEditData struct {
	City        model.City
	Counties    []model.County
	Populations []model.Population
}

type CountyListData struct {
	Counties []model.County
}

type CountyEditData struct {
	County model.County
}

type MessagesData struct {
	Messages []model.Message
}

// Renderer executes the embedded page templates inside the shared layout
type Renderer struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

func New(logger *zap.Logger) (*Renderer, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templatesFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse page %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, logger: logger.Named("view")}, nil
}

// Render writes page name with the given status. The page is rendered
// into a buffer first so a template failure still produces a clean 500.
func (v *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) {
	t, ok := v.pages[name]
	if !ok {
		v.logger.Error("unknown page", zap.String("page", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		v.logger.Error("failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		v.logger.Debug("failed to write page", zap.Error(err))
	}
}

var funcs = template.FuncMap{
	"opt":      optional,
	"inCounty": inCounty,
}

// optional prints a nullable number, or nothing
func optional(v any) string {
	switch n := v.(type) {
	case *int:
		if n != nil {
			return strconv.Itoa(*n)
		}
	case *int64:
		if n != nil {
			return strconv.FormatInt(*n, 10)
		}
	}
	return ""
}

func inCounty(countyID *int64, id int64) bool {
	return countyID != nil && *countyID == id
}
