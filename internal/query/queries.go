package query

import (
	"strings"

	"github.com/shaibs3/geoadmin/internal/model"
)

// Filter holds the optional name filters of the listing pages. A blank
// field imposes no constraint.
type Filter struct {
	City   string `json:"varos"`
	County string `json:"megye"`
}

// Normalize trims both fields
func (f Filter) Normalize() Filter {
	return Filter{City: strings.TrimSpace(f.City), County: strings.TrimSpace(f.County)}
}

// IsEmpty reports whether no filter is set
func (f Filter) IsEmpty() bool {
	n := f.Normalize()
	return n.City == "" && n.County == ""
}

// CityListing lists cities for administration. Cities without a county
// are kept, so the county join is a LEFT JOIN.
func CityListing(f Filter) *Builder {
	return Select(
		"c.id", "c.name", "c.county_id", "c.is_county_seat", "c.has_county_rights",
		"COALESCE(co.name, '')",
	).
		From("cities c").
		LeftJoin("counties co", "co.id = c.county_id").
		WhereEq("c.name", f.City).
		WhereEq("co.name", f.County).
		OrderBy("c.name ASC", "c.id ASC")
}

// PopulationReport lists population statistics. Rows without a county
// are excluded (INNER JOIN); cities with no population row remain with
// empty population columns (LEFT JOIN).
func PopulationReport(f Filter) *Builder {
	return Select(
		"c.id", "c.name", "co.name", "c.is_county_seat", "c.has_county_rights",
		"p.year", "p.female_count", "p.total_count",
	).
		From("cities c").
		Join("counties co", "co.id = c.county_id").
		LeftJoin("populations p", "p.city_id = c.id").
		WhereEq("c.name", f.City).
		WhereEq("co.name", f.County).
		OrderBy("c.name ASC", "p.year DESC")
}

// CityPopulation enumerates the existing population rows of one city
func CityPopulation(cityID int64) *Builder {
	return Select("p.city_id", "p.year", "p.female_count", "p.total_count").
		From("populations p").
		Join("cities c", "c.id = p.city_id").
		Where("p.city_id = ?", cityID).
		OrderBy("p.year DESC")
}

// CityNames lists every distinct city name. It takes no filter so the
// selection options stay complete while a filter is applied.
func CityNames() *Builder {
	return Select("c.name").Distinct().From("cities c").OrderBy("c.name ASC")
}

// CountyNames lists every distinct county name
func CountyNames() *Builder {
	return Select("co.name").Distinct().From("counties co").OrderBy("co.name ASC")
}

// CityNamesInCounty lists the names of the cities belonging to the named
// county; a blank county lists every city that has one.
func CityNamesInCounty(county string) *Builder {
	return Select("c.name").Distinct().
		From("cities c").
		Join("counties co", "co.id = c.county_id").
		WhereEq("co.name", county).
		OrderBy("c.name ASC")
}

// CountyOfCity resolves the county name of the named city
func CountyOfCity(city string) *Builder {
	return Select("COALESCE(co.name, '')").
		From("cities c").
		LeftJoin("counties co", "co.id = c.county_id").
		Where("c.name = ?", strings.TrimSpace(city)).
		OrderBy("c.id ASC")
}

// Inbox lists the messages the viewer may read, newest first. An admin
// sees everything except messages sent from the email of another admin
// account; anyone else sees only messages sent from their own email.
func Inbox(viewer model.Principal) *Builder {
	b := Select("m.id", "m.name", "m.email", "m.body", "m.submitted_at").From("messages m")
	if viewer.IsAdmin() {
		b.Where(
			"NOT EXISTS (SELECT 1 FROM users u WHERE u.email = m.email AND u.role = ? AND u.id <> ?)",
			string(model.RoleAdmin), viewer.ID,
		)
	} else {
		b.Where("m.email = ?", viewer.Email)
	}
	return b.OrderBy("m.submitted_at DESC", "m.id DESC")
}
