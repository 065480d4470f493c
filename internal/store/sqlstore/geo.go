package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shaibs3/geoadmin/internal/model"
	"github.com/shaibs3/geoadmin/internal/query"
	"github.com/shaibs3/geoadmin/internal/store"
)

// ListCounties returns every county ordered by name
func (s *Store) ListCounties(ctx context.Context) ([]model.County, error) {
	var counties []model.County
	err := s.read(ctx, "list_counties", func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM counties ORDER BY name ASC, id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		counties = []model.County{}
		for rows.Next() {
			var c model.County
			if err := rows.Scan(&c.ID, &c.Name); err != nil {
				return err
			}
			counties = append(counties, c)
		}
		return rows.Err()
	})
	return counties, err
}

// GetCounty returns the county with the given id
func (s *Store) GetCounty(ctx context.Context, id int64) (model.County, error) {
	var c model.County
	err := s.read(ctx, "get_county", func() error {
		return s.db.QueryRowContext(ctx, s.rebind(`SELECT id, name FROM counties WHERE id = ?`), id).
			Scan(&c.ID, &c.Name)
	})
	return c, err
}

// CreateCounty inserts a county and returns its id
func (s *Store) CreateCounty(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.write(ctx, "create_county", func() error {
		return s.db.QueryRowContext(ctx, s.rebind(`INSERT INTO counties (name) VALUES (?) RETURNING id`), name).
			Scan(&id)
	})
	return id, err
}

// UpdateCounty renames a county
func (s *Store) UpdateCounty(ctx context.Context, county model.County) error {
	return s.write(ctx, "update_county", func() error {
		res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE counties SET name = ? WHERE id = ?`), county.Name, county.ID)
		return requireAffected(res, err)
	})
}

// DeleteCounty detaches the county's cities and deletes the county in one
// transaction
func (s *Store) DeleteCounty(ctx context.Context, id int64) error {
	return s.write(ctx, "delete_county", func() error {
		return s.tx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE cities SET county_id = NULL WHERE county_id = ?`), id); err != nil {
				return fmt.Errorf("failed to detach cities: %w", err)
			}
			res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM counties WHERE id = ?`), id)
			return requireAffected(res, err)
		})
	})
}

// ListCities returns the administrative city listing for filter
func (s *Store) ListCities(ctx context.Context, filter query.Filter) ([]model.CityRow, error) {
	sqlText, args := query.CityListing(filter).Build(s.format)

	var cities []model.CityRow
	err := s.read(ctx, "list_cities", func() error {
		rows, err := s.db.QueryContext(ctx, sqlText, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		cities = []model.CityRow{}
		for rows.Next() {
			var (
				row      model.CityRow
				countyID sql.NullInt64
			)
			if err := rows.Scan(&row.ID, &row.Name, &countyID, &row.IsCountySeat, &row.HasCountyRights, &row.CountyName); err != nil {
				return err
			}
			row.CountyID = nullableID(countyID)
			cities = append(cities, row)
		}
		return rows.Err()
	})
	return cities, err
}

// GetCity returns the city with the given id
func (s *Store) GetCity(ctx context.Context, id int64) (model.City, error) {
	var (
		c        model.City
		countyID sql.NullInt64
	)
	err := s.read(ctx, "get_city", func() error {
		return s.db.QueryRowContext(ctx, s.rebind(`
			SELECT id, name, county_id, is_county_seat, has_county_rights
			FROM cities WHERE id = ?`), id).
			Scan(&c.ID, &c.Name, &countyID, &c.IsCountySeat, &c.HasCountyRights)
	})
	c.CountyID = nullableID(countyID)
	return c, err
}

// CreateCity inserts a city and returns its id
func (s *Store) CreateCity(ctx context.Context, city model.City) (int64, error) {
	var id int64
	err := s.write(ctx, "create_city", func() error {
		return s.db.QueryRowContext(ctx, s.rebind(`
			INSERT INTO cities (name, county_id, is_county_seat, has_county_rights)
			VALUES (?, ?, ?, ?) RETURNING id`),
			city.Name, nullInt(city.CountyID), city.IsCountySeat, city.HasCountyRights).
			Scan(&id)
	})
	return id, err
}

// UpdateCity overwrites a city's fields
func (s *Store) UpdateCity(ctx context.Context, city model.City) error {
	return s.write(ctx, "update_city", func() error {
		res, err := s.db.ExecContext(ctx, s.rebind(`
			UPDATE cities SET name = ?, county_id = ?, is_county_seat = ?, has_county_rights = ?
			WHERE id = ?`),
			city.Name, nullInt(city.CountyID), city.IsCountySeat, city.HasCountyRights, city.ID)
		return requireAffected(res, err)
	})
}

// DeleteCity deletes the city's population rows and then the city, in one
// transaction. A failure of either statement leaves both tables untouched.
func (s *Store) DeleteCity(ctx context.Context, id int64) error {
	return s.write(ctx, "delete_city", func() error {
		return s.tx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM populations WHERE city_id = ?`), id); err != nil {
				return fmt.Errorf("failed to delete population rows: %w", err)
			}
			res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM cities WHERE id = ?`), id)
			return requireAffected(res, err)
		})
	})
}

// CityNames returns every distinct city name
func (s *Store) CityNames(ctx context.Context) ([]string, error) {
	return s.names(ctx, "city_names", query.CityNames())
}

// CountyNames returns every distinct county name
func (s *Store) CountyNames(ctx context.Context) ([]string, error) {
	return s.names(ctx, "county_names", query.CountyNames())
}

// CityNamesInCounty returns the city names of the named county
func (s *Store) CityNamesInCounty(ctx context.Context, county string) ([]string, error) {
	return s.names(ctx, "city_names_in_county", query.CityNamesInCounty(county))
}

// CountyOfCity returns the county name of the named city, or "" when the
// city is unknown or has no county
func (s *Store) CountyOfCity(ctx context.Context, city string) (string, error) {
	sqlText, args := query.CountyOfCity(city).Build(s.format)

	var county string
	err := s.read(ctx, "county_of_city", func() error {
		err := s.db.QueryRowContext(ctx, sqlText, args...).Scan(&county)
		if err == sql.ErrNoRows {
			county = ""
			return nil
		}
		return err
	})
	return county, err
}

func (s *Store) names(ctx context.Context, op string, b *query.Builder) ([]string, error) {
	sqlText, args := b.Build(s.format)

	var names []string
	err := s.read(ctx, op, func() error {
		rows, err := s.db.QueryContext(ctx, sqlText, args...)
		if err != nil {
			return err
		}
		names, err = scanStrings(rows)
		return err
	})
	return names, err
}

// PopulationReport returns the public population listing for filter
func (s *Store) PopulationReport(ctx context.Context, filter query.Filter) ([]model.ReportRow, error) {
	sqlText, args := query.PopulationReport(filter).Build(s.format)

	var report []model.ReportRow
	err := s.read(ctx, "population_report", func() error {
		rows, err := s.db.QueryContext(ctx, sqlText, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		report = []model.ReportRow{}
		for rows.Next() {
			var (
				row                  model.ReportRow
				year, female, totals sql.NullInt64
			)
			if err := rows.Scan(&row.CityID, &row.CityName, &row.CountyName, &row.IsCountySeat, &row.HasCountyRights,
				&year, &female, &totals); err != nil {
				return err
			}
			if year.Valid {
				y := int(year.Int64)
				row.Year = &y
			}
			if female.Valid {
				row.FemaleCount = &female.Int64
			}
			if totals.Valid {
				row.TotalCount = &totals.Int64
			}
			report = append(report, row)
		}
		return rows.Err()
	})
	return report, err
}

// CityPopulation returns the population rows of one city, newest first
func (s *Store) CityPopulation(ctx context.Context, cityID int64) ([]model.Population, error) {
	sqlText, args := query.CityPopulation(cityID).Build(s.format)

	var out []model.Population
	err := s.read(ctx, "city_population", func() error {
		rows, err := s.db.QueryContext(ctx, sqlText, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = []model.Population{}
		for rows.Next() {
			var p model.Population
			if err := rows.Scan(&p.CityID, &p.Year, &p.FemaleCount, &p.TotalCount); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

// CreatePopulation inserts a population row. A second row for the same
// (city, year) fails with store.ErrDuplicateKey.
func (s *Store) CreatePopulation(ctx context.Context, p model.Population) error {
	return s.write(ctx, "create_population", func() error {
		_, err := s.db.ExecContext(ctx, s.rebind(`
			INSERT INTO populations (city_id, year, female_count, total_count)
			VALUES (?, ?, ?, ?)`),
			p.CityID, p.Year, p.FemaleCount, p.TotalCount)
		return err
	})
}

// UpdatePopulation changes the counts of an existing (city, year) row and
// never inserts one
func (s *Store) UpdatePopulation(ctx context.Context, p model.Population) error {
	return s.write(ctx, "update_population", func() error {
		res, err := s.db.ExecContext(ctx, s.rebind(`
			UPDATE populations SET female_count = ?, total_count = ?
			WHERE city_id = ? AND year = ?`),
			p.FemaleCount, p.TotalCount, p.CityID, p.Year)
		return requireAffected(res, err)
	})
}

// DeletePopulation removes a (city, year) row; a missing row is not an error
func (s *Store) DeletePopulation(ctx context.Context, cityID int64, year int) error {
	return s.write(ctx, "delete_population", func() error {
		_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM populations WHERE city_id = ? AND year = ?`), cityID, year)
		return err
	})
}

func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
