package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shaibs3/geoadmin/internal/model"
	"github.com/shaibs3/geoadmin/internal/query"
	"github.com/shaibs3/geoadmin/internal/store"
	"go.uber.org/zap"
)

// ErrYearRecorded is returned when a city already has a population row for
// the year
var ErrYearRecorded = errors.New("year already recorded for this city")

// InvalidError reports a rejected input field
type InvalidError struct {
	Field   string
	Message string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Service exposes the geographic dataset to the handlers
type Service struct {
	store  store.GeoStore
	logger *zap.Logger
}

func NewService(geoStore store.GeoStore, logger *zap.Logger) *Service {
	return &Service{store: geoStore, logger: logger.Named("geo")}
}

// Counties lists every county by name
func (s *Service) Counties(ctx context.Context) ([]model.County, error) {
	return s.store.ListCounties(ctx)
}

// County returns one county or store.ErrNotFound
func (s *Service) County(ctx context.Context, id int64) (model.County, error) {
	return s.store.GetCounty(ctx, id)
}

// CreateCounty adds a county
func (s *Service) CreateCounty(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, &InvalidError{Field: "nev", Message: "name is required"}
	}
	return s.store.CreateCounty(ctx, name)
}

// UpdateCounty renames a county
func (s *Service) UpdateCounty(ctx context.Context, county model.County) error {
	county.Name = strings.TrimSpace(county.Name)
	if county.Name == "" {
		return &InvalidError{Field: "nev", Message: "name is required"}
	}
	return s.store.UpdateCounty(ctx, county)
}

// DeleteCounty removes a county; its cities stay, without a county
func (s *Service) DeleteCounty(ctx context.Context, id int64) error {
	if err := s.store.DeleteCounty(ctx, id); err != nil {
		return err
	}
	s.logger.Info("county deleted", zap.Int64("county_id", id))
	return nil
}

// Cities is the administrative city listing
func (s *Service) Cities(ctx context.Context, filter query.Filter) ([]model.CityRow, error) {
	return s.store.ListCities(ctx, filter.Normalize())
}

// City returns one city or store.ErrNotFound
func (s *Service) City(ctx context.Context, id int64) (model.City, error) {
	return s.store.GetCity(ctx, id)
}

// CreateCity adds a city. A county id that does not exist yields
// store.ErrNotFound.
func (s *Service) CreateCity(ctx context.Context, city model.City) (int64, error) {
	if err := validateCity(&city); err != nil {
		return 0, err
	}
	return s.store.CreateCity(ctx, city)
}

// UpdateCity overwrites a city
func (s *Service) UpdateCity(ctx context.Context, city model.City) error {
	if err := validateCity(&city); err != nil {
		return err
	}
	return s.store.UpdateCity(ctx, city)
}

// DeleteCity removes a city together with its population rows
func (s *Service) DeleteCity(ctx context.Context, id int64) error {
	if err := s.store.DeleteCity(ctx, id); err != nil {
		return err
	}
	s.logger.Info("city deleted", zap.Int64("city_id", id))
	return nil
}

// CityNames lists every city name for the filter dropdown
func (s *Service) CityNames(ctx context.Context) ([]string, error) {
	return s.store.CityNames(ctx)
}

// CountyNames lists every county name for the filter dropdown
func (s *Service) CountyNames(ctx context.Context) ([]string, error) {
	return s.store.CountyNames(ctx)
}

// CityNamesInCounty lists the cities of the named county
func (s *Service) CityNamesInCounty(ctx context.Context, county string) ([]string, error) {
	return s.store.CityNamesInCounty(ctx, strings.TrimSpace(county))
}

// CountyOfCity resolves a city's county name ("" if none)
func (s *Service) CountyOfCity(ctx context.Context, city string) (string, error) {
	return s.store.CountyOfCity(ctx, strings.TrimSpace(city))
}

// Report is the public population listing
func (s *Service) Report(ctx context.Context, filter query.Filter) ([]model.ReportRow, error) {
	return s.store.PopulationReport(ctx, filter.Normalize())
}

// CityPopulation lists a city's population rows, newest first
func (s *Service) CityPopulation(ctx context.Context, cityID int64) ([]model.Population, error) {
	return s.store.CityPopulation(ctx, cityID)
}

// CreatePopulation records a new year for a city
func (s *Service) CreatePopulation(ctx context.Context, p model.Population) error {
	if err := validatePopulation(p); err != nil {
		return err
	}
	err := s.store.CreatePopulation(ctx, p)
	if errors.Is(err, store.ErrDuplicateKey) {
		return ErrYearRecorded
	}
	return err
}

// UpdatePopulation changes an existing (city, year) row. A missing row is
// store.ErrNotFound; nothing is inserted.
func (s *Service) UpdatePopulation(ctx context.Context, p model.Population) error {
	if err := validatePopulation(p); err != nil {
		return err
	}
	return s.store.UpdatePopulation(ctx, p)
}

// DeletePopulation removes a (city, year) row if present
func (s *Service) DeletePopulation(ctx context.Context, cityID int64, year int) error {
	return s.store.DeletePopulation(ctx, cityID, year)
}

func validateCity(city *model.City) error {
	city.Name = strings.TrimSpace(city.Name)
	if city.Name == "" {
		return &InvalidError{Field: "nev", Message: "name is required"}
	}
	if city.CountyID != nil && *city.CountyID <= 0 {
		city.CountyID = nil
	}
	return nil
}

func validatePopulation(p model.Population) error {
	switch {
	case p.CityID <= 0:
		return &InvalidError{Field: "varosid", Message: "city is required"}
	case p.Year <= 0:
		return &InvalidError{Field: "ev", Message: "year must be positive"}
	case p.FemaleCount < 0 || p.TotalCount < 0:
		return &InvalidError{Field: "osszes", Message: "counts must not be negative"}
	case p.FemaleCount > p.TotalCount:
		return &InvalidError{Field: "no", Message: "female count exceeds total"}
	}
	return nil
}
