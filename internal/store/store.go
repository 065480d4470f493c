package store

import (
	"context"

	"github.com/shaibs3/geoadmin/internal/model"
	"github.com/shaibs3/geoadmin/internal/query"
)

// GeoStore persists counties, cities and population records
type GeoStore interface {
	ListCounties(ctx context.Context) ([]model.County, error)
	GetCounty(ctx context.Context, id int64) (model.County, error)
	CreateCounty(ctx context.Context, name string) (int64, error)
	UpdateCounty(ctx context.Context, county model.County) error
	// DeleteCounty detaches the county's cities and removes the county.
	DeleteCounty(ctx context.Context, id int64) error

	ListCities(ctx context.Context, filter query.Filter) ([]model.CityRow, error)
	GetCity(ctx context.Context, id int64) (model.City, error)
	CreateCity(ctx context.Context, city model.City) (int64, error)
	UpdateCity(ctx context.Context, city model.City) error
	// DeleteCity removes the city's population rows, then the city.
	DeleteCity(ctx context.Context, id int64) error

	CityNames(ctx context.Context) ([]string, error)
	CountyNames(ctx context.Context) ([]string, error)
	CityNamesInCounty(ctx context.Context, county string) ([]string, error)
	CountyOfCity(ctx context.Context, city string) (string, error)

	PopulationReport(ctx context.Context, filter query.Filter) ([]model.ReportRow, error)
	CityPopulation(ctx context.Context, cityID int64) ([]model.Population, error)
	CreatePopulation(ctx context.Context, p model.Population) error
	UpdatePopulation(ctx context.Context, p model.Population) error
	DeletePopulation(ctx context.Context, cityID int64, year int) error
}

// UserStore persists accounts
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	CreateUser(ctx context.Context, user model.User) (int64, error)
}

// MessageStore persists contact messages
type MessageStore interface {
	CreateMessage(ctx context.Context, msg model.Message) (int64, error)
	ListMessages(ctx context.Context, viewer model.Principal) ([]model.Message, error)
}

// Provider is a complete backing store
type Provider interface {
	GeoStore
	UserStore
	MessageStore
	Ping(ctx context.Context) error
	Close() error
}
