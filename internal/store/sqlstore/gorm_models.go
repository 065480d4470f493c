package sqlstore

import "time"

// GORM models used only to migrate the Postgres schema. Column names
// follow GORM's snake_case naming and match the statements in this
// package.

type GormCounty struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null;index"`
}

func (GormCounty) TableName() string {
	return "counties"
}

type GormCity struct {
	ID              int64       `gorm:"primaryKey"`
	Name            string      `gorm:"not null;index"`
	CountyID        *int64      `gorm:"index"`
	County          *GormCounty `gorm:"foreignKey:CountyID;constraint:OnDelete:SET NULL"`
	IsCountySeat    bool        `gorm:"not null;default:false"`
	HasCountyRights bool        `gorm:"not null;default:false"`
}

func (GormCity) TableName() string {
	return "cities"
}

// GormPopulation has no ON DELETE CASCADE; dependent rows are removed by
// DeleteCity before the city itself.
type GormPopulation struct {
	CityID      int64     `gorm:"primaryKey;autoIncrement:false"`
	City        *GormCity `gorm:"foreignKey:CityID"`
	Year        int       `gorm:"primaryKey;autoIncrement:false"`
	FemaleCount int64     `gorm:"not null"`
	TotalCount  int64     `gorm:"not null"`
}

func (GormPopulation) TableName() string {
	return "populations"
}

type GormUser struct {
	ID           int64  `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:registered"`
}

func (GormUser) TableName() string {
	return "users"
}

type GormMessage struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"not null"`
	Email       string    `gorm:"not null;index"`
	Body        string    `gorm:"type:text;not null"`
	SubmittedAt time.Time `gorm:"not null;index"`
}

func (GormMessage) TableName() string {
	return "messages"
}

func migrationModels() []interface{} {
	return []interface{}{&GormCounty{}, &GormCity{}, &GormPopulation{}, &GormUser{}, &GormMessage{}}
}
