package model

import "time"

// Role is the privilege level of an account
type Role string

const (
	RoleRegistered Role = "registered"
	RoleAdmin      Role = "admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleRegistered || r == RoleAdmin
}

// County is a top-level administrative region
type County struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// City is a populated place, optionally assigned to a county
type City struct {
	ID              int64  `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	CountyID        *int64 `db:"county_id" json:"county_id,omitempty"`
	IsCountySeat    bool   `db:"is_county_seat" json:"is_county_seat"`
	HasCountyRights bool   `db:"has_county_rights" json:"has_county_rights"`
}

// CityRow is a city joined with its (optional) county
type CityRow struct {
	City
	CountyName string `db:"county_name" json:"county_name"`
}

// Population is one city's recorded population for one year
type Population struct {
	CityID      int64 `db:"city_id" json:"city_id"`
	Year        int   `db:"year" json:"year"`
	FemaleCount int64 `db:"female_count" json:"female_count"`
	TotalCount  int64 `db:"total_count" json:"total_count"`
}

// ReportRow is a line of the public population report. Population fields
// are nil for cities that have no population record.
type ReportRow struct {
	CityID          int64  `json:"city_id"`
	CityName        string `json:"city_name"`
	CountyName      string `json:"county_name"`
	IsCountySeat    bool   `json:"is_county_seat"`
	HasCountyRights bool   `json:"has_county_rights"`
	Year            *int   `json:"year,omitempty"`
	FemaleCount     *int64 `json:"female_count,omitempty"`
	TotalCount      *int64 `json:"total_count,omitempty"`
}

// User is a stored account
type User struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
	Role         Role   `db:"role" json:"role"`
}

// Principal is the session-worthy projection of a User
type Principal struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsZero reports whether p carries no user
func (p Principal) IsZero() bool {
	return p.ID == 0 && p.Email == ""
}

// IsAdmin reports whether p is an administrator
func (p Principal) IsAdmin() bool {
	return !p.IsZero() && p.Role == RoleAdmin
}

// Principal projects u without its password hash
func (u User) Principal() Principal {
	return Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Message is a contact form submission
type Message struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	Body        string    `db:"body" json:"body"`
	SubmittedAt time.Time `db:"submitted_at" json:"submitted_at"`
}
