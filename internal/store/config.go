package store

// DbType names a provider implementation
type DbType string

const (
	DbTypePostgres DbType = "postgres"
	DbTypeSQLite   DbType = "sqlite"
	DbTypeMemory   DbType = "memory"
)

// String returns the string representation of the DbType
func (d DbType) String() string {
	return string(d)
}

// IsValid checks if the DbType is supported
func (d DbType) IsValid() bool {
	switch d {
	case DbTypePostgres, DbTypeSQLite, DbTypeMemory:
		return true
	}
	return false
}

// DbProviderConfig is the JSON configuration of a provider
type DbProviderConfig struct {
	DbType       DbType                 `json:"db_type"`
	ExtraDetails map[string]interface{} `json:"extra_details"`
}

// String returns an extra detail as a string, or "" when absent
func (c DbProviderConfig) String(key string) string {
	v, _ := c.ExtraDetails[key].(string)
	return v
}
