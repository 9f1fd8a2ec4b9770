package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	cgosqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
	// TypeSQLite is the pure-Go driver; TypeSQLite3 links the cgo driver.
	TypeSQLite  = "sqlite"
	TypeSQLite3 = "sqlite3"
)

func Dialect(cfg Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case TypeMySQL:
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)), nil
	case TypePostgres, "":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.Port,
			cfg.SSLMode,
		)), nil
	case TypeSQLite:
		return sqlite.Open(sqliteDSN(cfg.Path, "_pragma=foreign_keys(1)")), nil
	case TypeSQLite3:
		return cgosqlite.Open(sqliteDSN(cfg.Path, "_foreign_keys=on")), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.Type)
	}
}

// IsSQLite reports whether the configured type uses one of the sqlite drivers.
func IsSQLite(dbType string) bool {
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case TypeSQLite, TypeSQLite3:
		return true
	}
	return false
}

// sqliteDSN appends the driver-specific foreign key switch unless the path carries its own query.
func sqliteDSN(path, foreignKeys string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "invoicenexus.db"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?" + foreignKeys
}
