// Package db opens the SQL database and keeps its schema up to date
package db

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"mediband/api/config"
	"mediband/api/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func New(c config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch c.Driver {
	case "sqlite":
		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if runningInDocker() && !inMemory(c.DSN) {
			path := sqlitePath(c.DSN)
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to %s", path)
			}
		}

		dialector = sqlite.Open(c.DSN)
	case "postgres":
		dialector = postgres.Open(c.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database, %w", c.Driver, err)
	}

	// A second connection to an in-memory database would see an empty schema
	if c.Driver == "sqlite" && inMemory(c.DSN) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}

		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(model.User{}, model.MedicalRecord{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}

func inMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// sqlitePath strips the URI scheme and query parameters a sqlite DSN may
// carry, leaving the file path.
func sqlitePath(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "file:")
	path, _, _ := strings.Cut(dsn, "?")
	return path
}

func runningInDocker() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}
