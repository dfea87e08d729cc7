package archive

import (
	"github.com/charmbracelet/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// SQLiteConfig configures the optional SQL-backed archive store (spec §6
// "Archive format": "backend-neutral... the specification does not mandate
// a particular text format"). graphc uses SQLite here for a queryable
// archive of compiled Maps alongside the YAML codec in codec.go.
type SQLiteConfig struct {
	Path   string
	Logger *log.Logger
}

// NewSQLite opens (creating if necessary) the SQLite-backed archive store.
func NewSQLite(cfg SQLiteConfig) (*gorm.DB, error) {
	loggerConfig := gormLogger.Config{
		SlowThreshold:             200000000,
		IgnoreRecordNotFoundError: true,
		LogLevel:                  gormLogger.Info,
	}

	gormLog := gormLogger.New(newGormLogger(cfg.Logger), loggerConfig)

	db, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: gormLog,
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}
