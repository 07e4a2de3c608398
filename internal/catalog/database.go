package catalog

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBConfig selects and addresses the catalog database.
type DBConfig struct {
	Driver   string // sqlite or postgres
	DSN      string // sqlite file, or a full postgres DSN overriding the fields below
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (c DBConfig) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case "", "sqlite":
		dsn := c.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		return sqlite.Open(dsn), nil
	case "postgres":
		dsn := c.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
				c.Host, c.User, c.Password, c.Name, c.Port)
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// Open connects to the catalog database and makes sure the recordings table exists.
func Open(cfg DBConfig) (*gorm.DB, error) {
	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s catalog: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("catalog pool: %w", err)
	}
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Recording{}); err != nil {
		return nil, fmt.Errorf("catalog migration failed: %w", err)
	}
	return db, nil
}
