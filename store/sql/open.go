package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// OpenConfig carries the connection settings the persistence client needs.
// It satisfies the go-persistence-bun config contract.
type OpenConfig struct {
	DSN            string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string

	driver string
}

func (c OpenConfig) GetDebug() bool {
	return c.Debug
}

func (c OpenConfig) GetDriver() string {
	return c.driver
}

func (c OpenConfig) GetServer() string {
	return c.DSN
}

func (c OpenConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c OpenConfig) GetOtelIdentifier() string {
	if strings.TrimSpace(c.OtelIdentifier) == "" {
		return "go-onboard"
	}
	return c.OtelIdentifier
}

// OpenPostgres opens a postgres-backed persistence client ready for
// migration registration and store building.
func OpenPostgres(cfg OpenConfig) (*persistence.Client, error) {
	return open(cfg, "postgres")
}

// OpenSQLite opens a sqlite-backed persistence client. A shared-cache
// memory DSN gives tests an isolated throwaway database.
func OpenSQLite(cfg OpenConfig) (*persistence.Client, error) {
	return open(cfg, "sqlite3")
}

func open(cfg OpenConfig, driver string) (*persistence.Client, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlstore: a dsn is required")
	}
	cfg.driver = driver

	sqlDB, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s database: %w", driver, err)
	}

	switch driver {
	case "sqlite3":
		// Shared in-memory databases vanish once every connection closes.
		sqlDB.SetMaxOpenConns(1)
		client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return client, nil
	case "postgres":
		client, err := persistence.New(cfg, sqlDB, pgdialect.New())
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return client, nil
	default:
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}
}
