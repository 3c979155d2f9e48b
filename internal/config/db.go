package config

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/baechuer/marketplace-auth/internal/domain"
	"github.com/baechuer/marketplace-auth/internal/logger"
)

const dbPingTimeout = 3 * time.Second

// The users table sees short point queries only; a small pool is plenty.
const (
	dbMaxOpenConns    = 20
	dbMaxIdleConns    = 10
	dbConnMaxIdleTime = 5 * time.Minute
	dbConnMaxLifetime = time.Hour
)

// NewDB opens the Postgres pool through the pgx stdlib driver and pings it.
// Connectivity failures are reported as db_unavailable.
func NewDB(dsn string, debug bool) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("empty DB_ADDR")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxIdleTime(dbConnMaxIdleTime)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.ErrDBUnavailable(err)
	}

	if debug {
		var who, dbname string
		_ = db.QueryRowContext(ctx, "SELECT current_user, current_database()").Scan(&who, &dbname)
		logger.Logger.Debug().Str("user", who).Str("db", dbname).Msg("db_connected")
	}

	return db, nil
}
