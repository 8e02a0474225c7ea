package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open creates a new SQLite connection pool. WAL mode with a busy
// timeout keeps writers serialized without spurious SQLITE_BUSY
// failures; foreign keys guard the order/product/claim relations.
//
// Transactions begin with BEGIN IMMEDIATE (_txlock=immediate): the
// write lock is taken at BEGIN rather than at the first write, so a
// unit of work that reads claim state and then inserts cannot run on a
// stale snapshot. The second of two racing claim transactions blocks
// at BEGIN, starts after the first commits, and observes the committed
// claim instead of failing the lock upgrade.
func Open(cfg Config, logger *zap.Logger) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", cfg.Path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established", zap.String("path", cfg.Path))
	return db, nil
}
