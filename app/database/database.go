// Package database opens the postgres connection and applies schema migrations.
package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/go-extras/go-kit/must"
	_ "github.com/lib/pq" // database/sql driver behind ptah's postgres connection
	"github.com/stokaro/ptah/dbschema"
	"github.com/stokaro/ptah/migration/migrator"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Open connects gorm to postgres. Driver errors are translated so unique
// violations surface as gorm.ErrDuplicatedKey.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connection successful")
	return db, nil
}

// Close releases the connection pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// MigrationFS returns the embedded migrations rooted at their directory,
// named NNNNNNNNNN_description.{up,down}.sql.
func MigrationFS() fs.FS {
	return must.Must(fs.Sub(migrationFiles, "migrations"))
}

// Migrate applies every pending migration. Applied versions are tracked in
// schema_migrations and each migration runs in its own transaction.
func Migrate(ctx context.Context, dbURL string, log *zap.Logger) error {
	conn, err := dbschema.ConnectToDatabase(dbURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer conn.Close()

	m, err := migrator.NewFSMigrator(conn, MigrationFS())
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	m = m.WithLogger(slog.New(zapslog.NewHandler(log.Core(), zapslog.WithName("migrator"))))
	if err := m.MigrateUp(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
