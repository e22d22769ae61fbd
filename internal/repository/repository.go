// Package repository provides methods to work with DB
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/UnendingLoop/IconConverter/internal/repository/batchpostgres"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/wb-go/wbf/dbpg"
)

type BatchRepo interface {
	Create(ctx context.Context, b *model.Batch) error
	Get(ctx context.Context, id string) (*model.Batch, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Batch, error)
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	SaveResult(ctx context.Context, b *model.Batch) error
	FetchOrphans(ctx context.Context, limit int, staleAfter time.Duration) ([]string, error)
}

func NewPostgresBatchRepo(dbconn *dbpg.DB) BatchRepo {
	return batchpostgres.PostgresRepo{DB: dbconn}
}

func ConnectWithRetries(dsn string, retryCount int, idleTime time.Duration) (*dbpg.DB, error) {
	if dsn == "" {
		return nil, errors.New("POSTGRES_DSN is empty")
	}

	dbOptions := dbpg.Options{
		MaxOpenConns:    5,
		MaxIdleConns:    5,
		ConnMaxLifetime: 10 * time.Minute,
	}
	var dbConn *dbpg.DB
	var err error

	for i := 0; i < retryCount; i++ {
		dbConn, err = dbpg.New(dsn, nil, &dbOptions)
		if err == nil {
			return dbConn, nil
		}
		if i < retryCount-1 {
			log.Printf("Failed to connect to PGDB: %s\nWaiting %v before next retry...", err, idleTime)
			time.Sleep(idleTime)
		}
	}

	return nil, fmt.Errorf("failed to connect to DB after %d tries: %w", retryCount, err)
}

func MigrateWithRetries(db *sql.DB, migrationsPath string, retries int, idle time.Duration) error {
	var err error
	for i := 0; i < retries; i++ {
		log.Printf("Migration try #%d...", i+1)
		if err = runMigrate(db, migrationsPath); err == nil {
			return nil
		}
		if i < retries-1 {
			log.Printf("Migration try #%d was unsuccessful: %v. Waiting %v before next try...", i+1, err, idle)
			time.Sleep(idle)
		}
	}
	return fmt.Errorf("out of migration retries: %w", err)
}

func runMigrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	sourceURL := "file://" + absPath
	log.Println("Running migrations from:", sourceURL)

	m, err := migrate.NewWithDatabaseInstance(
		sourceURL,
		"postgres",
		driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	log.Println("Database migrations applied successfully")
	return nil
}
