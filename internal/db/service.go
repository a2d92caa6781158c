package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DBServiceImpl implements the DBService interface
type DBServiceImpl struct {
	db *sql.DB
}

type DBOperations interface {
	Open(driverName, dataSourceName string) (*sql.DB, error)
	RunMigrations(db *sql.DB) error
}

type defaultDBOperations struct{}

func (defaultDBOperations) Open(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

func (defaultDBOperations) RunMigrations(db *sql.DB) error {
	return RunMigrations(db)
}

// NewDBService creates and returns a new DBService. Connection parameters
// come from the DB_* environment variables.
func NewDBService(ops DBOperations) (DBService, error) {
	if ops == nil {
		ops = defaultDBOperations{}
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := ops.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := ops.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DBServiceImpl{db: db}, nil
}

func (s *DBServiceImpl) Close() error {
	return s.db.Close()
}
