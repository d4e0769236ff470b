package tunedb

import (
	"os"

	"github.com/tunedb/tunedb/internal/storage"
	"github.com/tunedb/tunedb/pkg/models"
)

type Config struct {
	DBPath  string
	Logger  Logger
	Storage Storage
	Oracle  models.Oracle
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithOracle swaps the same-song judgment used by the deduplication
// resolver. The default compares canonical tune digests.
func WithOracle(oracle models.Oracle) Option {
	return func(c *Config) {
		c.Oracle = oracle
	}
}

// defaultConfig honors TUNEDB_DB_PATH, so NewService() with no options uses
// the same database file as the CLI and storage layer.
func defaultConfig() *Config {
	dbPath := os.Getenv("TUNEDB_DB_PATH")
	if dbPath == "" {
		dbPath = storage.DefaultDBFile
	}
	return &Config{
		DBPath: dbPath,
	}
}
