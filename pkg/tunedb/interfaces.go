package tunedb

import (
	"context"

	"github.com/tunedb/tunedb/pkg/models"
)

type Service interface {
	IngestFile(ctx context.Context, path string) (*IngestReport, error)
	Stats(ctx context.Context) (*models.StatsResult, error)
	ListCollections() ([]CollectionInfo, error)
	Close() error
}

type Storage interface {
	GetOrCreateCollection(url string) (uint, bool, error)
	GetOrCreateInstance(digest, songDigest, title, text string) (uint, bool, error)
	AddMembership(collectionID, instanceID uint) error
	Snapshot() (*models.Snapshot, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
