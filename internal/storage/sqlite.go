package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tunedb/tunedb/pkg/models"
)

const DefaultDBFile = "tunedb.sqlite3"

const errDBClientNil = "db client is nil"

// DBClient is the sqlite-backed entity store: collections, instances and
// their memberships. Song partitions are never persisted here; they are
// derived from snapshots on demand.
type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

type Collection struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	URL       string `gorm:"uniqueIndex:idx_collection_url"`
	CreatedAt time.Time
}

type Instance struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Digest     string `gorm:"uniqueIndex:idx_instance_digest;type:varchar(40)" json:"digest"`
	SongDigest string `gorm:"index:idx_instance_song_digest;type:varchar(40)" json:"song_digest"`
	Title      string `json:"title"`
	Text       string `json:"text"`
	CreatedAt  time.Time
}

// CollectionInstance is the explicit membership join row. The composite
// unique index makes repeated ingestion of the same file a no-op.
type CollectionInstance struct {
	ID           uint `gorm:"primaryKey;autoIncrement"`
	CollectionID uint `gorm:"uniqueIndex:idx_collection_instance,priority:1"`
	InstanceID   uint `gorm:"uniqueIndex:idx_collection_instance,priority:2"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("TUNEDB_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !os.IsExist(err) {
		if filepath.Dir(dbPath) != "." {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Collection{}, &Instance{}, &CollectionInstance{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// GetOrCreateCollection finds the collection ingested from url or creates
// it. The second result is true when the collection is new.
func (c *DBClient) GetOrCreateCollection(url string) (uint, bool, error) {
	if c == nil || c.DB == nil {
		return 0, false, errors.New(errDBClientNil)
	}

	var coll Collection
	err := c.DB.Where("url = ?", url).First(&coll).Error
	if err == nil {
		return coll.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, fmt.Errorf("querying existing collection: %w", err)
	}

	coll = Collection{URL: url}
	if err := c.DB.Create(&coll).Error; err != nil {
		if isUniqueViolation(err) {
			if fetchErr := c.DB.Where("url = ?", url).First(&coll).Error; fetchErr != nil {
				return 0, false, fmt.Errorf("fetching collection after constraint violation: %w", fetchErr)
			}
			return coll.ID, false, nil
		}
		return 0, false, fmt.Errorf("creating collection: %w", err)
	}
	return coll.ID, true, nil
}

// GetOrCreateInstance finds the instance with the given full-text digest or
// creates it. The second result is true when the instance is new.
func (c *DBClient) GetOrCreateInstance(digest, songDigest, title, text string) (uint, bool, error) {
	if c == nil || c.DB == nil {
		return 0, false, errors.New(errDBClientNil)
	}

	var inst Instance
	err := c.DB.Where("digest = ?", digest).First(&inst).Error
	if err == nil {
		return inst.ID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, fmt.Errorf("querying existing instance: %w", err)
	}

	inst = Instance{Digest: digest, SongDigest: songDigest, Title: title, Text: text}
	if err := c.DB.Create(&inst).Error; err != nil {
		if isUniqueViolation(err) {
			if fetchErr := c.DB.Where("digest = ?", digest).First(&inst).Error; fetchErr != nil {
				return 0, false, fmt.Errorf("fetching instance after constraint violation: %w", fetchErr)
			}
			return inst.ID, false, nil
		}
		return 0, false, fmt.Errorf("creating instance: %w", err)
	}
	return inst.ID, true, nil
}

// AddMembership links an instance into a collection. Linking the same pair
// twice is a no-op.
func (c *DBClient) AddMembership(collectionID, instanceID uint) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}

	row := CollectionInstance{CollectionID: collectionID, InstanceID: instanceID}
	if err := c.DB.Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("creating membership: %w", err)
	}
	return nil
}

// Snapshot loads a read-only view of the store for the aggregation stages:
// all instances and all collections with their member instance IDs, each
// ordered ascending by ID. A membership row pointing at a missing record
// surfaces as a models.ErrIntegrity error.
func (c *DBClient) Snapshot() (*models.Snapshot, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}

	var instances []Instance
	if err := c.DB.Order("id").Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("loading instances: %w", err)
	}

	var collections []Collection
	if err := c.DB.Order("id").Find(&collections).Error; err != nil {
		return nil, fmt.Errorf("loading collections: %w", err)
	}

	var memberships []CollectionInstance
	if err := c.DB.Order("collection_id, instance_id").Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("loading memberships: %w", err)
	}

	snap := &models.Snapshot{
		Instances:   make([]models.Instance, 0, len(instances)),
		Collections: make([]models.Collection, 0, len(collections)),
	}
	for _, inst := range instances {
		snap.Instances = append(snap.Instances, models.Instance{
			ID:         inst.ID,
			Digest:     inst.Digest,
			SongDigest: inst.SongDigest,
			Title:      inst.Title,
		})
	}

	members := make(map[uint][]uint, len(collections))
	knownColl := make(map[uint]bool, len(collections))
	for _, coll := range collections {
		knownColl[coll.ID] = true
	}
	for _, m := range memberships {
		if !knownColl[m.CollectionID] {
			return nil, fmt.Errorf("%w: membership references unknown collection %d",
				models.ErrIntegrity, m.CollectionID)
		}
		members[m.CollectionID] = append(members[m.CollectionID], m.InstanceID)
	}
	for _, coll := range collections {
		snap.Collections = append(snap.Collections, models.Collection{
			ID:          coll.ID,
			URL:         coll.URL,
			InstanceIDs: members[coll.ID],
		})
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed"))
}
