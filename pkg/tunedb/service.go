// Package tunedb is the public face of the tune archive: ingestion of tune
// files into collections and instances, and on-demand computation of the
// statistics page figures over the stored corpus.
package tunedb

import (
	"context"
	"fmt"

	"github.com/tunedb/tunedb/internal/dedup"
	"github.com/tunedb/tunedb/internal/ingest"
	"github.com/tunedb/tunedb/internal/stats"
	"github.com/tunedb/tunedb/internal/storage"
	"github.com/tunedb/tunedb/pkg/logger"
	"github.com/tunedb/tunedb/pkg/models"
	"github.com/tunedb/tunedb/pkg/utils"
)

// tuneService is the default implementation of the Service interface.
type tuneService struct {
	storage Storage
	log     Logger
	oracle  models.Oracle
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Oracle == nil {
		cfg.Oracle = dedup.DigestOracle{}
	}

	var stor Storage
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		db, err := storage.NewDBClientWithPath(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
		stor = db
	}

	return &tuneService{
		storage: stor,
		log:     cfg.Logger,
		oracle:  cfg.Oracle,
		config:  cfg,
	}, nil
}

// IngestFile parses the tune file at path and stores its tunes as instances
// of a collection named after the path. Re-ingesting the same file changes
// nothing: collections, instances and memberships are all get-or-create.
func (s *tuneService) IngestFile(ctx context.Context, path string) (*IngestReport, error) {
	report := &IngestReport{
		RunID:      utils.GenerateUUID(),
		Collection: path,
	}
	s.log.Infof("Ingest run %s: processing %s", report.RunID, path)

	tunes, warnings, err := ingest.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for _, w := range warnings {
		s.log.Warnf("%s line %d: %s", path, w.Line, w.Message)
		report.Warnings = append(report.Warnings, fmt.Sprintf("line %d: %s", w.Line, w.Message))
	}
	report.TunesTotal = len(tunes)

	collID, newColl, err := s.storage.GetOrCreateCollection(path)
	if err != nil {
		return nil, fmt.Errorf("registering collection: %w", err)
	}
	report.CollectionID = collID
	report.NewCollection = newColl
	if newColl {
		s.log.Infof("Adding new collection '%s'", path)
	} else {
		s.log.Infof("Found existing collection '%s'", path)
	}

	for _, tune := range tunes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		title := ""
		if len(tune.Titles) > 0 {
			title = tune.Titles[0]
		}
		instID, newInst, err := s.storage.GetOrCreateInstance(tune.Digest, tune.SongDigest, title, tune.FullText)
		if err != nil {
			return nil, fmt.Errorf("registering instance %s: %w", tune.Digest[:7], err)
		}
		if newInst {
			report.NewInstances++
			s.log.Debugf("Adding new instance %s (song %s)", tune.Digest[:7], tune.SongDigest[:7])
		} else {
			report.ExistingInstances++
			s.log.Debugf("Found existing instance %s", tune.Digest[:7])
		}

		if err := s.storage.AddMembership(collID, instID); err != nil {
			return nil, fmt.Errorf("linking instance %d to collection %d: %w", instID, collID, err)
		}
	}

	s.log.Infof("Ingest run %s: %d tunes, %d new instances, %d existing",
		report.RunID, report.TunesTotal, report.NewInstances, report.ExistingInstances)
	return report, nil
}

// Stats resolves the song partition for the current snapshot and computes
// the statistics page figures. The computation is read-only; concurrent
// calls each work on their own snapshot and union-find state.
func (s *tuneService) Stats(ctx context.Context) (*models.StatsResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := s.storage.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	songs := dedup.Resolve(snap.Instances, s.oracle)
	result, err := stats.Compute(snap, songs)
	if err != nil {
		return nil, err
	}

	s.log.Debugf("Stats: %d instances deduplicated into %d songs across %d collections",
		result.Instances, result.Songs, result.Collections)
	return result, nil
}

func (s *tuneService) ListCollections() ([]CollectionInfo, error) {
	snap, err := s.storage.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	infos := make([]CollectionInfo, 0, len(snap.Collections))
	for _, coll := range snap.Collections {
		infos = append(infos, CollectionInfo{
			ID:        coll.ID,
			URL:       coll.URL,
			Instances: len(coll.InstanceIDs),
		})
	}
	return infos, nil
}

func (s *tuneService) Close() error {
	return s.storage.Close()
}
