package models

import (
	"errors"
	"fmt"
)

// ErrIntegrity marks a snapshot whose cross-references do not line up, e.g. a
// collection membership naming an instance that does not exist. Callers check
// for it with errors.Is.
var ErrIntegrity = errors.New("data integrity error")

// Instance is one concrete transcription of a tune as it appeared in an
// ingested source. Instances are immutable once stored and are always
// reachable through at least one collection.
type Instance struct {
	ID         uint
	Digest     string // SHA-1 of the full tune text, unique per instance
	SongDigest string // SHA-1 of the canonicized tune text, shared by same-song instances
	Title      string // first title field of the tune, may be empty
}

// Collection is a named grouping of instances, one per ingested source
// file or URL.
type Collection struct {
	ID          uint
	URL         string
	InstanceIDs []uint // ascending
}

// Song is a derived equivalence class of instances judged musically
// identical. Songs are never persisted; the resolver recomputes them from a
// snapshot on demand.
type Song struct {
	Title       string // canonical title picked from the member instances
	InstanceIDs []uint // ascending; the first element identifies the class
}

// Snapshot is a read-only view of the entity store: all instances and all
// collection memberships at a single point in time. Instances and collections
// are ordered ascending by ID, membership lists ascending by instance ID.
type Snapshot struct {
	Instances   []Instance
	Collections []Collection
}

// Validate checks the referential invariants the aggregation stages rely on:
// every membership names a known instance, and every instance appears in at
// least one collection. Violations wrap ErrIntegrity.
func (s *Snapshot) Validate() error {
	known := make(map[uint]bool, len(s.Instances))
	for _, inst := range s.Instances {
		known[inst.ID] = true
	}
	referenced := make(map[uint]bool, len(s.Instances))
	for _, coll := range s.Collections {
		for _, id := range coll.InstanceIDs {
			if !known[id] {
				return fmt.Errorf("%w: collection %d references unknown instance %d",
					ErrIntegrity, coll.ID, id)
			}
			referenced[id] = true
		}
	}
	for _, inst := range s.Instances {
		if !referenced[inst.ID] {
			return fmt.Errorf("%w: instance %d belongs to no collection",
				ErrIntegrity, inst.ID)
		}
	}
	return nil
}
