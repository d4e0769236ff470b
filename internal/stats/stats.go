// Package stats computes the aggregate counts, dedup percentages and
// frequency-of-frequency histograms for a statistics page, as a pure
// function over one entity-store snapshot and its song partition.
package stats

import (
	"fmt"
	"math"

	"github.com/tunedb/tunedb/pkg/models"
)

// Compute derives every statistics-page figure from snap and the song
// partition songs (normally the output of dedup.Resolve over the same
// snapshot). It mutates nothing and allocates only private state, so it may
// run concurrently with itself. Recomputing on an unchanged snapshot yields
// identical results, histogram ordering included.
//
// Snapshots with dangling references fail with an error wrapping
// models.ErrIntegrity rather than being silently skipped.
func Compute(snap *models.Snapshot, songs []models.Song) (*models.StatsResult, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	songOf := make(map[uint]int, len(snap.Instances))
	for si, song := range songs {
		for _, id := range song.InstanceIDs {
			songOf[id] = si
		}
	}
	for _, inst := range snap.Instances {
		if _, ok := songOf[inst.ID]; !ok {
			return nil, fmt.Errorf("%w: instance %d not covered by the song partition",
				models.ErrIntegrity, inst.ID)
		}
	}

	titles := make(map[string]bool)
	for _, song := range songs {
		if song.Title != "" {
			titles[song.Title] = true
		}
	}

	res := &models.StatsResult{
		Songs:               len(songs),
		Instances:           len(snap.Instances),
		Titles:              len(titles),
		Collections:         len(snap.Collections),
		CollectionInstances: collectionInstances(snap, songOf),
	}
	res.InstToSongDedup = dedupPercent(res.Instances-res.Songs, res.Instances)
	res.CollToInstDedup = dedupPercent(res.CollectionInstances-res.Instances, res.CollectionInstances)
	res.InstPerSongHisto = instancesPerSong(songs)
	res.CollPerInstHisto = collectionsPerInstance(snap)
	return res, nil
}

// collectionInstances counts collection memberships by marginal contribution:
// collections are walked in ascending ID, members in ascending instance ID,
// and a membership counts only if its song was not already seen in an earlier
// collection. The seen set advances at collection boundaries, so two
// same-song instances inside one collection both count, while a repeated
// instance ID inside one collection counts once, matching collectionsPerInstance.
// This traversal order is the documented policy; it is stable because
// snapshots are ordered.
func collectionInstances(snap *models.Snapshot, songOf map[uint]int) int {
	seen := make(map[int]bool, len(songOf))
	count := 0
	for _, coll := range snap.Collections {
		inThis := make(map[uint]bool, len(coll.InstanceIDs))
		for _, id := range coll.InstanceIDs {
			if inThis[id] {
				continue
			}
			inThis[id] = true
			if !seen[songOf[id]] {
				count++
			}
		}
		for _, id := range coll.InstanceIDs {
			seen[songOf[id]] = true
		}
	}
	return count
}

// dedupPercent is round(100*reduced/total) clamped to [0,100], with a zero
// total defined as 0% rather than a division error.
func dedupPercent(reduced, total int) int {
	if total == 0 {
		return 0
	}
	p := int(math.Round(100 * float64(reduced) / float64(total)))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
