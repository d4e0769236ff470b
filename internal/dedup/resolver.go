// Package dedup partitions instances into songs using an injected identity
// oracle and a transient union-find arena.
//
// The oracle is not required to be transitive: when it judges A~B and B~C but
// not A~C, the union-find closure still yields a single song spanning all
// three. That is deliberate, matching how duplicate chains accumulate in a
// growing archive.
package dedup

import (
	"sort"

	"github.com/tunedb/tunedb/pkg/models"
)

// Resolve computes the song partition of instances under oracle. Every
// instance lands in exactly one song; an instance matching nothing forms a
// singleton. Songs are ordered by their lowest member instance ID, members
// ascending, so the result is deterministic regardless of input order.
//
// All state is local to the call; Resolve may run concurrently with itself.
func Resolve(instances []models.Instance, oracle models.Oracle) []models.Song {
	if len(instances) == 0 {
		return nil
	}

	sorted := make([]models.Instance, len(instances))
	copy(sorted, instances)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	uf := newUnionFind(len(sorted))
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if uf.find(i) == uf.find(j) {
				continue // already joined through an earlier verdict
			}
			if oracle.SameSong(sorted[i], sorted[j]) {
				uf.union(i, j)
			}
		}
	}

	members := make(map[int][]int)
	var roots []int
	for i := range sorted {
		r := uf.find(i)
		if _, seen := members[r]; !seen {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}

	songs := make([]models.Song, 0, len(roots))
	for _, r := range roots {
		idxs := members[r]
		ids := make([]uint, len(idxs))
		for k, idx := range idxs {
			ids[k] = sorted[idx].ID
		}
		songs = append(songs, models.Song{
			Title:       canonicalTitle(sorted, idxs),
			InstanceIDs: ids,
		})
	}
	return songs
}

// canonicalTitle picks the display title of a song: the most frequent
// non-empty raw title among the member instances. Ties go to the title
// carried by the lowest member instance ID. A song whose members are all
// untitled gets the empty title.
func canonicalTitle(sorted []models.Instance, idxs []int) string {
	freq := make(map[string]int)
	for _, idx := range idxs {
		if t := sorted[idx].Title; t != "" {
			freq[t]++
		}
	}

	best, bestN := "", 0
	for _, idx := range idxs { // ascending ID, so the first max wins ties
		t := sorted[idx].Title
		if t == "" {
			continue
		}
		if n := freq[t]; n > bestN {
			best, bestN = t, n
		}
	}
	return best
}
