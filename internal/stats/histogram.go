package stats

import (
	"sort"

	"github.com/tunedb/tunedb/pkg/models"
)

// instancesPerSong tabulates how many songs have each member count. The
// frequencies sum to the number of songs.
func instancesPerSong(songs []models.Song) []models.Bin {
	sizes := make([]int, len(songs))
	for i, song := range songs {
		sizes[i] = len(song.InstanceIDs)
	}
	return histogram(sizes)
}

// collectionsPerInstance tabulates how many instances appear in each number
// of distinct collections. The frequencies sum to the number of instances.
func collectionsPerInstance(snap *models.Snapshot) []models.Bin {
	colls := make(map[uint]int, len(snap.Instances))
	for _, coll := range snap.Collections {
		inThis := make(map[uint]bool, len(coll.InstanceIDs))
		for _, id := range coll.InstanceIDs {
			if !inThis[id] {
				inThis[id] = true
				colls[id]++
			}
		}
	}
	sizes := make([]int, 0, len(snap.Instances))
	for _, inst := range snap.Instances {
		sizes = append(sizes, colls[inst.ID])
	}
	return histogram(sizes)
}

// histogram folds a list of group sizes into (count, frequency) bins sorted
// ascending by count, one bin per distinct count. The result is fully
// materialized; the chart renderer wants complete data upfront.
func histogram(sizes []int) []models.Bin {
	freq := make(map[int]int, len(sizes))
	for _, k := range sizes {
		freq[k]++
	}
	counts := make([]int, 0, len(freq))
	for k := range freq {
		counts = append(counts, k)
	}
	sort.Ints(counts)

	bins := make([]models.Bin, len(counts))
	for i, k := range counts {
		bins[i] = models.Bin{Count: k, Frequency: freq[k]}
	}
	return bins
}
