package models

// Bin is one bar of a frequency-of-frequency histogram: Frequency groups had
// exactly Count members. Serialized as the {count, frequency} objects the
// chart renderer consumes.
type Bin struct {
	Count     int `json:"count"`
	Frequency int `json:"frequency"`
}

// StatsResult carries every number the statistics page renders. All fields
// are pure functions of a single snapshot plus the song partition derived
// from it.
type StatsResult struct {
	Songs               int `json:"songs"`
	Instances           int `json:"instances"`
	Titles              int `json:"titles"`
	Collections         int `json:"collections"`
	CollectionInstances int `json:"collection_instances"`

	// Percentage reductions, each 0-100 and 0 when the denominator is zero.
	InstToSongDedup int `json:"inst_to_song_dedup"`
	CollToInstDedup int `json:"coll_to_inst_dedup"`

	InstPerSongHisto []Bin `json:"inst_per_song_histo"`
	CollPerInstHisto []Bin `json:"coll_per_inst_histo"`
}
