package tunedb

// IngestReport summarizes one ingest run.
type IngestReport struct {
	RunID             string   // UUID tagging this run in logs
	Collection        string   // URL or file name the collection was created from
	CollectionID      uint
	NewCollection     bool
	TunesTotal        int
	NewInstances      int
	ExistingInstances int
	Warnings          []string // parser warnings, one per oddity, with line numbers
}

// CollectionInfo is a collection row plus its member count, for listings.
type CollectionInfo struct {
	ID        uint   `json:"id"`
	URL       string `json:"url"`
	Instances int    `json:"instances"`
}
