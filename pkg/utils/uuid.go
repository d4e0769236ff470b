package utils

import "github.com/google/uuid"

// GenerateUUID returns a fresh UUID v4 string, used to tag ingest runs in
// logs and reports.
func GenerateUUID() string {
	return uuid.NewString()
}
