package domain

import "time"

// DocumentArtifact is one immutable rendered document. Every regeneration
// appends a new artifact; nothing here is ever overwritten, so signature
// fingerprints that reference an older hash stay dereferenceable.
type DocumentArtifact struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"` // lease or lease_addendum
	EntityID   string    `json:"entity_id"`
	URL        string    `json:"url"`
	Hash       string    `json:"hash"`
	CreatedAt  time.Time `json:"created_at"`
}
