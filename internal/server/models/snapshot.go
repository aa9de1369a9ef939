package models

import "time"

// Snapshot is the published, possibly editable copy of a document, addressed
// by a public UUID that is independent of the owner's private document id.
// There is at most one snapshot per document id.
//
// OwnerScope is empty until lazily resolved; once discovered it is written
// back to the store and acts as a cache for later joins.
type Snapshot struct {
	UUID             string    `json:"uuid"`
	DocID            string    `json:"docId"`
	OwnerScope       string    `json:"ownerScopeId,omitempty"`
	Editable         bool      `json:"editable"`
	EditPasswordHash string    `json:"editPasswordHash,omitempty"`
	Content          string    `json:"content"`
	PublishedAt      time.Time `json:"publishedAt"`
}
