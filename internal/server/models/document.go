// Package models defines the server-side data shapes for documents,
// published snapshots, and connection sessions.
package models

import "time"

// Document is a plain-text note owned by exactly one owner scope.
// The sync engine mutates Content and UpdatedAt; everything else is managed
// by the CRUD surface outside this subsystem.
type Document struct {
	ID         string    `json:"id"`
	OwnerScope string    `json:"ownerScopeId"`
	Content    string    `json:"content"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
