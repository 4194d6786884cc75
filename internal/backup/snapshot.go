package backup

import (
	"time"

	"github.com/advisorhub/backoffice/internal/models"
	"github.com/advisorhub/backoffice/internal/store"
)

// SupportedVersion is compared exactly against a payload's version tag on
// restore. Bump only with a migration path for older archives.
const SupportedVersion = "1.0"

// Type classifies a snapshot.
type Type string

const (
	TypeFull        Type = "FULL"
	TypePartial     Type = "PARTIAL"
	TypeIncremental Type = "INCREMENTAL"
)

// Snapshot is the versioned payload document. Immutable once created;
// serialized as indented JSON with RFC 3339 timestamps.
type Snapshot struct {
	Version   string         `json:"version"`
	CreatedAt time.Time      `json:"createdAt"`
	Type      Type           `json:"type"`
	BasedOn   string         `json:"basedOn,omitempty"`
	Data      models.Dataset `json:"data"`
}

// Metadata is the informational second archive entry. Restore correctness
// never depends on it.
type Metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	Type      Type      `json:"type"`
	System    string    `json:"system"`
}

// Selection specifies what a snapshot includes. A FULL selection ignores
// Collections; a PARTIAL one includes only the listed collections; an
// INCREMENTAL one includes audit-log entries newer than Since.
type Selection struct {
	Type        Type
	Collections map[store.Collection]bool
	Since       time.Time
	BasedOn     string
}

// FullSelection selects all eight collections.
func FullSelection() Selection {
	return Selection{Type: TypeFull}
}

// PartialSelection selects the named collections.
func PartialSelection(cols ...store.Collection) Selection {
	include := make(map[store.Collection]bool, len(cols))
	for _, c := range cols {
		include[c] = true
	}
	return Selection{Type: TypePartial, Collections: include}
}
