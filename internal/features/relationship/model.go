package relationship

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Columns following the rowid_<target> convention reference the row
// identity of another synced table.
const RowIDColumnPrefix = "rowid_"

const (
	StatusPending  = "pending"
	StatusResolved = "resolved"
	StatusFailed   = "failed"
)

// MaxResolutionAttempts bounds how often a pending candidate is retried
// before it is marked failed.
const MaxResolutionAttempts = 5

// Candidate is one cross-table reference awaiting resolution. Candidates
// are global, keyed by target table, not tied to any one mapping.
type Candidate struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SourceTable  string             `json:"source_table" bson:"source_table"`
	SourceColumn string             `json:"source_column" bson:"source_column"`
	SourceRowID  string             `json:"source_row_id" bson:"source_row_id"`
	TargetTable  string             `json:"target_table" bson:"target_table"`
	RowIDValue   string             `json:"row_id_value" bson:"row_id_value"`
	Status       string             `json:"status" bson:"status"` // "pending", "resolved", "failed"
	Attempts     int                `json:"attempts" bson:"attempts"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	ResolvedAt   time.Time          `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

// MappingSummary is the structured outcome of a bulk resolution pass.
type MappingSummary struct {
	Scanned  int `json:"scanned"`
	Resolved int `json:"resolved"`
	Pending  int `json:"pending"`
	Failed   int `json:"failed"`
}

// TableCheck reports whether resolution against one target table can
// currently succeed at all.
type TableCheck struct {
	TargetTable string `json:"target_table"`
	RowCount    int64  `json:"row_count"`
	Pending     int64  `json:"pending_candidates"`
	Resolvable  bool   `json:"resolvable"`
}
