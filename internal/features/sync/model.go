package sync

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RunStatusStarted    = "started"
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

// ErrorKind classifies one failed row or batch.
type ErrorKind string

const (
	ErrKindValidation ErrorKind = "VALIDATION_ERROR"
	ErrKindTransform  ErrorKind = "TRANSFORM_ERROR"
	ErrKindAPI        ErrorKind = "API_ERROR"
	ErrKindRateLimit  ErrorKind = "RATE_LIMIT"
	ErrKindNetwork    ErrorKind = "NETWORK_ERROR"
)

// SyncRun is one execution instance of a mapping. Terminal runs are never
// mutated again.
type SyncRun struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MappingID        primitive.ObjectID `json:"mapping_id" bson:"mapping_id"`
	Status           string             `json:"status" bson:"status"` // "started", "processing", "completed", "failed"
	Message          string             `json:"message,omitempty" bson:"message,omitempty"`
	RecordsProcessed int                `json:"records_processed" bson:"records_processed"`
	RecordsFailed    int                `json:"records_failed" bson:"records_failed"`
	StartTime        time.Time          `json:"start_time" bson:"start_time"`
	EndTime          time.Time          `json:"end_time,omitempty" bson:"end_time,omitempty"`
}

// Terminal reports whether the run reached a final state.
func (r *SyncRun) Terminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// SyncError is one failed row within a run. It never blocks the rest of
// the batch and can be re-driven later when retryable.
type SyncError struct {
	ID             primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	MappingID      primitive.ObjectID     `json:"mapping_id" bson:"mapping_id"`
	RunID          primitive.ObjectID     `json:"run_id" bson:"run_id"`
	Kind           ErrorKind              `json:"kind" bson:"kind"`
	Message        string                 `json:"message" bson:"message"`
	Record         map[string]interface{} `json:"record,omitempty" bson:"record,omitempty"`
	Retryable      bool                   `json:"retryable" bson:"retryable"`
	Resolved       bool                   `json:"resolved" bson:"resolved"`
	ResolutionNote string                 `json:"resolution_note,omitempty" bson:"resolution_note,omitempty"`
	Timestamp      time.Time              `json:"timestamp" bson:"timestamp"`
}

// SyncResult is the structured outcome of one run.
type SyncResult struct {
	RunID            string      `json:"run_id"`
	Status           string      `json:"status"`
	RecordsProcessed int         `json:"records_processed"`
	RecordsFailed    int         `json:"records_failed"`
	Errors           []SyncError `json:"errors,omitempty"`
}

// RetryResult is the structured outcome of a retry pass over unresolved
// retryable errors.
type RetryResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
