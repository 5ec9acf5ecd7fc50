package glide

// Credentials identify one Glide application. They are always passed in
// explicitly; the client holds no per-app state.
type Credentials struct {
	AppID  string `json:"app_id"`
	APIKey string `json:"api_key"`
}

// Table is one table of a Glide app
type Table struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Column describes one column of a Glide table. Type is inferred from a
// one-row sample: "string", "number", "boolean", or "string" for anything
// structured.
type Column struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// RowPage is one page of a table scan. Next is the continuation token for
// the following page, empty when the scan is complete.
type RowPage struct {
	Rows []map[string]interface{} `json:"rows"`
	Next string                   `json:"next"`
}

// BatchError records a failed mutation batch. Batches already committed
// before the failure stay committed; Glide has no cross-batch transaction.
type BatchError struct {
	StartIndex int    `json:"start_index"`
	Count      int    `json:"count"`
	Message    string `json:"message"`
}

// WriteResult aggregates the per-batch outcomes of a WriteRows call.
type WriteResult struct {
	RowsWritten  int          `json:"rows_written"`
	BatchErrors  []BatchError `json:"batch_errors,omitempty"`
	BatchesTotal int          `json:"batches_total"`
}

// wire shapes for the Glide function API

type queryRequest struct {
	AppID   string       `json:"appID"`
	Queries []tableQuery `json:"queries"`
}

type tableQuery struct {
	TableName string `json:"tableName"`
	StartAt   string `json:"startAt,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type queryResult struct {
	Rows []map[string]interface{} `json:"rows"`
	Next string                   `json:"next"`
}

type mutateRequest struct {
	AppID     string     `json:"appID"`
	Mutations []mutation `json:"mutations"`
}

type mutation struct {
	Kind         string                 `json:"kind"`
	TableName    string                 `json:"tableName"`
	ColumnValues map[string]interface{} `json:"columnValues"`
}
