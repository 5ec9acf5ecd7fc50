package glide

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go-glidesync/internal/config"
)

// MaxMutationsPerCall is the Glide API cap on mutations per request.
// WriteRows splits larger inputs into batches of at most this size.
const MaxMutationsPerCall = 500

// Client abstracts the paginated read/write protocol against Glide.
type Client interface {
	// TestConnection issues a bounded limit-1 probe against the app.
	TestConnection(ctx context.Context, creds Credentials) error

	// ListTables returns the tables of the app.
	ListTables(ctx context.Context, creds Credentials) ([]Table, error)

	// GetTableColumns infers the column set of a table by sampling one row.
	GetTableColumns(ctx context.Context, creds Credentials, tableID string) ([]Column, error)

	// FetchPage reads one page of rows. Pass the previous page's Next as
	// startAt; loop until Next is empty.
	FetchPage(ctx context.Context, creds Credentials, tableID, startAt string) (*RowPage, error)

	// WriteRows pushes rows into a table in bounded batches. A failed
	// batch is reported in the result; earlier batches stay committed.
	WriteRows(ctx context.Context, creds Credentials, tableID string, rows []map[string]interface{}) (*WriteResult, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) Client {
	return &HTTPClient{
		baseURL: cfg.GlideAPIURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.GlideTimeoutSecs) * time.Second,
		},
	}
}

func (c *HTTPClient) TestConnection(ctx context.Context, creds Credentials) error {
	req := queryRequest{
		AppID:   creds.AppID,
		Queries: []tableQuery{{TableName: "", Limit: 1}},
	}

	var results []queryResult
	return c.doRequest(ctx, creds, "/queryTables", req, &results)
}

func (c *HTTPClient) ListTables(ctx context.Context, creds Credentials) ([]Table, error) {
	var data struct {
		Tables []Table `json:"tables"`
	}

	body := map[string]string{"appID": creds.AppID}
	if err := c.doRequest(ctx, creds, "/listTables", body, &data); err != nil {
		return nil, err
	}

	return data.Tables, nil
}

func (c *HTTPClient) GetTableColumns(ctx context.Context, creds Credentials, tableID string) ([]Column, error) {
	page, err := c.fetch(ctx, creds, tableID, "", 1)
	if err != nil {
		return nil, err
	}

	if len(page.Rows) == 0 {
		return []Column{}, nil
	}

	sample := page.Rows[0]
	columns := make([]Column, 0, len(sample))
	for id, value := range sample {
		columns = append(columns, Column{
			ID:   id,
			Name: id,
			Type: inferType(value),
		})
	}

	return columns, nil
}

func (c *HTTPClient) FetchPage(ctx context.Context, creds Credentials, tableID, startAt string) (*RowPage, error) {
	return c.fetch(ctx, creds, tableID, startAt, 0)
}

func (c *HTTPClient) fetch(ctx context.Context, creds Credentials, tableID, startAt string, limit int) (*RowPage, error) {
	req := queryRequest{
		AppID:   creds.AppID,
		Queries: []tableQuery{{TableName: tableID, StartAt: startAt, Limit: limit}},
	}

	var results []queryResult
	if err := c.doRequest(ctx, creds, "/queryTables", req, &results); err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &RowPage{Rows: []map[string]interface{}{}}, nil
	}

	return &RowPage{Rows: results[0].Rows, Next: results[0].Next}, nil
}

func (c *HTTPClient) WriteRows(ctx context.Context, creds Credentials, tableID string, rows []map[string]interface{}) (*WriteResult, error) {
	result := &WriteResult{}

	for start := 0; start < len(rows); start += MaxMutationsPerCall {
		end := start + MaxMutationsPerCall
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		result.BatchesTotal++

		mutations := make([]mutation, len(batch))
		for i, row := range batch {
			mutations[i] = mutation{
				Kind:         "add-row-to-table",
				TableName:    tableID,
				ColumnValues: row,
			}
		}

		req := mutateRequest{AppID: creds.AppID, Mutations: mutations}
		var resp interface{}
		if err := c.doRequest(ctx, creds, "/mutateTables", req, &resp); err != nil {
			// Prior batches are already committed; report and move on.
			result.BatchErrors = append(result.BatchErrors, BatchError{
				StartIndex: start,
				Count:      len(batch),
				Message:    err.Error(),
			})
			continue
		}

		result.RowsWritten += len(batch)
	}

	return result, nil
}

func inferType(value interface{}) string {
	switch value.(type) {
	case bool:
		return "boolean"
	case float64, int, int64:
		return "number"
	case string:
		return "string"
	default:
		// objects and arrays sync as their string form
		return "string"
	}
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) endpoint(path string) string {
	return fmt.Sprintf("%s%s", c.baseURL, path)
}
