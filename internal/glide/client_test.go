package glide

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(srv *httptest.Server) *HTTPClient {
	return &HTTPClient{
		baseURL:    srv.URL,
		httpClient: srv.Client(),
	}
}

func testCreds() Credentials {
	return Credentials{AppID: "app-1", APIKey: "key-1"}
}

func TestFetchPagePagination(t *testing.T) {
	// three pages of two rows, then done
	pages := map[string]queryResult{
		"": {
			Rows: []map[string]interface{}{{"$rowID": "r1"}, {"$rowID": "r2"}},
			Next: "tok-1",
		},
		"tok-1": {
			Rows: []map[string]interface{}{{"$rowID": "r3"}, {"$rowID": "r4"}},
			Next: "tok-2",
		},
		"tok-2": {
			Rows: []map[string]interface{}{{"$rowID": "r5"}},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if req.AppID != "app-1" {
			t.Errorf("expected appID app-1, got %s", req.AppID)
		}
		page := pages[req.Queries[0].StartAt]
		json.NewEncoder(w).Encode([]queryResult{page})
	}))
	defer srv.Close()

	client := testClient(srv)

	seen := map[string]bool{}
	startAt := ""
	calls := 0
	for {
		page, err := client.FetchPage(context.Background(), testCreds(), "accounts", startAt)
		if err != nil {
			t.Fatalf("FetchPage() error = %v", err)
		}
		calls++
		for _, row := range page.Rows {
			id := row["$rowID"].(string)
			if seen[id] {
				t.Errorf("row %s visited twice", id)
			}
			seen[id] = true
		}
		if page.Next == "" {
			break
		}
		startAt = page.Next
	}

	if calls != 3 {
		t.Errorf("expected 3 page fetches, got %d", calls)
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 distinct rows, got %d", len(seen))
	}
}

func TestWriteRowsBatching(t *testing.T) {
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mutateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		batchSizes = append(batchSizes, len(req.Mutations))
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := testClient(srv)

	rows := make([]map[string]interface{}, 1200)
	for i := range rows {
		rows[i] = map[string]interface{}{"$rowID": fmt.Sprintf("r%d", i)}
	}

	result, err := client.WriteRows(context.Background(), testCreds(), "accounts", rows)
	if err != nil {
		t.Fatalf("WriteRows() error = %v", err)
	}

	if len(batchSizes) != 3 {
		t.Fatalf("expected 3 network calls, got %d", len(batchSizes))
	}
	for i, size := range batchSizes {
		if size > MaxMutationsPerCall {
			t.Errorf("batch %d exceeds cap: %d rows", i, size)
		}
	}
	if batchSizes[0] != 500 || batchSizes[1] != 500 || batchSizes[2] != 200 {
		t.Errorf("unexpected batch split: %v", batchSizes)
	}
	if result.RowsWritten != 1200 {
		t.Errorf("RowsWritten = %d, want 1200", result.RowsWritten)
	}
}

func TestWriteRowsPartialFailure(t *testing.T) {
	call := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		if call == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
			return
		}
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := testClient(srv)

	rows := make([]map[string]interface{}, 1200)
	for i := range rows {
		rows[i] = map[string]interface{}{"$rowID": fmt.Sprintf("r%d", i)}
	}

	result, err := client.WriteRows(context.Background(), testCreds(), "accounts", rows)
	if err != nil {
		t.Fatalf("WriteRows() error = %v", err)
	}

	// batch 1 and 3 committed, batch 2 reported
	if result.RowsWritten != 700 {
		t.Errorf("RowsWritten = %d, want 700", result.RowsWritten)
	}
	if len(result.BatchErrors) != 1 {
		t.Fatalf("expected 1 batch error, got %d", len(result.BatchErrors))
	}
	if result.BatchErrors[0].StartIndex != 500 || result.BatchErrors[0].Count != 500 {
		t.Errorf("unexpected batch error window: %+v", result.BatchErrors[0])
	}
}

func TestDoRequestStatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
		retryable   bool
	}{
		{name: "Rate Limit", status: 429, body: "slow down", rateLimited: true, retryable: true},
		{name: "Server Error", status: 502, body: "bad gateway", retryable: true},
		{name: "Unauthorized", status: 401, body: "bad key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := testClient(srv)

			_, err := client.FetchPage(context.Background(), testCreds(), "accounts", "")
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Body != tt.body {
				t.Errorf("Body = %q, want %q", apiErr.Body, tt.body)
			}
			if apiErr.RateLimited() != tt.rateLimited {
				t.Errorf("RateLimited() = %v, want %v", apiErr.RateLimited(), tt.rateLimited)
			}
			if apiErr.Retryable() != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", apiErr.Retryable(), tt.retryable)
			}
		})
	}
}

func TestGetTableColumnsInference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := queryResult{
			Rows: []map[string]interface{}{{
				"$rowID": "r1",
				"Name":   "Acme",
				"Amount": 42.5,
				"Paid":   true,
				"Tags":   []interface{}{"a", "b"},
			}},
		}
		json.NewEncoder(w).Encode([]queryResult{page})
	}))
	defer srv.Close()

	client := testClient(srv)

	columns, err := client.GetTableColumns(context.Background(), testCreds(), "invoices")
	if err != nil {
		t.Fatalf("GetTableColumns() error = %v", err)
	}

	types := map[string]string{}
	for _, col := range columns {
		types[col.ID] = col.Type
	}

	want := map[string]string{
		"$rowID": "string",
		"Name":   "string",
		"Amount": "number",
		"Paid":   "boolean",
		"Tags":   "string", // structured values fall back to string
	}
	for id, typ := range want {
		if types[id] != typ {
			t.Errorf("column %s type = %q, want %q", id, types[id], typ)
		}
	}
}

func TestMissingCredentials(t *testing.T) {
	client := &HTTPClient{baseURL: "http://unused", httpClient: http.DefaultClient}

	if _, err := client.FetchPage(context.Background(), Credentials{}, "accounts", ""); err == nil {
		t.Error("expected error for missing credentials")
	}
}
