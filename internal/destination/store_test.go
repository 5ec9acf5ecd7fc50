package destination

import (
	"strings"
	"testing"
)

func TestBuildUpsertQuery(t *testing.T) {
	rows := []map[string]interface{}{
		{"glide_row_id": "r1", "account_name": "Acme"},
		{"glide_row_id": "r2", "account_name": "Globex", "balance": 12.5},
	}

	query, args, err := buildUpsertQuery("gl_accounts", rows)
	if err != nil {
		t.Fatalf("buildUpsertQuery() error = %v", err)
	}

	if !strings.HasPrefix(query, `INSERT INTO "gl_accounts"`) {
		t.Errorf("unexpected query prefix: %s", query)
	}
	if !strings.Contains(query, `ON CONFLICT ("glide_row_id") DO UPDATE SET`) {
		t.Errorf("missing conflict clause: %s", query)
	}
	if strings.Contains(query, `"glide_row_id" = EXCLUDED."glide_row_id"`) {
		t.Errorf("conflict key must not be updated in place: %s", query)
	}
	if !strings.Contains(query, `"account_name" = EXCLUDED."account_name"`) {
		t.Errorf("missing update expression: %s", query)
	}

	// union of columns: account_name, balance, glide_row_id per row
	if len(args) != 6 {
		t.Errorf("expected 6 args (3 columns x 2 rows), got %d", len(args))
	}
	// first row has no balance, so its slot is NULL
	if args[1] != nil {
		t.Errorf("expected nil for missing balance, got %v", args[1])
	}
}

func TestBuildUpsertQueryRequiresRowID(t *testing.T) {
	rows := []map[string]interface{}{
		{"account_name": "Acme"},
	}

	if _, _, err := buildUpsertQuery("gl_accounts", rows); err == nil {
		t.Error("expected error for row without glide_row_id")
	}
}

func TestBuildUpsertQueryIdentifierQuoting(t *testing.T) {
	rows := []map[string]interface{}{
		{"glide_row_id": "r1", `weird"col`: 1},
	}

	query, _, err := buildUpsertQuery("gl_accounts", rows)
	if err != nil {
		t.Fatalf("buildUpsertQuery() error = %v", err)
	}

	if !strings.Contains(query, `"weird""col"`) {
		t.Errorf("identifier not quoted safely: %s", query)
	}
}
