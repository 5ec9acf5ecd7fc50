package mapping

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeSchema serves canned column lists per table
type fakeSchema struct {
	tables map[string][]string
	err    error
}

func (f *fakeSchema) GetTableColumns(ctx context.Context, table string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tables[table], nil
}

func validMapping() *Mapping {
	return &Mapping{
		ConnectionID:     primitive.NewObjectID(),
		GlideTableID:     "native-table-1",
		GlideTableName:   "Accounts",
		DestinationTable: "gl_accounts",
		SyncDirection:    DirectionToDestination,
		ColumnMappings: map[string]ColumnMapping{
			"$rowID": {GlideColumnID: "$rowID", DestinationColumn: "glide_row_id", DataType: TypeString, IsRowID: true},
			"Name":   {GlideColumnID: "Name", DestinationColumn: "account_name", DataType: TypeString},
			"wvzr1":  {GlideColumnID: "wvzr1", DestinationColumn: "date_added_client", DataType: TypeDateTime},
		},
	}
}

func accountsSchema() *fakeSchema {
	return &fakeSchema{tables: map[string][]string{
		"gl_accounts": {"id", "glide_row_id", "account_name", "date_added_client"},
	}}
}

func TestValidateHappyPath(t *testing.T) {
	v := NewValidator(accountsSchema())

	result := v.Validate(context.Background(), validMapping())
	if !result.IsValid {
		t.Errorf("expected valid mapping, got: %s", result.Message)
	}
}

func TestValidateMissingFields(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Mapping)
		wantPart string
	}{
		{
			name:     "No Connection",
			mutate:   func(m *Mapping) { m.ConnectionID = primitive.NilObjectID },
			wantPart: "connection_id",
		},
		{
			name:     "No Glide Table",
			mutate:   func(m *Mapping) { m.GlideTableID = "" },
			wantPart: "glide_table_id",
		},
		{
			name:     "No Destination Table",
			mutate:   func(m *Mapping) { m.DestinationTable = "" },
			wantPart: "destination_table",
		},
		{
			name: "All Missing",
			mutate: func(m *Mapping) {
				m.ConnectionID = primitive.NilObjectID
				m.GlideTableID = ""
				m.DestinationTable = ""
			},
			wantPart: "connection_id, glide_table_id, destination_table",
		},
	}

	v := NewValidator(accountsSchema())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMapping()
			tt.mutate(m)

			result := v.Validate(context.Background(), m)
			if result.IsValid {
				t.Fatal("expected invalid mapping")
			}
			if !strings.Contains(result.Message, tt.wantPart) {
				t.Errorf("message %q does not name %q", result.Message, tt.wantPart)
			}
		})
	}
}

func TestValidateNoColumnMappings(t *testing.T) {
	v := NewValidator(accountsSchema())

	m := validMapping()
	m.ColumnMappings = map[string]ColumnMapping{}

	result := v.Validate(context.Background(), m)
	if result.IsValid {
		t.Fatal("expected invalid mapping")
	}
	if !strings.Contains(result.Message, "at least one column mapping") {
		t.Errorf("unexpected message: %s", result.Message)
	}
}

func TestValidateRowIdentityMandatory(t *testing.T) {
	v := NewValidator(accountsSchema())

	m := validMapping()
	delete(m.ColumnMappings, "$rowID")

	result := v.Validate(context.Background(), m)
	if result.IsValid {
		t.Fatal("expected invalid mapping")
	}
	if !strings.Contains(result.Message, "row identity") {
		t.Errorf("message does not state row identity is mandatory: %s", result.Message)
	}
}

func TestValidateRowIdentityTarget(t *testing.T) {
	v := NewValidator(accountsSchema())

	m := validMapping()
	cm := m.ColumnMappings["$rowID"]
	cm.DestinationColumn = "account_name"
	m.ColumnMappings["$rowID"] = cm

	result := v.Validate(context.Background(), m)
	if result.IsValid {
		t.Fatal("expected invalid mapping")
	}
	if !strings.Contains(result.Message, "glide_row_id") {
		t.Errorf("message does not name the required column: %s", result.Message)
	}
}

func TestValidateUnknownColumnsCollected(t *testing.T) {
	v := NewValidator(accountsSchema())

	m := validMapping()
	m.ColumnMappings["X1"] = ColumnMapping{GlideColumnID: "X1", DestinationColumn: "no_such_col", DataType: TypeString}
	m.ColumnMappings["X2"] = ColumnMapping{GlideColumnID: "X2", DestinationColumn: "also_missing", DataType: TypeString}

	result := v.Validate(context.Background(), m)
	if result.IsValid {
		t.Fatal("expected invalid mapping")
	}
	// both offenders reported in one message
	if !strings.Contains(result.Message, "no_such_col") || !strings.Contains(result.Message, "also_missing") {
		t.Errorf("expected both unknown columns in one message, got: %s", result.Message)
	}
}

func TestValidateSchemaLookupFailure(t *testing.T) {
	v := NewValidator(&fakeSchema{err: fmt.Errorf("connection refused")})

	result := v.Validate(context.Background(), validMapping())
	if result.IsValid {
		t.Fatal("expected invalid mapping on schema lookup failure")
	}
	if !strings.Contains(result.Message, "connection refused") {
		t.Errorf("underlying error not attached: %s", result.Message)
	}
}
