package mapping

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go-glidesync/internal/destination"
)

// ValidationResult is the structured outcome of a mapping validation.
// Validation never throws for expected failures; infrastructure problems
// (schema lookup) are reported the same way with the underlying message.
type ValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message,omitempty"`
}

// SchemaIntrospector is the slice of the destination store the validator
// needs. destination.Store satisfies it.
type SchemaIntrospector interface {
	GetTableColumns(ctx context.Context, table string) ([]string, error)
}

type Validator struct {
	schema SchemaIntrospector
}

func NewValidator(schema SchemaIntrospector) *Validator {
	return &Validator{schema: schema}
}

// Validate checks a candidate mapping, short-circuiting on the first
// failed check: required fields, at least one column mapping, a row
// identity mapping, and finally every destination column against the live
// schema (unknown columns are collected and reported together).
func (v *Validator) Validate(ctx context.Context, m *Mapping) *ValidationResult {
	var missing []string
	if m.ConnectionID.IsZero() {
		missing = append(missing, "connection_id")
	}
	if m.GlideTableID == "" {
		missing = append(missing, "glide_table_id")
	}
	if m.DestinationTable == "" {
		missing = append(missing, "destination_table")
	}
	if len(missing) > 0 {
		return &ValidationResult{
			Message: fmt.Sprintf("missing required field(s): %s", strings.Join(missing, ", ")),
		}
	}

	if len(m.ColumnMappings) == 0 {
		return &ValidationResult{
			Message: "at least one column mapping is required",
		}
	}

	rowID, ok := m.RowIDMapping()
	if !ok {
		return &ValidationResult{
			Message: fmt.Sprintf("a row identity mapping (%s -> %s) is mandatory", GlideRowIDField, destination.RowIDColumn),
		}
	}
	if rowID.DestinationColumn != destination.RowIDColumn {
		return &ValidationResult{
			Message: fmt.Sprintf("the row identity mapping must target the %s column, not %q", destination.RowIDColumn, rowID.DestinationColumn),
		}
	}

	liveColumns, err := v.schema.GetTableColumns(ctx, m.DestinationTable)
	if err != nil {
		return &ValidationResult{
			Message: fmt.Sprintf("schema lookup for table %s failed: %v", m.DestinationTable, err),
		}
	}

	known := make(map[string]bool, len(liveColumns))
	for _, col := range liveColumns {
		known[col] = true
	}

	var unknown []string
	for _, cm := range m.ColumnMappings {
		if cm.DestinationColumn == "" {
			unknown = append(unknown, fmt.Sprintf("(unset for %s)", cm.GlideColumnID))
			continue
		}
		if !known[cm.DestinationColumn] {
			unknown = append(unknown, cm.DestinationColumn)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationResult{
			Message: fmt.Sprintf("destination table %s has no column(s): %s", m.DestinationTable, strings.Join(unknown, ", ")),
		}
	}

	return &ValidationResult{IsValid: true}
}
