package mapping

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GlideRowIDField is the pseudo-column Glide uses for row identity.
const GlideRowIDField = "$rowID"

type DataType string

const (
	TypeString   DataType = "string"
	TypeNumber   DataType = "number"
	TypeBoolean  DataType = "boolean"
	TypeDateTime DataType = "date-time"
	TypeImageURI DataType = "image-uri"
	TypeEmail    DataType = "email-address"
)

type SyncDirection string

const (
	DirectionToDestination SyncDirection = "to_destination"
	DirectionToSource      SyncDirection = "to_source"
	DirectionBoth          SyncDirection = "both"
)

const (
	FrequencyManual = "manual"
	FrequencyHourly = "hourly"
	FrequencyDaily  = "daily"
)

// ColumnMapping binds one Glide column to one destination column.
type ColumnMapping struct {
	GlideColumnID     string   `json:"glide_column_id" bson:"glide_column_id"`
	GlideColumnName   string   `json:"glide_column_name" bson:"glide_column_name"`
	DestinationColumn string   `json:"destination_column" bson:"destination_column"`
	DataType          DataType `json:"data_type" bson:"data_type"`
	IsRowID           bool     `json:"is_row_id" bson:"is_row_id"`
	TransformScript   string   `json:"transform_script,omitempty" bson:"transform_script,omitempty"`
}

// Mapping binds one Glide table to one destination table. Exactly one
// column mapping must carry the row identity ($rowID -> glide_row_id);
// the validator refuses anything else before it can run.
type Mapping struct {
	ID               primitive.ObjectID       `json:"id" bson:"_id,omitempty"`
	ConnectionID     primitive.ObjectID       `json:"connection_id" bson:"connection_id"`
	GlideTableID     string                   `json:"glide_table_id" bson:"glide_table_id"`
	GlideTableName   string                   `json:"glide_table_name" bson:"glide_table_name"`
	DestinationTable string                   `json:"destination_table" bson:"destination_table"`
	ColumnMappings   map[string]ColumnMapping `json:"column_mappings" bson:"column_mappings"` // keyed by Glide column ID
	SyncDirection    SyncDirection            `json:"sync_direction" bson:"sync_direction"`
	Enabled          bool                     `json:"enabled" bson:"enabled"`
	SyncFrequency    string                   `json:"sync_frequency" bson:"sync_frequency"` // "manual", "hourly", "daily"
	LastSyncAt       time.Time                `json:"last_sync_at" bson:"last_sync_at"`
	CreatedAt        time.Time                `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at" bson:"updated_at"`
}

// RowIDMapping returns the column mapping carrying the row identity.
func (m *Mapping) RowIDMapping() (ColumnMapping, bool) {
	if cm, ok := m.ColumnMappings[GlideRowIDField]; ok {
		return cm, true
	}
	for _, cm := range m.ColumnMappings {
		if cm.IsRowID {
			return cm, true
		}
	}
	return ColumnMapping{}, false
}
