package connection

import (
	"time"

	"go-glidesync/internal/glide"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusActive = "active"
	StatusError  = "error"
)

// Connection stores the credentials and identity of one Glide app.
type Connection struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name       string             `json:"name" bson:"name"`
	GlideAppID string             `json:"glide_app_id" bson:"glide_app_id"`
	APIKey     string             `json:"api_key" bson:"api_key"`
	Status     string             `json:"status" bson:"status"` // "active", "error"
	LastSyncAt time.Time          `json:"last_sync_at" bson:"last_sync_at"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at" bson:"updated_at"`
}

// Credentials returns the client-facing credential pair.
func (c *Connection) Credentials() glide.Credentials {
	return glide.Credentials{AppID: c.GlideAppID, APIKey: c.APIKey}
}
