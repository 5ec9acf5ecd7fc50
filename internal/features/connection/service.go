package connection

import (
	"context"
	"fmt"
	"time"

	"go-glidesync/internal/glide"

	"go.uber.org/zap"
)

type ConnectionService interface {
	CreateConnection(ctx context.Context, conn *Connection) error
	GetConnection(ctx context.Context, id string) (*Connection, error)
	ListConnections(ctx context.Context) ([]Connection, error)
	UpdateConnection(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteConnection(ctx context.Context, id string) error

	// TestConnection probes the Glide app and records the outcome on the
	// connection's status flag.
	TestConnection(ctx context.Context, id string) error

	// ListTables and GetTableColumns expose Glide metadata for the
	// mapping-builder UI.
	ListTables(ctx context.Context, id string) ([]glide.Table, error)
	GetTableColumns(ctx context.Context, id, tableID string) ([]glide.Column, error)

	// MarkSynced stamps last_sync_at after a successful run.
	MarkSynced(ctx context.Context, id string) error
}

type ConnectionServiceImpl struct {
	repo   ConnectionRepository
	client glide.Client
	logger *zap.Logger
}

func NewConnectionService(repo ConnectionRepository, client glide.Client, logger *zap.Logger) ConnectionService {
	return &ConnectionServiceImpl{
		repo:   repo,
		client: client,
		logger: logger,
	}
}

func (s *ConnectionServiceImpl) CreateConnection(ctx context.Context, conn *Connection) error {
	if conn.Name == "" || conn.GlideAppID == "" || conn.APIKey == "" {
		return fmt.Errorf("name, glide_app_id and api_key are required")
	}
	return s.repo.Create(ctx, conn)
}

func (s *ConnectionServiceImpl) GetConnection(ctx context.Context, id string) (*Connection, error) {
	return s.repo.Get(ctx, id)
}

func (s *ConnectionServiceImpl) ListConnections(ctx context.Context) ([]Connection, error) {
	return s.repo.List(ctx)
}

func (s *ConnectionServiceImpl) UpdateConnection(ctx context.Context, id string, updates map[string]interface{}) error {
	return s.repo.Update(ctx, id, updates)
}

func (s *ConnectionServiceImpl) DeleteConnection(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *ConnectionServiceImpl) TestConnection(ctx context.Context, id string) error {
	conn, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	probeErr := s.client.TestConnection(ctx, conn.Credentials())

	status := StatusActive
	if probeErr != nil {
		status = StatusError
		s.logger.Warn("Connection test failed",
			zap.String("connection", conn.Name),
			zap.Error(probeErr))
	}

	if err := s.repo.Update(ctx, id, map[string]interface{}{"status": status}); err != nil {
		return err
	}

	return probeErr
}

func (s *ConnectionServiceImpl) ListTables(ctx context.Context, id string) ([]glide.Table, error) {
	conn, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.client.ListTables(ctx, conn.Credentials())
}

func (s *ConnectionServiceImpl) GetTableColumns(ctx context.Context, id, tableID string) ([]glide.Column, error) {
	conn, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.client.GetTableColumns(ctx, conn.Credentials(), tableID)
}

func (s *ConnectionServiceImpl) MarkSynced(ctx context.Context, id string) error {
	return s.repo.Update(ctx, id, map[string]interface{}{
		"last_sync_at": time.Now(),
		"status":       StatusActive,
	})
}
