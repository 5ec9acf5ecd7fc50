package mapping

import (
	"context"
	"fmt"

	"go-glidesync/pkg/utils"

	"go.uber.org/zap"
)

// RunPurger removes the sync runs and error records owned by a mapping.
// Implemented by the sync feature; deleting a mapping must not leave logs
// behind that bleed into other mappings' views.
type RunPurger interface {
	PurgeMapping(ctx context.Context, mappingID string) error
}

type MappingService interface {
	// CreateMapping and UpdateMapping run the validator first; an invalid
	// mapping is never persisted and the result says why.
	CreateMapping(ctx context.Context, m *Mapping) (*ValidationResult, error)
	UpdateMapping(ctx context.Context, id string, m *Mapping) (*ValidationResult, error)

	GetMapping(ctx context.Context, id string) (*Mapping, error)
	ListMappings(ctx context.Context) ([]Mapping, error)
	DeleteMapping(ctx context.Context, id string) error

	// SetEnabled toggles syncing. Enabling re-validates against the live
	// schema; disabling is always allowed.
	SetEnabled(ctx context.Context, id string, enabled bool) (*ValidationResult, error)

	// ValidateMapping re-checks a stored mapping on demand.
	ValidateMapping(ctx context.Context, id string) (*ValidationResult, error)
}

type MappingServiceImpl struct {
	repo      MappingRepository
	validator *Validator
	purger    RunPurger
	logger    *zap.Logger
}

func NewMappingService(repo MappingRepository, validator *Validator, purger RunPurger, logger *zap.Logger) MappingService {
	return &MappingServiceImpl{
		repo:      repo,
		validator: validator,
		purger:    purger,
		logger:    logger,
	}
}

func (s *MappingServiceImpl) CreateMapping(ctx context.Context, m *Mapping) (*ValidationResult, error) {
	applyDefaults(m)

	result := s.validator.Validate(ctx, m)
	if !result.IsValid {
		return result, nil
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.logger.Info("Mapping created",
		zap.String("mappingId", m.ID.Hex()),
		zap.String("table", m.DestinationTable))
	return result, nil
}

func (s *MappingServiceImpl) UpdateMapping(ctx context.Context, id string, m *Mapping) (*ValidationResult, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.ID = existing.ID
	m.CreatedAt = existing.CreatedAt
	applyDefaults(m)

	result := s.validator.Validate(ctx, m)
	if !result.IsValid {
		return result, nil
	}

	if err := s.repo.Replace(ctx, m); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *MappingServiceImpl) GetMapping(ctx context.Context, id string) (*Mapping, error) {
	return s.repo.Get(ctx, id)
}

func (s *MappingServiceImpl) ListMappings(ctx context.Context) ([]Mapping, error) {
	return s.repo.List(ctx)
}

func (s *MappingServiceImpl) DeleteMapping(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}

	if s.purger != nil {
		if err := s.purger.PurgeMapping(ctx, id); err != nil {
			return fmt.Errorf("failed to purge sync history: %w", err)
		}
	}

	return s.repo.Delete(ctx, id)
}

func (s *MappingServiceImpl) SetEnabled(ctx context.Context, id string, enabled bool) (*ValidationResult, error) {
	if enabled {
		m, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		result := s.validator.Validate(ctx, m)
		if !result.IsValid {
			return result, nil
		}
	}

	if err := s.repo.Update(ctx, id, map[string]interface{}{"enabled": enabled}); err != nil {
		return nil, err
	}
	return &ValidationResult{IsValid: true}, nil
}

func (s *MappingServiceImpl) ValidateMapping(ctx context.Context, id string) (*ValidationResult, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.validator.Validate(ctx, m), nil
}

func applyDefaults(m *Mapping) {
	if m.DestinationTable == "" && m.GlideTableName != "" {
		m.DestinationTable = "gl_" + utils.TableSlug(m.GlideTableName)
	}
	if m.SyncDirection == "" {
		m.SyncDirection = DirectionToDestination
	}
	if m.SyncFrequency == "" {
		m.SyncFrequency = FrequencyManual
	}
}
