package relationship

import (
	"context"
	"sort"
	"strings"

	"go-glidesync/internal/destination"

	"go.uber.org/zap"
)

type RelationshipService interface {
	// RecordCandidates scans one upserted destination row for rowid_*
	// columns and registers each reference as a pending candidate.
	RecordCandidates(ctx context.Context, sourceTable string, row map[string]interface{}) error

	// MapAllRelationships bulk-resolves pending candidates, optionally
	// scoped to one target table.
	MapAllRelationships(ctx context.Context, tableFilter string) (*MappingSummary, error)

	// ValidateRelationships reports, per target table with pending
	// candidates, whether the table has any rows to resolve against.
	ValidateRelationships(ctx context.Context) ([]TableCheck, error)

	ListCandidates(ctx context.Context, status string, limit int64) ([]Candidate, error)
}

type RelationshipServiceImpl struct {
	repo   CandidateRepository
	dest   destination.Store
	logger *zap.Logger
}

func NewRelationshipService(repo CandidateRepository, dest destination.Store, logger *zap.Logger) RelationshipService {
	return &RelationshipServiceImpl{
		repo:   repo,
		dest:   dest,
		logger: logger,
	}
}

// TargetTable derives the destination table a rowid_* column points at.
// rowid_clients references gl_clients, following the same gl_ prefix
// every synced table carries.
func TargetTable(column string) string {
	suffix := strings.TrimPrefix(column, RowIDColumnPrefix)
	if suffix == "" {
		return ""
	}
	return "gl_" + suffix
}

func (s *RelationshipServiceImpl) RecordCandidates(ctx context.Context, sourceTable string, row map[string]interface{}) error {
	sourceRowID, _ := row[destination.RowIDColumn].(string)
	if sourceRowID == "" {
		return nil
	}

	for column, raw := range row {
		if !strings.HasPrefix(column, RowIDColumnPrefix) {
			continue
		}
		value, _ := raw.(string)
		if value == "" {
			continue
		}
		target := TargetTable(column)
		if target == "" {
			continue
		}

		candidate := &Candidate{
			SourceTable:  sourceTable,
			SourceColumn: column,
			SourceRowID:  sourceRowID,
			TargetTable:  target,
			RowIDValue:   value,
		}
		if err := s.repo.Upsert(ctx, candidate); err != nil {
			s.logger.Warn("Failed to record relationship candidate",
				zap.String("sourceTable", sourceTable),
				zap.String("column", column),
				zap.Error(err))
		}
	}
	return nil
}

func (s *RelationshipServiceImpl) MapAllRelationships(ctx context.Context, tableFilter string) (*MappingSummary, error) {
	pending, err := s.repo.ListPending(ctx, tableFilter)
	if err != nil {
		return nil, err
	}

	summary := &MappingSummary{Scanned: len(pending)}
	for i := range pending {
		candidate := &pending[i]

		exists, err := s.dest.HasRowID(ctx, candidate.TargetTable, candidate.RowIDValue)
		if err != nil {
			summary.Pending++
			continue
		}

		if exists {
			if err := s.repo.MarkResolved(ctx, candidate.ID.Hex()); err != nil {
				summary.Pending++
				continue
			}
			summary.Resolved++
			continue
		}

		exhausted := candidate.Attempts+1 >= MaxResolutionAttempts
		if err := s.repo.MarkAttempt(ctx, candidate.ID.Hex(), exhausted); err != nil {
			summary.Pending++
			continue
		}
		if exhausted {
			summary.Failed++
		} else {
			summary.Pending++
		}
	}

	s.logger.Info("Relationship mapping pass finished",
		zap.String("tableFilter", tableFilter),
		zap.Int("scanned", summary.Scanned),
		zap.Int("resolved", summary.Resolved),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

func (s *RelationshipServiceImpl) ValidateRelationships(ctx context.Context) ([]TableCheck, error) {
	targets, err := s.repo.PendingTargets(ctx)
	if err != nil {
		return nil, err
	}

	checks := make([]TableCheck, 0, len(targets))
	for target, pending := range targets {
		count, err := s.dest.CountRows(ctx, target)
		if err != nil {
			// table may not exist yet; report it as unresolvable
			checks = append(checks, TableCheck{TargetTable: target, Pending: pending})
			continue
		}
		checks = append(checks, TableCheck{
			TargetTable: target,
			RowCount:    count,
			Pending:     pending,
			Resolvable:  count > 0,
		})
	}

	sort.Slice(checks, func(i, j int) bool { return checks[i].TargetTable < checks[j].TargetTable })
	return checks, nil
}

func (s *RelationshipServiceImpl) ListCandidates(ctx context.Context, status string, limit int64) ([]Candidate, error) {
	return s.repo.List(ctx, status, limit)
}
