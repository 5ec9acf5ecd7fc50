package sync

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go-glidesync/internal/features/mapping"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type SyncService interface {
	RunSync(ctx context.Context, mappingID string) (*SyncResult, error)
	RetryFailedSync(ctx context.Context, mappingID string) (*RetryResult, error)
	CancelRun(runID string) error
	ListRuns(ctx context.Context, mappingID string, limit int64) ([]SyncRun, error)
	GetRun(ctx context.Context, runID string) (*SyncRun, error)
	ListErrors(ctx context.Context, mappingID string, unresolvedOnly bool, limit int64) ([]SyncError, error)
	ResolveError(ctx context.Context, errorID, note string) error
	ExportErrors(ctx context.Context, mappingID string) (*bytes.Buffer, error)
	PurgeMapping(ctx context.Context, mappingID string) error
	ProcessScheduledSyncs(ctx context.Context) error
}

type SyncServiceImpl struct {
	engine   *Engine
	runs     SyncRunRepository
	errs     SyncErrorRepository
	mappings mapping.MappingRepository
	logger   *zap.Logger
}

func NewSyncService(engine *Engine, runs SyncRunRepository, errs SyncErrorRepository, mappings mapping.MappingRepository, logger *zap.Logger) SyncService {
	return &SyncServiceImpl{
		engine:   engine,
		runs:     runs,
		errs:     errs,
		mappings: mappings,
		logger:   logger,
	}
}

func (s *SyncServiceImpl) RunSync(ctx context.Context, mappingID string) (*SyncResult, error) {
	return s.engine.Run(ctx, mappingID)
}

func (s *SyncServiceImpl) RetryFailedSync(ctx context.Context, mappingID string) (*RetryResult, error) {
	return s.engine.RetryFailed(ctx, mappingID)
}

func (s *SyncServiceImpl) CancelRun(runID string) error {
	return s.engine.Cancel(runID)
}

func (s *SyncServiceImpl) ListRuns(ctx context.Context, mappingID string, limit int64) ([]SyncRun, error) {
	return s.runs.List(ctx, mappingID, limit)
}

func (s *SyncServiceImpl) GetRun(ctx context.Context, runID string) (*SyncRun, error) {
	return s.runs.Get(ctx, runID)
}

func (s *SyncServiceImpl) ListErrors(ctx context.Context, mappingID string, unresolvedOnly bool, limit int64) ([]SyncError, error) {
	return s.errs.List(ctx, mappingID, unresolvedOnly, limit)
}

func (s *SyncServiceImpl) ResolveError(ctx context.Context, errorID, note string) error {
	return s.errs.MarkResolved(ctx, errorID, note)
}

// ExportErrors builds an xlsx workbook of every recorded error for the
// mapping, newest first, for offline triage.
func (s *SyncServiceImpl) ExportErrors(ctx context.Context, mappingID string) (*bytes.Buffer, error) {
	errList, err := s.errs.List(ctx, mappingID, false, 0)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sync Errors"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Timestamp", "Kind", "Message", "Retryable", "Resolved", "Resolution Note"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, syncErr := range errList {
		values := []interface{}{
			syncErr.Timestamp.Format(time.RFC3339),
			string(syncErr.Kind),
			syncErr.Message,
			syncErr.Retryable,
			syncErr.Resolved,
			syncErr.ResolutionNote,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

// PurgeMapping removes all run and error history for a mapping. Called by
// the mapping service before the mapping itself is deleted.
func (s *SyncServiceImpl) PurgeMapping(ctx context.Context, mappingID string) error {
	if err := s.runs.DeleteByMapping(ctx, mappingID); err != nil {
		return err
	}
	return s.errs.DeleteByMapping(ctx, mappingID)
}

// ProcessScheduledSyncs runs every enabled mapping whose frequency window
// has elapsed since its last sync. One mapping failing does not stop the
// rest of the pass.
func (s *SyncServiceImpl) ProcessScheduledSyncs(ctx context.Context) error {
	enabled, err := s.mappings.ListEnabled(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range enabled {
		m := &enabled[i]
		if !shouldRun(m, now) {
			continue
		}

		s.logger.Info("Scheduled sync due",
			zap.String("mappingId", m.ID.Hex()),
			zap.String("frequency", m.SyncFrequency))

		if _, err := s.engine.Run(ctx, m.ID.Hex()); err != nil {
			s.logger.Error("Scheduled sync failed to start",
				zap.String("mappingId", m.ID.Hex()),
				zap.Error(err))
		}
	}
	return nil
}

func shouldRun(m *mapping.Mapping, now time.Time) bool {
	var interval time.Duration
	switch m.SyncFrequency {
	case mapping.FrequencyHourly:
		interval = time.Hour
	case mapping.FrequencyDaily:
		interval = 24 * time.Hour
	default:
		// manual mappings only run on request
		return false
	}

	if m.LastSyncAt.IsZero() {
		return true
	}
	return now.Sub(m.LastSyncAt) >= interval
}
