package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"time"

	"go-glidesync/internal/destination"
	"go-glidesync/internal/features/connection"
	"go-glidesync/internal/features/mapping"
	"go-glidesync/internal/glide"

	"go.uber.org/zap"
)

var (
	// ErrMappingDisabled is returned before any run record is created.
	ErrMappingDisabled = errors.New("mapping is disabled")

	// ErrRunInProgress enforces one run per mapping at a time.
	ErrRunInProgress = errors.New("a sync run is already in progress for this mapping")
)

// RelationshipRecorder receives upserted rows so rowid_* references can be
// tracked as pending candidates. Resolution is lazy; recording failures
// never fail the referencing row.
type RelationshipRecorder interface {
	RecordCandidates(ctx context.Context, sourceTable string, row map[string]interface{}) error
}

// Engine drives one sync run for one mapping: page through Glide rows,
// convert per the column mappings, upsert into the destination keyed on
// glide_row_id, and account for every failure without aborting the run.
type Engine struct {
	mappings      mapping.MappingRepository
	connections   connection.ConnectionService
	client        glide.Client
	dest          destination.Store
	runs          SyncRunRepository
	errs          SyncErrorRepository
	relationships RelationshipRecorder
	logger        *zap.Logger
	pageLimit     int

	mu         gosync.Mutex
	activeRuns map[string]context.CancelFunc // mapping id -> cancel
	runOwner   map[string]string             // run id -> mapping id
}

func NewEngine(
	mappings mapping.MappingRepository,
	connections connection.ConnectionService,
	client glide.Client,
	dest destination.Store,
	runs SyncRunRepository,
	errs SyncErrorRepository,
	relationships RelationshipRecorder,
	logger *zap.Logger,
	pageLimit int,
) *Engine {
	return &Engine{
		mappings:      mappings,
		connections:   connections,
		client:        client,
		dest:          dest,
		runs:          runs,
		errs:          errs,
		relationships: relationships,
		logger:        logger,
		pageLimit:     pageLimit,
		activeRuns:    map[string]context.CancelFunc{},
		runOwner:      map[string]string{},
	}
}

// Run executes one sync for the mapping. The preconditions (enabled, no
// concurrent run) are checked before a run record exists; after that every
// failure is accounted on the run itself.
func (e *Engine) Run(ctx context.Context, mappingID string) (*SyncResult, error) {
	m, err := e.mappings.Get(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	if !m.Enabled {
		return nil, ErrMappingDisabled
	}

	conn, err := e.connections.GetConnection(ctx, m.ConnectionID.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}

	runCtx, release, err := e.acquire(ctx, mappingID)
	if err != nil {
		return nil, err
	}

	run := &SyncRun{MappingID: m.ID, Status: RunStatusStarted, StartTime: time.Now()}
	if err := e.runs.Create(ctx, run); err != nil {
		release("")
		return nil, err
	}
	e.trackRun(run.ID.Hex(), mappingID)
	defer release(run.ID.Hex())

	run.Status = RunStatusProcessing
	_ = e.runs.Update(ctx, run)

	e.logger.Info("Sync run starting",
		zap.String("mappingId", mappingID),
		zap.String("runId", run.ID.Hex()),
		zap.String("table", m.DestinationTable))

	result := &SyncResult{RunID: run.ID.Hex()}

	var runErr error
	if m.SyncDirection == mapping.DirectionToDestination || m.SyncDirection == mapping.DirectionBoth {
		runErr = e.pullFromGlide(runCtx, m, conn, run, result)
	}
	if runErr == nil && (m.SyncDirection == mapping.DirectionToSource || m.SyncDirection == mapping.DirectionBoth) {
		runErr = e.pushToGlide(runCtx, m, conn, run, result)
	}

	run.EndTime = time.Now()
	run.RecordsProcessed = result.RecordsProcessed
	run.RecordsFailed = result.RecordsFailed

	switch {
	case runErr != nil && errors.Is(runErr, context.Canceled):
		run.Status = RunStatusFailed
		run.Message = "cancelled"
	case runErr != nil:
		run.Status = RunStatusFailed
		run.Message = runErr.Error()
	default:
		run.Status = RunStatusCompleted
		if result.RecordsFailed > 0 {
			run.Message = fmt.Sprintf("completed with %d failed record(s)", result.RecordsFailed)
		} else {
			run.Message = "completed"
		}
	}
	_ = e.runs.Update(ctx, run)
	result.Status = run.Status

	if run.Status == RunStatusCompleted {
		_ = e.mappings.Update(ctx, mappingID, map[string]interface{}{"last_sync_at": time.Now()})
		_ = e.connections.MarkSynced(ctx, m.ConnectionID.Hex())
	}

	e.logger.Info("Sync run finished",
		zap.String("mappingId", mappingID),
		zap.String("runId", run.ID.Hex()),
		zap.String("status", run.Status),
		zap.Int("processed", result.RecordsProcessed),
		zap.Int("failed", result.RecordsFailed))

	return result, nil
}

// Cancel aborts an in-flight run. The run drains at the next page boundary
// and terminates as failed with a "cancelled" message.
func (e *Engine) Cancel(runID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	mappingID, ok := e.runOwner[runID]
	if !ok {
		return fmt.Errorf("no active run with id %s", runID)
	}
	if cancel, ok := e.activeRuns[mappingID]; ok {
		cancel()
		return nil
	}
	return fmt.Errorf("no active run with id %s", runID)
}

func (e *Engine) acquire(ctx context.Context, mappingID string) (context.Context, func(runID string), error) {
	e.mu.Lock()
	if _, busy := e.activeRuns[mappingID]; busy {
		e.mu.Unlock()
		return nil, nil, ErrRunInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.activeRuns[mappingID] = cancel
	e.mu.Unlock()

	// The in-process lock covers this instance; the run store check covers
	// runs started elsewhere or left over from a crash.
	if active, err := e.runs.GetActive(ctx, mappingID); err == nil && active != nil {
		e.mu.Lock()
		delete(e.activeRuns, mappingID)
		e.mu.Unlock()
		cancel()
		return nil, nil, ErrRunInProgress
	}

	release := func(runID string) {
		e.mu.Lock()
		delete(e.activeRuns, mappingID)
		if runID != "" {
			delete(e.runOwner, runID)
		}
		e.mu.Unlock()
		cancel()
	}
	return runCtx, release, nil
}

func (e *Engine) trackRun(runID, mappingID string) {
	e.mu.Lock()
	e.runOwner[runID] = mappingID
	e.mu.Unlock()
}

func (e *Engine) pullFromGlide(ctx context.Context, m *mapping.Mapping, conn *connection.Connection, run *SyncRun, result *SyncResult) error {
	creds := conn.Credentials()
	startAt := ""
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := e.client.FetchPage(ctx, creds, m.GlideTableID, startAt)
		if err != nil {
			if pages == 0 {
				// nothing processed yet; the run could not proceed at all
				return fmt.Errorf("failed to fetch first page: %w", err)
			}
			kind, retryable := classifyError(err)
			e.recordError(ctx, m, run, result, &SyncError{
				Kind:      kind,
				Message:   fmt.Sprintf("page fetch failed mid-run: %v", err),
				Retryable: retryable,
			})
			return nil
		}
		pages++

		batch := make([]map[string]interface{}, 0, len(page.Rows))
		for _, row := range page.Rows {
			converted, convErrs := e.convertRow(m, row)
			for i := range convErrs {
				e.recordError(ctx, m, run, result, &convErrs[i])
			}
			if converted == nil {
				continue
			}
			batch = append(batch, converted)
		}

		e.upsertBatch(ctx, m, run, result, batch)

		if e.relationships != nil {
			for _, converted := range batch {
				_ = e.relationships.RecordCandidates(ctx, m.DestinationTable, converted)
			}
		}

		run.RecordsProcessed = result.RecordsProcessed
		run.RecordsFailed = result.RecordsFailed
		_ = e.runs.Update(ctx, run)

		if page.Next == "" {
			return nil
		}
		if e.pageLimit > 0 && pages >= e.pageLimit {
			e.logger.Warn("Page limit reached, stopping early",
				zap.String("mappingId", m.ID.Hex()),
				zap.Int("pages", pages))
			return nil
		}
		startAt = page.Next
	}
}

// convertRow builds the destination row. The glide_row_id column is set
// unconditionally from $rowID; everything else goes through the converter
// and the optional transform script. A row without identity is a
// validation failure and yields nil.
func (e *Engine) convertRow(m *mapping.Mapping, row map[string]interface{}) (map[string]interface{}, []SyncError) {
	var rowErrs []SyncError

	rowID, _ := row[mapping.GlideRowIDField].(string)
	if rowID == "" {
		rowErrs = append(rowErrs, SyncError{
			Kind:      ErrKindValidation,
			Message:   fmt.Sprintf("row is missing its %s identity value", mapping.GlideRowIDField),
			Record:    row,
			Retryable: false,
		})
		return nil, rowErrs
	}

	converted := map[string]interface{}{
		destination.RowIDColumn: rowID,
	}

	for _, cm := range m.ColumnMappings {
		if cm.GlideColumnID == mapping.GlideRowIDField || cm.IsRowID {
			continue
		}

		value := mapping.ConvertValue(row[cm.GlideColumnID], cm.DataType)

		if cm.TransformScript != "" {
			transformed, err := mapping.ApplyTransform(value, cm.TransformScript)
			if err != nil {
				// degrade to the untransformed value, but surface the failure
				rowErrs = append(rowErrs, SyncError{
					Kind:      ErrKindTransform,
					Message:   fmt.Sprintf("transform for column %s failed: %v", cm.DestinationColumn, err),
					Record:    row,
					Retryable: false,
				})
			} else {
				value = transformed
			}
		}

		converted[cm.DestinationColumn] = value
	}

	return converted, rowErrs
}

// upsertBatch writes the whole batch in one statement. If that fails, each
// row is retried alone so one bad row only costs itself.
func (e *Engine) upsertBatch(ctx context.Context, m *mapping.Mapping, run *SyncRun, result *SyncResult, batch []map[string]interface{}) {
	if len(batch) == 0 {
		return
	}

	if err := e.dest.UpsertRows(ctx, m.DestinationTable, batch); err == nil {
		result.RecordsProcessed += len(batch)
		return
	}

	for _, row := range batch {
		if err := e.dest.UpsertRow(ctx, m.DestinationTable, row); err != nil {
			e.recordError(ctx, m, run, result, &SyncError{
				Kind:      ErrKindValidation,
				Message:   fmt.Sprintf("destination upsert failed: %v", err),
				Record:    row,
				Retryable: false,
			})
			continue
		}
		result.RecordsProcessed++
	}
}

func (e *Engine) pushToGlide(ctx context.Context, m *mapping.Mapping, conn *connection.Connection, run *SyncRun, result *SyncResult) error {
	creds := conn.Credentials()
	inverse := map[string]string{} // destination column -> glide column id
	for _, cm := range m.ColumnMappings {
		inverse[cm.DestinationColumn] = cm.GlideColumnID
	}

	const pageSize = 1000
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := e.dest.FetchRows(ctx, m.DestinationTable, pageSize, offset)
		if err != nil {
			if offset == 0 {
				return fmt.Errorf("failed to read destination rows: %w", err)
			}
			e.recordError(ctx, m, run, result, &SyncError{
				Kind:      ErrKindValidation,
				Message:   fmt.Sprintf("destination read failed mid-push: %v", err),
				Retryable: true,
			})
			return nil
		}
		if len(rows) == 0 {
			return nil
		}

		outbound := make([]map[string]interface{}, 0, len(rows))
		for _, row := range rows {
			out := map[string]interface{}{}
			for destCol, glideCol := range inverse {
				if v, ok := row[destCol]; ok {
					out[glideCol] = v
				}
			}
			outbound = append(outbound, out)
		}

		writeResult, err := e.client.WriteRows(ctx, creds, m.GlideTableID, outbound)
		if err != nil {
			kind, retryable := classifyError(err)
			e.recordError(ctx, m, run, result, &SyncError{
				Kind:      kind,
				Message:   fmt.Sprintf("write to glide failed: %v", err),
				Retryable: retryable,
			})
			return nil
		}

		result.RecordsProcessed += writeResult.RowsWritten
		for _, batchErr := range writeResult.BatchErrors {
			e.recordError(ctx, m, run, result, &SyncError{
				Kind:      ErrKindAPI,
				Message:   fmt.Sprintf("glide batch write failed (%d rows from index %d): %s", batchErr.Count, batchErr.StartIndex, batchErr.Message),
				Retryable: true,
			})
			result.RecordsFailed += batchErr.Count - 1 // recordError counted one
		}

		run.RecordsProcessed = result.RecordsProcessed
		run.RecordsFailed = result.RecordsFailed
		_ = e.runs.Update(ctx, run)

		if len(rows) < pageSize {
			return nil
		}
		offset += pageSize
	}
}

// RetryFailed re-drives the payloads of unresolved retryable errors for a
// mapping. Successes are marked resolved; the mapping's validator state is
// not revisited here.
func (e *Engine) RetryFailed(ctx context.Context, mappingID string) (*RetryResult, error) {
	m, err := e.mappings.Get(ctx, mappingID)
	if err != nil {
		return nil, err
	}

	pending, err := e.errs.ListRetryable(ctx, mappingID)
	if err != nil {
		return nil, err
	}

	result := &RetryResult{}
	for _, syncErr := range pending {
		if syncErr.Record == nil {
			continue
		}
		result.Attempted++

		converted, convErrs := e.convertRow(m, syncErr.Record)
		if converted == nil || len(convErrs) > 0 {
			result.Failed++
			continue
		}

		if err := e.dest.UpsertRow(ctx, m.DestinationTable, converted); err != nil {
			result.Failed++
			continue
		}

		result.Succeeded++
		_ = e.errs.MarkResolved(ctx, syncErr.ID.Hex(), "resolved by retry")
	}

	e.logger.Info("Retry pass finished",
		zap.String("mappingId", mappingID),
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded))

	return result, nil
}

func (e *Engine) recordError(ctx context.Context, m *mapping.Mapping, run *SyncRun, result *SyncResult, syncErr *SyncError) {
	syncErr.MappingID = m.ID
	syncErr.RunID = run.ID
	syncErr.Timestamp = time.Now()

	result.RecordsFailed++
	result.Errors = append(result.Errors, *syncErr)

	if err := e.errs.Create(ctx, syncErr); err != nil {
		e.logger.Error("Failed to persist sync error",
			zap.String("mappingId", m.ID.Hex()),
			zap.Error(err))
	}
}

// classifyError maps a client failure to the error taxonomy. Transport
// failures and timeouts are retryable network errors; 429 is rate
// limiting; other HTTP statuses follow the 5xx-retryable rule.
func classifyError(err error) (ErrorKind, bool) {
	var apiErr *glide.APIError
	if errors.As(err, &apiErr) {
		if apiErr.RateLimited() {
			return ErrKindRateLimit, true
		}
		return ErrKindAPI, apiErr.Retryable()
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "timeout") {
		return ErrKindNetwork, true
	}
	return ErrKindNetwork, true
}
