package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-glidesync/internal/destination"
	"go-glidesync/internal/features/connection"
	"go-glidesync/internal/features/mapping"
	"go-glidesync/internal/glide"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeMappingRepo struct {
	mapping.MappingRepository
	m       *mapping.Mapping
	updates []map[string]interface{}
}

func (r *fakeMappingRepo) Get(ctx context.Context, id string) (*mapping.Mapping, error) {
	if r.m == nil || r.m.ID.Hex() != id {
		return nil, errors.New("mapping not found")
	}
	return r.m, nil
}

func (r *fakeMappingRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	r.updates = append(r.updates, updates)
	return nil
}

type fakeConnService struct {
	connection.ConnectionService
	conn   *connection.Connection
	synced int
}

func (s *fakeConnService) GetConnection(ctx context.Context, id string) (*connection.Connection, error) {
	return s.conn, nil
}

func (s *fakeConnService) MarkSynced(ctx context.Context, id string) error {
	s.synced++
	return nil
}

type fakeClient struct {
	glide.Client
	pages   map[string]glide.RowPage // keyed by startAt, "" is the first page
	fetchAt []string
	failAt  map[string]error
	onFetch func(startAt string)
}

func (c *fakeClient) FetchPage(ctx context.Context, creds glide.Credentials, tableID, startAt string) (*glide.RowPage, error) {
	c.fetchAt = append(c.fetchAt, startAt)
	if err, ok := c.failAt[startAt]; ok {
		return nil, err
	}
	page, ok := c.pages[startAt]
	if !ok {
		return nil, errors.New("unexpected page request: " + startAt)
	}
	if c.onFetch != nil {
		c.onFetch(startAt)
	}
	return &page, nil
}

type fakeStore struct {
	tables     map[string]map[string]map[string]interface{} // table -> row id -> row
	failBatch  bool
	failRowIDs map[string]bool
	batchCalls int
	rowCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables:     map[string]map[string]map[string]interface{}{},
		failRowIDs: map[string]bool{},
	}
}

func (s *fakeStore) put(table string, row map[string]interface{}) error {
	rowID, _ := row[destination.RowIDColumn].(string)
	if rowID == "" {
		return errors.New("row is missing " + destination.RowIDColumn)
	}
	if s.failRowIDs[rowID] {
		return errors.New("constraint violation on row " + rowID)
	}
	if s.tables[table] == nil {
		s.tables[table] = map[string]map[string]interface{}{}
	}
	s.tables[table][rowID] = row
	return nil
}

func (s *fakeStore) UpsertRows(ctx context.Context, table string, rows []map[string]interface{}) error {
	s.batchCalls++
	if s.failBatch {
		return errors.New("batch insert failed")
	}
	for _, row := range rows {
		if err := s.put(table, row); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) UpsertRow(ctx context.Context, table string, row map[string]interface{}) error {
	s.rowCalls++
	return s.put(table, row)
}

func (s *fakeStore) GetTableColumns(ctx context.Context, table string) ([]string, error) {
	return nil, nil
}

func (s *fakeStore) HasRowID(ctx context.Context, table, rowID string) (bool, error) {
	_, ok := s.tables[table][rowID]
	return ok, nil
}

func (s *fakeStore) CountRows(ctx context.Context, table string) (int64, error) {
	return int64(len(s.tables[table])), nil
}

func (s *fakeStore) FetchRows(ctx context.Context, table string, limit, offset int) ([]map[string]interface{}, error) {
	return nil, nil
}

type fakeRunRepo struct {
	runs   map[string]*SyncRun
	active *SyncRun
	lastID string
}

func newFakeRunRepo() *fakeRunRepo {
	return &fakeRunRepo{runs: map[string]*SyncRun{}}
}

func (r *fakeRunRepo) Create(ctx context.Context, run *SyncRun) error {
	run.ID = primitive.NewObjectID()
	r.runs[run.ID.Hex()] = run
	r.lastID = run.ID.Hex()
	return nil
}

func (r *fakeRunRepo) Get(ctx context.Context, id string) (*SyncRun, error) {
	run, ok := r.runs[id]
	if !ok {
		return nil, errors.New("run not found")
	}
	return run, nil
}

func (r *fakeRunRepo) Update(ctx context.Context, run *SyncRun) error {
	r.runs[run.ID.Hex()] = run
	return nil
}

func (r *fakeRunRepo) List(ctx context.Context, mappingID string, limit int64) ([]SyncRun, error) {
	return nil, nil
}

func (r *fakeRunRepo) GetActive(ctx context.Context, mappingID string) (*SyncRun, error) {
	return r.active, nil
}

func (r *fakeRunRepo) DeleteByMapping(ctx context.Context, mappingID string) error {
	return nil
}

type fakeErrRepo struct {
	created   []SyncError
	retryable []SyncError
	resolved  []string
}

func (r *fakeErrRepo) Create(ctx context.Context, syncErr *SyncError) error {
	syncErr.ID = primitive.NewObjectID()
	r.created = append(r.created, *syncErr)
	return nil
}

func (r *fakeErrRepo) List(ctx context.Context, mappingID string, unresolvedOnly bool, limit int64) ([]SyncError, error) {
	return r.created, nil
}

func (r *fakeErrRepo) ListRetryable(ctx context.Context, mappingID string) ([]SyncError, error) {
	return r.retryable, nil
}

func (r *fakeErrRepo) MarkResolved(ctx context.Context, id, note string) error {
	r.resolved = append(r.resolved, id)
	return nil
}

func (r *fakeErrRepo) DeleteByMapping(ctx context.Context, mappingID string) error {
	return nil
}

func testMapping() *mapping.Mapping {
	return &mapping.Mapping{
		ID:               primitive.NewObjectID(),
		ConnectionID:     primitive.NewObjectID(),
		GlideTableID:     "native-table-accounts",
		DestinationTable: "gl_accounts",
		SyncDirection:    mapping.DirectionToDestination,
		Enabled:          true,
		ColumnMappings: map[string]mapping.ColumnMapping{
			mapping.GlideRowIDField: {
				GlideColumnID:     mapping.GlideRowIDField,
				DestinationColumn: destination.RowIDColumn,
				DataType:          mapping.TypeString,
				IsRowID:           true,
			},
			"Name": {
				GlideColumnID:     "Name",
				GlideColumnName:   "Name",
				DestinationColumn: "account_name",
				DataType:          mapping.TypeString,
			},
			"wvzr1": {
				GlideColumnID:     "wvzr1",
				GlideColumnName:   "Date Added Client",
				DestinationColumn: "date_added_client",
				DataType:          mapping.TypeDateTime,
			},
		},
	}
}

type engineFixture struct {
	engine   *Engine
	mappings *fakeMappingRepo
	conns    *fakeConnService
	client   *fakeClient
	store    *fakeStore
	runs     *fakeRunRepo
	errs     *fakeErrRepo
}

func newEngineFixture(m *mapping.Mapping, client *fakeClient) *engineFixture {
	f := &engineFixture{
		mappings: &fakeMappingRepo{m: m},
		conns: &fakeConnService{conn: &connection.Connection{
			ID:         m.ConnectionID,
			GlideAppID: "app-1",
			APIKey:     "key-1",
		}},
		client: client,
		store:  newFakeStore(),
		runs:   newFakeRunRepo(),
		errs:   &fakeErrRepo{},
	}
	f.engine = NewEngine(f.mappings, f.conns, f.client, f.store, f.runs, f.errs, nil, zap.NewNop(), 0)
	return f
}

func TestRunSyncsAndConvertsRows(t *testing.T) {
	m := testMapping()
	client := &fakeClient{pages: map[string]glide.RowPage{
		"": {Rows: []map[string]interface{}{
			{"$rowID": "r1", "Name": "Acme", "wvzr1": "2024-01-05"},
			{"$rowID": "r2", "Name": "Globex", "wvzr1": ""},
		}},
	}}
	f := newEngineFixture(m, client)

	result, err := f.engine.Run(context.Background(), m.ID.Hex())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != RunStatusCompleted {
		t.Fatalf("expected completed run, got %s", result.Status)
	}
	if result.RecordsProcessed != 2 || result.RecordsFailed != 0 {
		t.Fatalf("expected 2 processed / 0 failed, got %d / %d", result.RecordsProcessed, result.RecordsFailed)
	}

	row := f.store.tables["gl_accounts"]["r1"]
	if row == nil {
		t.Fatal("row r1 was not written")
	}
	if row[destination.RowIDColumn] != "r1" {
		t.Errorf("glide_row_id = %v, want r1", row[destination.RowIDColumn])
	}
	if row["account_name"] != "Acme" {
		t.Errorf("account_name = %v, want Acme", row["account_name"])
	}
	date, ok := row["date_added_client"].(time.Time)
	if !ok {
		t.Fatalf("date_added_client = %T, want time.Time", row["date_added_client"])
	}
	if date.Year() != 2024 || date.Month() != time.January || date.Day() != 5 {
		t.Errorf("date_added_client = %v, want 2024-01-05", date)
	}

	// empty date converts to nil rather than failing the row
	if v := f.store.tables["gl_accounts"]["r2"]["date_added_client"]; v != nil {
		t.Errorf("empty date should convert to nil, got %v", v)
	}

	if f.conns.synced != 1 {
		t.Errorf("connection last_sync_at was not stamped")
	}
	if len(f.mappings.updates) != 1 {
		t.Errorf("mapping last_sync_at was not stamped")
	}
}

func TestRunIsIdempotentOnRowIdentity(t *testing.T) {
	m := testMapping()
	client := &fakeClient{pages: map[string]glide.RowPage{
		"": {Rows: []map[string]interface{}{
			{"$rowID": "r1", "Name": "Acme"},
		}},
	}}
	f := newEngineFixture(m, client)

	if _, err := f.engine.Run(context.Background(), m.ID.Hex()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	client.pages[""] = glide.RowPage{Rows: []map[string]interface{}{
		{"$rowID": "r1", "Name": "Acme Renamed"},
	}}
	if _, err := f.engine.Run(context.Background(), m.ID.Hex()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if n := len(f.store.tables["gl_accounts"]); n != 1 {
		t.Fatalf("expected 1 row after re-sync, got %d", n)
	}
	if got := f.store.tables["gl_accounts"]["r1"]["account_name"]; got != "Acme Renamed" {
		t.Errorf("account_name = %v, want updated value", got)
	}
}

func TestRunFollowsPagination(t *testing.T) {
	m := testMapping()
	client := &fakeClient{pages: map[string]glide.RowPage{
		"":   {Rows: []map[string]interface{}{{"$rowID": "r1"}}, Next: "p2"},
		"p2": {Rows: []map[string]interface{}{{"$rowID": "r2"}}, Next: "p3"},
		"p3": {Rows: []map[string]interface{}{{"$rowID": "r3"}}},
	}}
	f := newEngineFixture(m, client)

	result, err := f.engine.Run(context.Background(), m.ID.Hex())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.RecordsProcessed != 3 {
		t.Errorf("processed = %d, want 3", result.RecordsProcessed)
	}
	want := []string{"", "p2", "p3"}
	if len(client.fetchAt) != len(want) {
		t.Fatalf("fetch calls = %v, want %v", client.fetchAt, want)
	}
	for i := range want {
		if client.fetchAt[i] != want[i] {
			t.Errorf("fetch %d used startAt %q, want %q", i, client.fetchAt[i], want[i])
		}
	}
}

func TestRunSkipsRowsMissingIdentity(t *testing.T) {
	m := testMapping()
	client := &fakeClient{pages: map[string]glide.RowPage{
		"": {Rows: []map[string]interface{}{
			{"$rowID": "r1", "Name": "Acme"},
			{"Name": "No Identity"},
			{"$rowID": "r3", "Name": "Globex"},
		}},
	}}
	f := newEngineFixture(m, client)

	result, err := f.engine.Run(context.Background(), m.ID.Hex())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != RunStatusCompleted {
		t.Fatalf("one bad row must not fail the run, got %s", result.Status)
	}
	if result.RecordsProcessed != 2 || result.RecordsFailed != 1 {
		t.Fatalf("expected 2 processed / 1 failed, got %d / %d", result.RecordsProcessed, result.RecordsFailed)
	}
	if len(f.errs.created) != 1 {
		t.Fatalf("expected 1 recorded error, got %d", len(f.errs.created))
	}
	if f.errs.created[0].Kind != ErrKindValidation {
		t.Errorf("kind = %s, want %s", f.errs.created[0].Kind, ErrKindValidation)
	}
	if f.errs.created[0].Retryable {
		t.Error("a row without identity can never be retried")
	}
}

func TestRunIsolatesBatchFailures(t *testing.T) {
	m := testMapping()
	client := &fakeClient{pages: map[string]glide.RowPage{
		"": {Rows: []map[string]interface{}{
			{"$rowID": "r1"},
			{"$rowID": "r2"},
			{"$rowID": "r3"},
		}},
	}}
	f := newEngineFixture(m, client)
	f.store.failBatch = true
	f.store.failRowIDs["r2"] = true

	result, err := f.engine.Run(context.Background(), m.ID.Hex())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.RecordsProcessed != 2 || result.RecordsFailed != 1 {
		t.Fatalf("expected 2 processed / 1 failed, got %d / %d", result.RecordsProcessed, result.RecordsFailed)
	}
	if f.store.rowCalls != 3 {
		t.Errorf("expected per-row fallback for all 3 rows, got %d calls", f.store.rowCalls)
	}
	if _, ok := f.store.tables["gl_accounts"]["r2"]; ok {
		t.Error("failing row must not be written")
	}
}

func TestRunRefusesDisabledMapping(t *testing.T) {
	m := testMapping()
	m.Enabled = false
	f := newEngineFixture(m, &fakeClient{})

	_, err := f.engine.Run(context.Background(), m.ID.Hex())
	if !errors.Is(err, ErrMappingDisabled) {
		t.Fatalf("err = %v, want ErrMappingDisabled", err)
	}
	if len(f.runs.runs) != 0 {
		t.Error("no run record may exist for a refused sync")
	}
}

func TestRunRefusesConcurrentRun(t *testing.T) {
	m := testMapping()
	f := newEngineFixture(m, &fakeClient{})
	f.runs.active = &SyncRun{MappingID: m.ID, Status: RunStatusProcessing}

	_, err := f.engine.Run(context.Background(), m.ID.Hex())
	if !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("err = %v, want ErrRunInProgress", err)
	}
}

func TestRunFailsWhenFirstPageUnavailable(t *testing.T) {
	m := testMapping()
	client := &fakeClient{
		pages:  map[string]glide.RowPage{},
		failAt: map[string]error{"": &glide.APIError{StatusCode: 503, Body: "unavailable"}},
	}
	f := newEngineFixture(m, client)

	result, err := f.engine.Run(context.Background(), m.ID.Hex())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != RunStatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	run := f.runs.runs[result.RunID]
	if run == nil || run.Status != RunStatusFailed {
		t.Fatal("run record must end as failed")
	}
	if f.conns.synced != 0 {
		t.Error("a failed run must not stamp last_sync_at")
	}
}

func TestRunRecoverableMidRunFetchFailure(t *testing.T) {
	m := testMapping()
	client := &fakeClient{
		pages: map[string]glide.RowPage{
			"": {Rows: []map[string]interface{}{{"$rowID": "r1"}}, Next: "p2"},
		},
		failAt: map[string]error{"p2": &glide.APIError{StatusCode: 429, Body: "slow down"}},
	}
	f := newEngineFixture(m, client)

	result, err := f.engine.Run(context.Background(), m.ID.Hex())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != RunStatusCompleted {
		t.Fatalf("status = %s, want completed with errors", result.Status)
	}
	if result.RecordsProcessed != 1 {
		t.Errorf("processed = %d, want 1", result.RecordsProcessed)
	}
	if len(f.errs.created) != 1 {
		t.Fatalf("expected 1 recorded error, got %d", len(f.errs.created))
	}
	if f.errs.created[0].Kind != ErrKindRateLimit || !f.errs.created[0].Retryable {
		t.Errorf("rate limiting must be recorded as retryable RATE_LIMIT, got %+v", f.errs.created[0])
	}
}

func TestCancelDrainsRunAtPageBoundary(t *testing.T) {
	m := testMapping()
	client := &fakeClient{pages: map[string]glide.RowPage{
		"":   {Rows: []map[string]interface{}{{"$rowID": "r1"}}, Next: "p2"},
		"p2": {Rows: []map[string]interface{}{{"$rowID": "r2"}}},
	}}
	f := newEngineFixture(m, client)
	client.onFetch = func(startAt string) {
		if startAt == "" {
			if err := f.engine.Cancel(f.runs.lastID); err != nil {
				t.Errorf("Cancel: %v", err)
			}
		}
	}

	result, err := f.engine.Run(context.Background(), m.ID.Hex())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Status != RunStatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	run := f.runs.runs[result.RunID]
	if run.Message != "cancelled" {
		t.Errorf("message = %q, want cancelled", run.Message)
	}
	if result.RecordsProcessed != 1 {
		t.Errorf("processed = %d, want only the first page", result.RecordsProcessed)
	}
}

func TestRunRecordsTransformFailuresButKeepsRow(t *testing.T) {
	m := testMapping()
	cm := m.ColumnMappings["Name"]
	cm.TransformScript = `this is not a script`
	m.ColumnMappings["Name"] = cm

	client := &fakeClient{pages: map[string]glide.RowPage{
		"": {Rows: []map[string]interface{}{{"$rowID": "r1", "Name": "Acme"}}},
	}}
	f := newEngineFixture(m, client)

	result, err := f.engine.Run(context.Background(), m.ID.Hex())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.RecordsProcessed != 1 {
		t.Fatalf("row with a broken transform must still sync, processed = %d", result.RecordsProcessed)
	}
	if got := f.store.tables["gl_accounts"]["r1"]["account_name"]; got != "Acme" {
		t.Errorf("account_name = %v, want untransformed value", got)
	}
	if len(f.errs.created) != 1 || f.errs.created[0].Kind != ErrKindTransform {
		t.Fatalf("expected one TRANSFORM_ERROR, got %+v", f.errs.created)
	}
}

func TestRetryFailedResolvesRecoveredRows(t *testing.T) {
	m := testMapping()
	f := newEngineFixture(m, &fakeClient{})
	f.errs.retryable = []SyncError{
		{ID: primitive.NewObjectID(), Record: map[string]interface{}{"$rowID": "r1", "Name": "Acme"}},
		{ID: primitive.NewObjectID(), Record: map[string]interface{}{"Name": "still broken"}},
		{ID: primitive.NewObjectID()}, // no payload, nothing to retry
	}

	result, err := f.engine.RetryFailed(context.Background(), m.ID.Hex())
	if err != nil {
		t.Fatalf("RetryFailed returned error: %v", err)
	}
	if result.Attempted != 2 || result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("got %+v, want 2 attempted / 1 succeeded / 1 failed", result)
	}
	if len(f.errs.resolved) != 1 {
		t.Fatalf("expected 1 resolved error, got %d", len(f.errs.resolved))
	}
	if _, ok := f.store.tables["gl_accounts"]["r1"]; !ok {
		t.Error("retried row was not written")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      ErrorKind
		retryable bool
	}{
		{"rate limited", &glide.APIError{StatusCode: 429}, ErrKindRateLimit, true},
		{"server error", &glide.APIError{StatusCode: 502}, ErrKindAPI, true},
		{"client error", &glide.APIError{StatusCode: 400}, ErrKindAPI, false},
		{"unauthorized", &glide.APIError{StatusCode: 401}, ErrKindAPI, false},
		{"deadline", context.DeadlineExceeded, ErrKindNetwork, true},
		{"transport", errors.New("connection refused"), ErrKindNetwork, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, retryable := classifyError(tt.err)
			if kind != tt.kind || retryable != tt.retryable {
				t.Errorf("classifyError(%v) = %s/%v, want %s/%v", tt.err, kind, retryable, tt.kind, tt.retryable)
			}
		})
	}
}
