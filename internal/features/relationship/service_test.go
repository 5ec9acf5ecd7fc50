package relationship

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeCandidateRepo struct {
	CandidateRepository
	upserted []Candidate
	pending  []Candidate
	resolved []string
	attempts map[string]bool // id -> marked failed
	targets  map[string]int64
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{attempts: map[string]bool{}}
}

func (r *fakeCandidateRepo) Upsert(ctx context.Context, candidate *Candidate) error {
	r.upserted = append(r.upserted, *candidate)
	return nil
}

func (r *fakeCandidateRepo) ListPending(ctx context.Context, targetTable string) ([]Candidate, error) {
	if targetTable == "" {
		return r.pending, nil
	}
	var out []Candidate
	for _, c := range r.pending {
		if c.TargetTable == targetTable {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCandidateRepo) PendingTargets(ctx context.Context) (map[string]int64, error) {
	return r.targets, nil
}

func (r *fakeCandidateRepo) MarkResolved(ctx context.Context, id string) error {
	r.resolved = append(r.resolved, id)
	return nil
}

func (r *fakeCandidateRepo) MarkAttempt(ctx context.Context, id string, failed bool) error {
	r.attempts[id] = failed
	return nil
}

type fakeDest struct {
	rowIDs map[string]map[string]bool // table -> row id set
	counts map[string]int64
}

func (d *fakeDest) HasRowID(ctx context.Context, table, rowID string) (bool, error) {
	return d.rowIDs[table][rowID], nil
}

func (d *fakeDest) CountRows(ctx context.Context, table string) (int64, error) {
	return d.counts[table], nil
}

func (d *fakeDest) GetTableColumns(ctx context.Context, table string) ([]string, error) {
	return nil, nil
}

func (d *fakeDest) UpsertRows(ctx context.Context, table string, rows []map[string]interface{}) error {
	return nil
}

func (d *fakeDest) UpsertRow(ctx context.Context, table string, row map[string]interface{}) error {
	return nil
}

func (d *fakeDest) FetchRows(ctx context.Context, table string, limit, offset int) ([]map[string]interface{}, error) {
	return nil, nil
}

func TestTargetTable(t *testing.T) {
	tests := []struct {
		column string
		want   string
	}{
		{"rowid_clients", "gl_clients"},
		{"rowid_purchase_orders", "gl_purchase_orders"},
		{"rowid_", ""},
	}
	for _, tt := range tests {
		if got := TargetTable(tt.column); got != tt.want {
			t.Errorf("TargetTable(%q) = %q, want %q", tt.column, got, tt.want)
		}
	}
}

func TestRecordCandidates(t *testing.T) {
	repo := newFakeCandidateRepo()
	svc := NewRelationshipService(repo, &fakeDest{}, zap.NewNop())

	row := map[string]interface{}{
		"glide_row_id":  "r1",
		"account_name":  "Acme",
		"rowid_clients": "c42",
		"rowid_vendors": "", // empty reference, nothing to resolve
	}
	if err := svc.RecordCandidates(context.Background(), "gl_invoices", row); err != nil {
		t.Fatalf("RecordCandidates: %v", err)
	}

	if len(repo.upserted) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(repo.upserted))
	}
	c := repo.upserted[0]
	if c.SourceTable != "gl_invoices" || c.SourceRowID != "r1" {
		t.Errorf("source = %s/%s, want gl_invoices/r1", c.SourceTable, c.SourceRowID)
	}
	if c.SourceColumn != "rowid_clients" || c.TargetTable != "gl_clients" || c.RowIDValue != "c42" {
		t.Errorf("candidate = %+v, want rowid_clients -> gl_clients c42", c)
	}
}

func TestRecordCandidatesIgnoresRowsWithoutIdentity(t *testing.T) {
	repo := newFakeCandidateRepo()
	svc := NewRelationshipService(repo, &fakeDest{}, zap.NewNop())

	row := map[string]interface{}{"rowid_clients": "c42"}
	if err := svc.RecordCandidates(context.Background(), "gl_invoices", row); err != nil {
		t.Fatalf("RecordCandidates: %v", err)
	}
	if len(repo.upserted) != 0 {
		t.Fatalf("expected no candidates for an unidentified row, got %d", len(repo.upserted))
	}
}

func TestMapAllRelationships(t *testing.T) {
	repo := newFakeCandidateRepo()
	resolvableID := primitive.NewObjectID()
	pendingID := primitive.NewObjectID()
	exhaustedID := primitive.NewObjectID()
	repo.pending = []Candidate{
		{ID: resolvableID, TargetTable: "gl_clients", RowIDValue: "c1"},
		{ID: pendingID, TargetTable: "gl_clients", RowIDValue: "missing"},
		{ID: exhaustedID, TargetTable: "gl_clients", RowIDValue: "missing", Attempts: MaxResolutionAttempts - 1},
	}
	dest := &fakeDest{rowIDs: map[string]map[string]bool{
		"gl_clients": {"c1": true},
	}}
	svc := NewRelationshipService(repo, dest, zap.NewNop())

	summary, err := svc.MapAllRelationships(context.Background(), "")
	if err != nil {
		t.Fatalf("MapAllRelationships: %v", err)
	}
	if summary.Scanned != 3 || summary.Resolved != 1 || summary.Pending != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want 3 scanned / 1 resolved / 1 pending / 1 failed", summary)
	}

	if len(repo.resolved) != 1 || repo.resolved[0] != resolvableID.Hex() {
		t.Errorf("resolved = %v, want [%s]", repo.resolved, resolvableID.Hex())
	}
	if failed := repo.attempts[exhaustedID.Hex()]; !failed {
		t.Error("candidate past the attempt cap must be marked failed")
	}
	if failed := repo.attempts[pendingID.Hex()]; failed {
		t.Error("candidate with attempts remaining must stay pending")
	}
}

func TestMapAllRelationshipsTableFilter(t *testing.T) {
	repo := newFakeCandidateRepo()
	repo.pending = []Candidate{
		{ID: primitive.NewObjectID(), TargetTable: "gl_clients", RowIDValue: "c1"},
		{ID: primitive.NewObjectID(), TargetTable: "gl_vendors", RowIDValue: "v1"},
	}
	dest := &fakeDest{rowIDs: map[string]map[string]bool{
		"gl_clients": {"c1": true},
		"gl_vendors": {"v1": true},
	}}
	svc := NewRelationshipService(repo, dest, zap.NewNop())

	summary, err := svc.MapAllRelationships(context.Background(), "gl_clients")
	if err != nil {
		t.Fatalf("MapAllRelationships: %v", err)
	}
	if summary.Scanned != 1 || summary.Resolved != 1 {
		t.Fatalf("summary = %+v, want only the gl_clients candidate", summary)
	}
}

func TestValidateRelationships(t *testing.T) {
	repo := newFakeCandidateRepo()
	repo.targets = map[string]int64{
		"gl_clients": 3,
		"gl_vendors": 2,
	}
	dest := &fakeDest{counts: map[string]int64{
		"gl_clients": 120,
		"gl_vendors": 0,
	}}
	svc := NewRelationshipService(repo, dest, zap.NewNop())

	checks, err := svc.ValidateRelationships(context.Background())
	if err != nil {
		t.Fatalf("ValidateRelationships: %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(checks))
	}

	// sorted by target table
	if !checks[0].Resolvable || checks[0].TargetTable != "gl_clients" {
		t.Errorf("gl_clients check = %+v, want resolvable", checks[0])
	}
	if checks[1].Resolvable || checks[1].TargetTable != "gl_vendors" {
		t.Errorf("empty gl_vendors must be flagged unresolvable, got %+v", checks[1])
	}
}
