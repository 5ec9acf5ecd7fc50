package sync

import (
	"context"
	"time"

	"go-glidesync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SyncRunRepository interface {
	Create(ctx context.Context, run *SyncRun) error
	Get(ctx context.Context, id string) (*SyncRun, error)
	Update(ctx context.Context, run *SyncRun) error
	List(ctx context.Context, mappingID string, limit int64) ([]SyncRun, error)
	// GetActive returns the non-terminal run for a mapping, if any. Used
	// to enforce one run per mapping at a time.
	GetActive(ctx context.Context, mappingID string) (*SyncRun, error)
	DeleteByMapping(ctx context.Context, mappingID string) error
}

type SyncErrorRepository interface {
	Create(ctx context.Context, syncErr *SyncError) error
	List(ctx context.Context, mappingID string, unresolvedOnly bool, limit int64) ([]SyncError, error)
	ListRetryable(ctx context.Context, mappingID string) ([]SyncError, error)
	MarkResolved(ctx context.Context, id, note string) error
	DeleteByMapping(ctx context.Context, mappingID string) error
}

type SyncRunRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSyncRunRepository(db *database.MongodbDB) SyncRunRepository {
	return &SyncRunRepositoryImpl{
		collection: db.DB.Collection("sync_runs"),
	}
}

func (r *SyncRunRepositoryImpl) Create(ctx context.Context, run *SyncRun) error {
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	if run.StartTime.IsZero() {
		run.StartTime = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, run)
	return err
}

func (r *SyncRunRepositoryImpl) Get(ctx context.Context, id string) (*SyncRun, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var run SyncRun
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&run)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

func (r *SyncRunRepositoryImpl) Update(ctx context.Context, run *SyncRun) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": run.ID}, run)
	return err
}

func (r *SyncRunRepositoryImpl) List(ctx context.Context, mappingID string, limit int64) ([]SyncRun, error) {
	oid, err := primitive.ObjectIDFromHex(mappingID)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"mapping_id": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []SyncRun
	if err = cursor.All(ctx, &runs); err != nil {
		return nil, err
	}

	return runs, nil
}

func (r *SyncRunRepositoryImpl) GetActive(ctx context.Context, mappingID string) (*SyncRun, error) {
	oid, err := primitive.ObjectIDFromHex(mappingID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"mapping_id": oid,
		"status":     bson.M{"$in": []string{RunStatusStarted, RunStatusProcessing}},
	}

	var run SyncRun
	err = r.collection.FindOne(ctx, filter).Decode(&run)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &run, nil
}

func (r *SyncRunRepositoryImpl) DeleteByMapping(ctx context.Context, mappingID string) error {
	oid, err := primitive.ObjectIDFromHex(mappingID)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteMany(ctx, bson.M{"mapping_id": oid})
	return err
}

type SyncErrorRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSyncErrorRepository(db *database.MongodbDB) SyncErrorRepository {
	return &SyncErrorRepositoryImpl{
		collection: db.DB.Collection("sync_errors"),
	}
}

func (r *SyncErrorRepositoryImpl) Create(ctx context.Context, syncErr *SyncError) error {
	if syncErr.ID.IsZero() {
		syncErr.ID = primitive.NewObjectID()
	}
	if syncErr.Timestamp.IsZero() {
		syncErr.Timestamp = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, syncErr)
	return err
}

func (r *SyncErrorRepositoryImpl) List(ctx context.Context, mappingID string, unresolvedOnly bool, limit int64) ([]SyncError, error) {
	oid, err := primitive.ObjectIDFromHex(mappingID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"mapping_id": oid}
	if unresolvedOnly {
		filter["resolved"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var syncErrs []SyncError
	if err = cursor.All(ctx, &syncErrs); err != nil {
		return nil, err
	}

	return syncErrs, nil
}

func (r *SyncErrorRepositoryImpl) ListRetryable(ctx context.Context, mappingID string) ([]SyncError, error) {
	oid, err := primitive.ObjectIDFromHex(mappingID)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"mapping_id": oid,
		"resolved":   false,
		"retryable":  true,
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var syncErrs []SyncError
	if err = cursor.All(ctx, &syncErrs); err != nil {
		return nil, err
	}

	return syncErrs, nil
}

func (r *SyncErrorRepositoryImpl) MarkResolved(ctx context.Context, id, note string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"resolved": true, "resolution_note": note}},
	)
	return err
}

func (r *SyncErrorRepositoryImpl) DeleteByMapping(ctx context.Context, mappingID string) error {
	oid, err := primitive.ObjectIDFromHex(mappingID)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteMany(ctx, bson.M{"mapping_id": oid})
	return err
}
