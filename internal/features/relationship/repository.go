package relationship

import (
	"context"
	"time"

	"go-glidesync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CandidateRepository interface {
	// Upsert keys on (source table, source row, source column) so
	// re-syncing a row refreshes its candidate instead of duplicating it.
	Upsert(ctx context.Context, candidate *Candidate) error
	ListPending(ctx context.Context, targetTable string) ([]Candidate, error)
	List(ctx context.Context, status string, limit int64) ([]Candidate, error)
	PendingTargets(ctx context.Context) (map[string]int64, error)
	MarkResolved(ctx context.Context, id string) error
	MarkAttempt(ctx context.Context, id string, failed bool) error
}

type CandidateRepositoryImpl struct {
	collection *mongo.Collection
}

func NewCandidateRepository(db *database.MongodbDB) CandidateRepository {
	return &CandidateRepositoryImpl{
		collection: db.DB.Collection("relationship_candidates"),
	}
}

func (r *CandidateRepositoryImpl) Upsert(ctx context.Context, candidate *Candidate) error {
	filter := bson.M{
		"source_table":  candidate.SourceTable,
		"source_row_id": candidate.SourceRowID,
		"source_column": candidate.SourceColumn,
	}
	update := bson.M{
		"$set": bson.M{
			"target_table": candidate.TargetTable,
			"row_id_value": candidate.RowIDValue,
			"status":       StatusPending,
			"attempts":     0,
		},
		"$setOnInsert": bson.M{
			"source_table":  candidate.SourceTable,
			"source_row_id": candidate.SourceRowID,
			"source_column": candidate.SourceColumn,
			"created_at":    time.Now(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *CandidateRepositoryImpl) ListPending(ctx context.Context, targetTable string) ([]Candidate, error) {
	filter := bson.M{"status": StatusPending}
	if targetTable != "" {
		filter["target_table"] = targetTable
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var candidates []Candidate
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

func (r *CandidateRepositoryImpl) List(ctx context.Context, status string, limit int64) ([]Candidate, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var candidates []Candidate
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// PendingTargets returns the distinct target tables that still have
// pending candidates, with their counts.
func (r *CandidateRepositoryImpl) PendingTargets(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": StatusPending}}},
		{{Key: "$group", Value: bson.M{"_id": "$target_table", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Target string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	targets := make(map[string]int64, len(rows))
	for _, row := range rows {
		targets[row.Target] = row.Count
	}
	return targets, nil
}

func (r *CandidateRepositoryImpl) MarkResolved(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{
			"status":      StatusResolved,
			"resolved_at": time.Now(),
		},
	})
	return err
}

// MarkAttempt bumps the attempt counter; failed flips the candidate to
// its terminal failed state once the attempt cap is exceeded.
func (r *CandidateRepositoryImpl) MarkAttempt(ctx context.Context, id string, failed bool) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	update := bson.M{"$inc": bson.M{"attempts": 1}}
	if failed {
		update["$set"] = bson.M{"status": StatusFailed}
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	return err
}
