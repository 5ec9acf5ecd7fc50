package mapping

import (
	"context"
	"time"

	"go-glidesync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MappingRepository interface {
	Create(ctx context.Context, m *Mapping) error
	Get(ctx context.Context, id string) (*Mapping, error)
	List(ctx context.Context) ([]Mapping, error)
	ListEnabled(ctx context.Context) ([]Mapping, error)
	Replace(ctx context.Context, m *Mapping) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	Delete(ctx context.Context, id string) error
}

type MappingRepositoryImpl struct {
	collection *mongo.Collection
}

func NewMappingRepository(db *database.MongodbDB) MappingRepository {
	return &MappingRepositoryImpl{
		collection: db.DB.Collection("mappings"),
	}
}

func (r *MappingRepositoryImpl) Create(ctx context.Context, m *Mapping) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, m)
	return err
}

func (r *MappingRepositoryImpl) Get(ctx context.Context, id string) (*Mapping, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var m Mapping
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&m)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (r *MappingRepositoryImpl) List(ctx context.Context) ([]Mapping, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var mappings []Mapping
	if err = cursor.All(ctx, &mappings); err != nil {
		return nil, err
	}

	return mappings, nil
}

func (r *MappingRepositoryImpl) ListEnabled(ctx context.Context) ([]Mapping, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"enabled": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var mappings []Mapping
	if err = cursor.All(ctx, &mappings); err != nil {
		return nil, err
	}

	return mappings, nil
}

func (r *MappingRepositoryImpl) Replace(ctx context.Context, m *Mapping) error {
	m.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	return err
}

func (r *MappingRepositoryImpl) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	updates["updated_at"] = time.Now()
	_, err = r.collection.UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": updates},
	)
	return err
}

func (r *MappingRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
