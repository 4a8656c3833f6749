package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/insuredocs/docgen/internal/document"
)

// Records are keyed by an application-level "id" string (uuid) rather than
// _id so ids stay stable across the memory and Mongo stores.

func ensureIDIndex(ctx context.Context, col *mongo.Collection, extra ...mongo.IndexModel) error {
	models := append([]mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}, extra...)
	_, err := col.Indexes().CreateMany(ctx, models)
	return err
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "id", Value: 1}})
}

// MongoTemplates implements TemplateRepository on a MongoDB collection.
type MongoTemplates struct {
	col *mongo.Collection
}

func NewMongoTemplates(ctx context.Context, col *mongo.Collection) (*MongoTemplates, error) {
	if err := ensureIDIndex(ctx, col, mongo.IndexModel{Keys: bson.D{{Key: "category", Value: 1}}}); err != nil {
		return nil, err
	}
	return &MongoTemplates{col: col}, nil
}

func (m *MongoTemplates) Create(ctx context.Context, t *document.Template) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := m.col.InsertOne(ctx, t)
	return err
}

func (m *MongoTemplates) Get(ctx context.Context, id string) (*document.Template, error) {
	var t document.Template
	err := m.col.FindOne(ctx, bson.M{"id": id}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (m *MongoTemplates) List(ctx context.Context, category string) ([]*document.Template, error) {
	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}
	cur, err := m.col.Find(ctx, filter, newestFirst())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*document.Template{}
	for cur.Next(ctx) {
		var t document.Template
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, cur.Err()
}

func (m *MongoTemplates) Update(ctx context.Context, t *document.Template) error {
	t.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":        t.Name,
		"description": t.Description,
		"category":    t.Category,
		"filename":    t.Filename,
		"blobKey":     t.BlobKey,
		"contentHash": t.ContentHash,
		"size":        t.Size,
		"variables":   t.Variables,
		"sections":    t.Sections,
		"updatedAt":   t.UpdatedAt,
	}
	res, err := m.col.UpdateOne(ctx, bson.M{"id": t.ID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoTemplates) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoGenerated implements GeneratedRepository. The client should be
// connected with DefaultDocumentM so variable snapshots decode as maps.
type MongoGenerated struct {
	col *mongo.Collection
}

func NewMongoGenerated(ctx context.Context, col *mongo.Collection) (*MongoGenerated, error) {
	err := ensureIDIndex(ctx, col,
		mongo.IndexModel{Keys: bson.D{{Key: "templateId", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "clientId", Value: 1}}},
	)
	if err != nil {
		return nil, err
	}
	return &MongoGenerated{col: col}, nil
}

func (m *MongoGenerated) Create(ctx context.Context, d *document.Generated) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := m.col.InsertOne(ctx, d)
	return err
}

func (m *MongoGenerated) Get(ctx context.Context, id string) (*document.Generated, error) {
	var d document.Generated
	err := m.col.FindOne(ctx, bson.M{"id": id}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (m *MongoGenerated) List(ctx context.Context, f GeneratedFilter) ([]*document.Generated, error) {
	filter := bson.M{}
	if f.TemplateID != "" {
		filter["templateId"] = f.TemplateID
	}
	if f.ClientID != "" {
		filter["clientId"] = f.ClientID
	}
	// the listing omits the snapshot
	opts := newestFirst().SetProjection(bson.M{"variables": 0})
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*document.Generated{}
	for cur.Next(ctx) {
		var d document.Generated
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, cur.Err()
}

func (m *MongoGenerated) Delete(ctx context.Context, id string) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
