package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/folio/folio/backend/go-services/internal/document"
)

const siteRecordID = "site"

// siteRecord stores the document as JSON text so schema-free item fields
// keep their exact JSON types across round trips.
type siteRecord struct {
	ID        string    `bson:"_id"`
	Rev       int64     `bson:"rev"`
	Payload   string    `bson:"payload"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoTarget implements a MongoDB-backed target. Updates are conditioned on
// the revision read just before the write.
type MongoTarget struct {
	col *mongo.Collection
}

func NewMongoTarget(col *mongo.Collection) *MongoTarget {
	return &MongoTarget{col: col}
}

func (m *MongoTarget) Name() string { return "mongo" }

func (m *MongoTarget) Fetch(ctx context.Context) (*document.Document, error) {
	rec, err := m.load(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return document.Decode([]byte(rec.Payload))
}

func (m *MongoTarget) Persist(ctx context.Context, doc *document.Document) error {
	b, err := document.Encode(doc)
	if err != nil {
		return err
	}
	rec, err := m.load(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if rec == nil {
		_, err := m.col.InsertOne(ctx, siteRecord{ID: siteRecordID, Rev: 1, Payload: string(b), UpdatedAt: now})
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: record created concurrently", ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("mongo insert: %w", err)
		}
		return nil
	}
	res, err := m.col.UpdateOne(ctx,
		bson.M{"_id": siteRecordID, "rev": rec.Rev},
		bson.M{"$set": bson.M{"payload": string(b), "updatedAt": now}, "$inc": bson.M{"rev": 1}},
	)
	if err != nil {
		return fmt.Errorf("mongo update: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: revision %d superseded", ErrConflict, rec.Rev)
	}
	return nil
}

func (m *MongoTarget) load(ctx context.Context) (*siteRecord, error) {
	var rec siteRecord
	err := m.col.FindOne(ctx, bson.M{"_id": siteRecordID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	return &rec, nil
}
