package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ideaforge-app/ideaforge-api/internal/application"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/analysis"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/keys"
)

type AnalysisRepository struct {
	col   *mongo.Collection
	clock application.Clock
}

func NewAnalysisRepository(db *mongo.Database, clock application.Clock) *AnalysisRepository {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &AnalysisRepository{col: db.Collection("analyses"), clock: clock}
}

type analysisDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	KeyID     string             `bson:"keyId"`
	Idea      string             `bson:"idea"`
	Data      *analysis.Data     `bson:"data"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d *analysisDoc) toRecord() *analysis.Record {
	return &analysis.Record{
		ID:        analysis.RecordID(d.ID.Hex()),
		KeyID:     keys.KeyID(d.KeyID),
		Idea:      d.Idea,
		Data:      d.Data,
		CreatedAt: d.CreatedAt,
	}
}

func (r *AnalysisRepository) Create(ctx context.Context, keyID keys.KeyID, idea string, data *analysis.Data) (*analysis.Record, error) {
	doc := analysisDoc{
		KeyID:     string(keyID),
		Idea:      idea,
		Data:      data,
		CreatedAt: r.clock.Now().UTC(),
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc.ID = res.InsertedID.(primitive.ObjectID)
	return doc.toRecord(), nil
}

func (r *AnalysisRepository) ListRecent(ctx context.Context, keyID keys.KeyID, limit int) ([]*analysis.Record, error) {
	if limit <= 0 || limit > analysis.DefaultHistoryLimit {
		limit = analysis.DefaultHistoryLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.col.Find(ctx, bson.M{"keyId": string(keyID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []*analysis.Record{}
	for cur.Next(ctx) {
		var doc analysisDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toRecord())
	}
	return out, cur.Err()
}

// Delete checks ownership against the same document read used for the
// decision. Per-document atomicity is enough here; keys are not concurrently
// contended in practice.
func (r *AnalysisRepository) Delete(ctx context.Context, id analysis.RecordID, requester keys.KeyID) error {
	oid, err := primitive.ObjectIDFromHex(string(id))
	if err != nil {
		return analysis.ErrNotFound
	}

	var doc analysisDoc
	err = r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return analysis.ErrNotFound
	}
	if err != nil {
		return err
	}
	if doc.KeyID != string(requester) {
		return analysis.ErrForbidden
	}

	_, err = r.col.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
