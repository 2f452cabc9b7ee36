package mongo

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ideaforge-app/ideaforge-api/internal/domain/keys"
)

type KeyRepository struct {
	col *mongo.Collection
}

func NewKeyRepository(db *mongo.Database) *KeyRepository {
	return &KeyRepository{col: db.Collection("keys")}
}

type keyDoc struct {
	ID   primitive.ObjectID `bson:"_id"`
	Code string             `bson:"code"`
}

// Resolve looks up a key by exact code match after trimming. Codes are unique
// by convention; with duplicates, FindOne's natural order picks the first.
func (r *KeyRepository) Resolve(ctx context.Context, code string) (*keys.AccessKey, error) {
	code = strings.TrimSpace(code)

	var doc keyDoc
	err := r.col.FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, keys.ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}

	return &keys.AccessKey{ID: keys.KeyID(doc.ID.Hex()), Code: doc.Code}, nil
}
