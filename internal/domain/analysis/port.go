package analysis

import (
	"context"

	"github.com/ideaforge-app/ideaforge-api/internal/domain/keys"
)

// DefaultHistoryLimit caps how many records a history listing returns.
const DefaultHistoryLimit = 20

// Repository port for persisting and querying analyses.
type Repository interface {
	// Create inserts a record with a server-assigned id and creation
	// timestamp and returns the stored record.
	Create(ctx context.Context, keyID keys.KeyID, idea string, data *Data) (*Record, error)

	// ListRecent returns up to limit records for the key, ordered by
	// createdAt descending. The result is fully materialized.
	ListRecent(ctx context.Context, keyID keys.KeyID, limit int) ([]*Record, error)

	// Delete removes a record after verifying ownership. Returns
	// ErrNotFound when the id is unknown and ErrForbidden when the record
	// belongs to a different key.
	Delete(ctx context.Context, id RecordID, requester keys.KeyID) error
}
