package mysql

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ideaforge-app/ideaforge-api/internal/domain/keys"
)

type KeyRepository struct {
	db *sql.DB
}

func NewKeyRepository(db *sql.DB) *KeyRepository {
	return &KeyRepository{db: db}
}

// Resolve matches the trimmed code exactly (case-sensitive collation on the
// code column). ORDER BY id makes the first-match rule stable when the unique
// invariant is ever violated.
func (r *KeyRepository) Resolve(ctx context.Context, code string) (*keys.AccessKey, error) {
	code = strings.TrimSpace(code)

	const q = `
SELECT id, code
FROM access_keys
WHERE code = ?
ORDER BY id
LIMIT 1;
`
	var k keys.AccessKey
	err := r.db.QueryRowContext(ctx, q, code).Scan(&k.ID, &k.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, keys.ErrInvalidKey
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}
