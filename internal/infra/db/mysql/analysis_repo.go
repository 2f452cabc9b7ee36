package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/ideaforge-app/ideaforge-api/internal/application"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/analysis"
	"github.com/ideaforge-app/ideaforge-api/internal/domain/keys"
)

// AnalysisRepository stores the normalized payload in a JSON column.
//
//	CREATE TABLE analyses (
//	  id         CHAR(36)  PRIMARY KEY,
//	  key_id     VARCHAR(64) NOT NULL,
//	  idea       TEXT        NOT NULL,
//	  data_json  JSON        NOT NULL,
//	  created_at DATETIME(3) NOT NULL,
//	  INDEX idx_analyses_key_created (key_id, created_at)
//	);
type AnalysisRepository struct {
	db    *sql.DB
	clock application.Clock
}

func NewAnalysisRepository(db *sql.DB, clock application.Clock) *AnalysisRepository {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &AnalysisRepository{db: db, clock: clock}
}

func (r *AnalysisRepository) Create(ctx context.Context, keyID keys.KeyID, idea string, data *analysis.Data) (*analysis.Record, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	rec := &analysis.Record{
		ID:        analysis.RecordID(uuid.New().String()),
		KeyID:     keyID,
		Idea:      idea,
		Data:      data,
		CreatedAt: r.clock.Now().UTC(),
	}

	const q = `
INSERT INTO analyses (id, key_id, idea, data_json, created_at)
VALUES (?,?,?,?,?);
`
	if _, err := r.db.ExecContext(ctx, q, rec.ID, rec.KeyID, rec.Idea, payload, rec.CreatedAt); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *AnalysisRepository) ListRecent(ctx context.Context, keyID keys.KeyID, limit int) ([]*analysis.Record, error) {
	if limit <= 0 || limit > analysis.DefaultHistoryLimit {
		limit = analysis.DefaultHistoryLimit
	}

	const q = `
SELECT id, key_id, idea, data_json, created_at
FROM analyses
WHERE key_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, keyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*analysis.Record{}
	for rows.Next() {
		var rec analysis.Record
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.KeyID, &rec.Idea, &payload, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &rec.Data); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *AnalysisRepository) Delete(ctx context.Context, id analysis.RecordID, requester keys.KeyID) error {
	const q = `SELECT key_id FROM analyses WHERE id = ?;`

	var owner string
	err := r.db.QueryRowContext(ctx, q, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis.ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != string(requester) {
		return analysis.ErrForbidden
	}

	_, err = r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?;`, id)
	return err
}
