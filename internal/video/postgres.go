package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository provides PostgreSQL-backed persistence for video
// jobs. Metadata is stored as JSONB in the ai_metadata column.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a video repository backed by PostgreSQL.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save persists a new job record.
func (r *PostgresRepository) Save(ctx context.Context, v *Video) error {
	meta, err := json.Marshal(v.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
        INSERT INTO videos (id, user_id, portfolio_id, status, video_url, ai_metadata, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
    `, v.ID, v.UserID, v.PortfolioID, string(v.Status), v.VideoURL, meta, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// FindByIDForUser fetches a job by id scoped to the owner.
func (r *PostgresRepository) FindByIDForUser(ctx context.Context, id, userID string) (*Video, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, user_id, portfolio_id, status, COALESCE(video_url, ''), ai_metadata, created_at, updated_at
        FROM videos
        WHERE id = $1 AND user_id = $2
    `, id, userID)

	v, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select video: %w", err)
	}
	return v, nil
}

// Update writes the job's state back to its row.
func (r *PostgresRepository) Update(ctx context.Context, v *Video) error {
	meta, err := json.Marshal(v.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
        UPDATE videos
        SET status = $2, video_url = NULLIF($3, ''), ai_metadata = $4, updated_at = $5
        WHERE id = $1
    `, v.ID, string(v.Status), v.VideoURL, meta, time.Now())
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanVideo(row pgx.Row) (*Video, error) {
	var v Video
	var status string
	var meta []byte
	if err := row.Scan(&v.ID, &v.UserID, &v.PortfolioID, &status, &v.VideoURL, &meta, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.Status = Status(status)
	if err := json.Unmarshal(meta, &v.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &v, nil
}
