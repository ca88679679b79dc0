package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository provides PostgreSQL-backed persistence for portfolios.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a portfolio repository backed by PostgreSQL.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save persists a new portfolio record.
func (r *PostgresRepository) Save(ctx context.Context, p Portfolio) error {
	_, err := r.pool.Exec(ctx, `
        INSERT INTO portfolios (id, user_id, title, pdf_path, raw_data, created_at)
        VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
    `, p.ID, p.UserID, p.Title, p.DocumentPath, p.RawData, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert portfolio: %w", err)
	}
	return nil
}

// FindByIDForUser fetches a portfolio by id scoped to the owner.
func (r *PostgresRepository) FindByIDForUser(ctx context.Context, id, userID string) (Portfolio, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, user_id, title, COALESCE(pdf_path, ''), raw_data, created_at
        FROM portfolios
        WHERE id = $1 AND user_id = $2
    `, id, userID)

	var p Portfolio
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.DocumentPath, &p.RawData, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Portfolio{}, ErrNotFound
		}
		return Portfolio{}, fmt.Errorf("select portfolio: %w", err)
	}
	return p, nil
}

// ListByUser returns the user's portfolios, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Portfolio, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, user_id, title, COALESCE(pdf_path, ''), raw_data, created_at
        FROM portfolios
        WHERE user_id = $1
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	defer rows.Close()

	var result []Portfolio
	for rows.Next() {
		var p Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.DocumentPath, &p.RawData, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan portfolio: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate portfolios: %w", err)
	}
	return result, nil
}

// Delete removes a portfolio scoped to the owner.
func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.pool.Exec(ctx, `
        DELETE FROM portfolios
        WHERE id = $1 AND user_id = $2
    `, id, userID)
	if err != nil {
		return fmt.Errorf("delete portfolio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
