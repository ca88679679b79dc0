package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

// PostgresRepository provides PostgreSQL-backed persistence for users.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a user repository backed by PostgreSQL.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Upsert inserts or updates a user keyed by subject id.
func (r *PostgresRepository) Upsert(ctx context.Context, u User) (User, error) {
	row := r.pool.QueryRow(ctx, `
        INSERT INTO users (id, subject_id, email, full_name, credits, created_at, updated_at)
        VALUES ($1, $2, $3, $4, 0, now(), now())
        ON CONFLICT (subject_id) DO UPDATE
        SET email = EXCLUDED.email, full_name = EXCLUDED.full_name, updated_at = now()
        RETURNING id, subject_id, email, full_name, credits, created_at, updated_at
    `, uuid.NewString(), u.SubjectID, u.Email, u.FullName)

	stored, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("upsert user: %w", err)
	}
	return stored, nil
}

// FindBySubject fetches a user by external subject id.
func (r *PostgresRepository) FindBySubject(ctx context.Context, subjectID string) (User, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, subject_id, email, full_name, credits, created_at, updated_at
        FROM users
        WHERE subject_id = $1
    `, subjectID)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("select user by subject: %w", err)
	}
	return u, nil
}

// UpdateCredits sets the credit balance for a subject id.
func (r *PostgresRepository) UpdateCredits(ctx context.Context, subjectID string, credits int) (User, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE users
        SET credits = $2, updated_at = now()
        WHERE subject_id = $1
        RETURNING id, subject_id, email, full_name, credits, created_at, updated_at
    `, subjectID, credits)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("update credits: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.SubjectID, &u.Email, &u.FullName, &u.Credits, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
