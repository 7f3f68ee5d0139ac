package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/chronoslab/timetabler/internal/models"
)

// InstitutionRepository manages institution records.
type InstitutionRepository struct {
	db *sqlx.DB
}

// NewInstitutionRepository constructs repository.
func NewInstitutionRepository(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

// Create inserts a new institution.
func (r *InstitutionRepository) Create(ctx context.Context, institution *models.Institution) error {
	if institution == nil {
		return fmt.Errorf("institution payload is nil")
	}
	if institution.ID == "" {
		institution.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if institution.CreatedAt.IsZero() {
		institution.CreatedAt = now
	}
	institution.UpdatedAt = now

	const query = `
INSERT INTO institutions (id, name, generation_count, created_at, updated_at)
VALUES (:id, :name, :generation_count, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, institution); err != nil {
		return fmt.Errorf("insert institution: %w", err)
	}
	return nil
}

// FindByID loads an institution by identifier.
func (r *InstitutionRepository) FindByID(ctx context.Context, id string) (*models.Institution, error) {
	const query = `SELECT id, name, generation_count, created_at, updated_at FROM institutions WHERE id = $1`
	var institution models.Institution
	if err := r.db.GetContext(ctx, &institution, query, id); err != nil {
		return nil, err
	}
	return &institution, nil
}

// List returns institutions ordered by name with basic pagination.
func (r *InstitutionRepository) List(ctx context.Context, page, pageSize int) ([]models.Institution, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM institutions`); err != nil {
		return nil, 0, fmt.Errorf("count institutions: %w", err)
	}

	const query = `SELECT id, name, generation_count, created_at, updated_at
FROM institutions ORDER BY name ASC LIMIT $1 OFFSET $2`
	var institutions []models.Institution
	if err := r.db.SelectContext(ctx, &institutions, query, pageSize, (page-1)*pageSize); err != nil {
		return nil, 0, fmt.Errorf("list institutions: %w", err)
	}
	return institutions, total, nil
}

// Rename updates the institution's name.
func (r *InstitutionRepository) Rename(ctx context.Context, id, name string) error {
	const query = `UPDATE institutions SET name = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, name, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("rename institution: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("institution rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an institution.
func (r *InstitutionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM institutions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete institution: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("institution rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IncrementGenerationCount bumps the counter after a successful run is stored.
func (r *InstitutionRepository) IncrementGenerationCount(ctx context.Context, exec sqlx.ExtContext, id string) error {
	target := sqlx.ExtContext(r.db)
	if exec != nil {
		target = exec
	}
	const query = `UPDATE institutions SET generation_count = generation_count + 1, updated_at = $1 WHERE id = $2`
	result, err := target.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("increment generation count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("institution rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
