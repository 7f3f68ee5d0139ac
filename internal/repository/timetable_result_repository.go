package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/chronoslab/timetabler/internal/models"
)

// TimetableResultRepository persists versioned optimization outcomes.
type TimetableResultRepository struct {
	db *sqlx.DB
}

// NewTimetableResultRepository constructs repository.
func NewTimetableResultRepository(db *sqlx.DB) *TimetableResultRepository {
	return &TimetableResultRepository{db: db}
}

func (r *TimetableResultRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a result assigning the next version for the institution.
func (r *TimetableResultRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, result *models.TimetableResult) error {
	if result == nil {
		return fmt.Errorf("timetable result payload is nil")
	}
	if result.InstitutionID == "" {
		return fmt.Errorf("institution_id is required")
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if len(result.Document) == 0 {
		result.Document = types.JSONText(`{}`)
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetable_results WHERE institution_id = $1`
	if err := sqlx.GetContext(ctx, target, &result.Version, nextVersionQuery, result.InstitutionID); err != nil {
		return fmt.Errorf("compute next timetable result version: %w", err)
	}

	const insertQuery = `
INSERT INTO timetable_results (id, institution_id, version, algorithm, fitness_score, generations, document, created_at)
VALUES (:id, :institution_id, :version, :algorithm, :fitness_score, :generations, :document, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, result); err != nil {
		return fmt.Errorf("insert timetable result: %w", err)
	}
	return nil
}

// LatestByInstitution loads the newest stored result for the institution.
func (r *TimetableResultRepository) LatestByInstitution(ctx context.Context, institutionID string) (*models.TimetableResult, error) {
	const query = `SELECT id, institution_id, version, algorithm, fitness_score, generations, document, created_at
FROM timetable_results WHERE institution_id = $1 ORDER BY version DESC LIMIT 1`
	var result models.TimetableResult
	if err := r.db.GetContext(ctx, &result, query, institutionID); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByInstitution returns stored version metadata, newest first.
func (r *TimetableResultRepository) ListByInstitution(ctx context.Context, institutionID string, limit int) ([]models.TimetableResultMeta, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT id, version, algorithm, fitness_score, generations, created_at
FROM timetable_results WHERE institution_id = $1 ORDER BY version DESC LIMIT $2`
	var metas []models.TimetableResultMeta
	if err := r.db.SelectContext(ctx, &metas, query, institutionID, limit); err != nil {
		return nil, fmt.Errorf("list timetable results: %w", err)
	}
	return metas, nil
}

// DeleteByInstitution removes every stored result for the institution.
func (r *TimetableResultRepository) DeleteByInstitution(ctx context.Context, institutionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetable_results WHERE institution_id = $1`, institutionID); err != nil {
		return fmt.Errorf("delete timetable results: %w", err)
	}
	return nil
}

// FindByID loads a stored result by its identifier.
func (r *TimetableResultRepository) FindByID(ctx context.Context, id string) (*models.TimetableResult, error) {
	const query = `SELECT id, institution_id, version, algorithm, fitness_score, generations, document, created_at
FROM timetable_results WHERE id = $1`
	var result models.TimetableResult
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	return &result, nil
}
