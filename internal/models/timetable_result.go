package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableResult is one stored optimization outcome for an institution.
// Document carries the full OptimizationResult serialization (schedule grid,
// summary, violations, recommendations) as JSONB.
type TimetableResult struct {
	ID            string         `db:"id" json:"id"`
	InstitutionID string         `db:"institution_id" json:"institution_id"`
	Version       int            `db:"version" json:"version"`
	Algorithm     string         `db:"algorithm" json:"algorithm"`
	FitnessScore  float64        `db:"fitness_score" json:"fitness_score"`
	Generations   int            `db:"generations" json:"generations"`
	Document      types.JSONText `db:"document" json:"document"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// TimetableResultMeta is the lightweight list-view projection.
type TimetableResultMeta struct {
	ID           string    `db:"id" json:"id"`
	Version      int       `db:"version" json:"version"`
	Algorithm    string    `db:"algorithm" json:"algorithm"`
	FitnessScore float64   `db:"fitness_score" json:"fitness_score"`
	Generations  int       `db:"generations" json:"generations"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
