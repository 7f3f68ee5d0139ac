package models

import "time"

// Institution owns a stream of generated timetables.
type Institution struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	GenerationCount int       `db:"generation_count" json:"generation_count"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
