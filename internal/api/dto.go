package api

import (
	"github.com/starford/maxwell/internal/index"
	"github.com/starford/maxwell/internal/memory"
	"github.com/starford/maxwell/internal/models"
)

// SearchResponse wraps grouped search results.
type SearchResponse struct {
	Results []memory.SearchResult `json:"results" validate:"required"`
}

// ContextResponse is an assembled context bundle, optionally prefixed by
// curated memory.
type ContextResponse struct {
	Entities     []models.Entity      `json:"entities" validate:"required"`
	Observations []models.Observation `json:"observations" validate:"required"`
	Formatted    string               `json:"formatted_context" validate:"required"`
	Curated      string               `json:"curated,omitempty"`
}

// TasksResponse lists open tasks.
type TasksResponse struct {
	Tasks []models.Observation `json:"tasks" validate:"required"`
}

// EntityResponse is one entity with its observations and neighbours.
type EntityResponse struct {
	Entity       models.Entity        `json:"entity" validate:"required"`
	Observations []models.Observation `json:"observations" validate:"required"`
	Related      []models.Entity      `json:"related" validate:"required"`
}

// ReindexResponse reports an indexing pass.
type ReindexResponse = index.Report

// LogRequest appends lines to a section of a daily note.
type LogRequest struct {
	Date   string   `json:"date,omitempty" example:"2026-01-30"`
	Header string   `json:"header" example:"Email Actions" validate:"required"`
	Lines  []string `json:"lines" validate:"required"`
}

// LogResponse reports how many lines were appended.
type LogResponse struct {
	Added int `json:"added" example:"2"`
}
