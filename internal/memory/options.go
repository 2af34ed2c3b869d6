package memory

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/maxwell/internal/apperr"
	"github.com/starford/maxwell/internal/models"
)

const (
	// MaxLimit bounds search and context limits.
	MaxLimit = 100
	// MaxHalfLifeDays bounds the recency half-life.
	MaxHalfLifeDays = 365.0
	// DefaultContextLimit is the observation budget of a context bundle.
	DefaultContextLimit = 50
	// MaxContextTasks caps pending tasks pulled into a context bundle.
	MaxContextTasks = 10
)

// SearchOptions tunes a search. Zero values select defaults.
type SearchOptions struct {
	Limit        int     `json:"limit"`
	Recency      bool    `json:"recency"`
	HalfLifeDays float64 `json:"half_life_days"`
}

// Validate rejects structurally invalid options.
func (o SearchOptions) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.Limit, validation.Min(0), validation.Max(MaxLimit)),
		validation.Field(&o.HalfLifeDays, validation.Min(0.0), validation.Max(MaxHalfLifeDays)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidOptions, err)
	}
	return nil
}

// ContextQuery selects what goes into a context bundle.
type ContextQuery struct {
	Query               string  `json:"query,omitempty"`
	Entity              string  `json:"entity,omitempty"`
	Date                string  `json:"date,omitempty"`
	RecentDays          int     `json:"recent_days,omitempty"`
	IncludePendingTasks bool    `json:"include_pending_tasks,omitempty"`
	Limit               int     `json:"limit,omitempty"`
	Recency             bool    `json:"recency,omitempty"`
	HalfLifeDays        float64 `json:"half_life_days,omitempty"`
}

// Validate rejects structurally invalid queries.
func (q ContextQuery) Validate() error {
	err := validation.ValidateStruct(&q,
		validation.Field(&q.Date, validation.Date(time.DateOnly)),
		validation.Field(&q.RecentDays, validation.Min(0), validation.Max(365)),
		validation.Field(&q.Limit, validation.Min(0), validation.Max(500)),
		validation.Field(&q.HalfLifeDays, validation.Min(0.0), validation.Max(MaxHalfLifeDays)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidOptions, err)
	}
	return nil
}

// DigestOptions tunes BuildActivityDigest.
type DigestOptions struct {
	Days         int  `json:"days"`
	Limit        int  `json:"limit"`
	IncludeComms bool `json:"include_comms"`
	IncludeCode  bool `json:"include_code"`
}

// DefaultDigestOptions returns a 7-day, 50-item digest with both sources.
func DefaultDigestOptions() DigestOptions {
	return DigestOptions{Days: 7, Limit: 50, IncludeComms: true, IncludeCode: true}
}

// Validate rejects structurally invalid digest options.
func (o DigestOptions) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.Days, validation.Required, validation.Min(1), validation.Max(365)),
		validation.Field(&o.Limit, validation.Required, validation.Min(1), validation.Max(500)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidOptions, err)
	}
	return nil
}

func validateEvent(ev models.IntegrationEvent) error {
	err := validation.ValidateStruct(&ev,
		validation.Field(&ev.Date, validation.Required, validation.Date(time.DateOnly)),
		validation.Field(&ev.OccurredAt, validation.Required),
		validation.Field(&ev.Line, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidOptions, err)
	}
	return nil
}
