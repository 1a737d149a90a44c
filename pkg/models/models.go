// Package models defines the domain models for the research reports service
package models

import (
	"time"
)

// ResearchStatus is the lifecycle state of a research record
type ResearchStatus int

const (
	// ResearchStatusRunning is set when a record is created or re-run.
	ResearchStatusRunning ResearchStatus = 1
	// ResearchStatusComplete is written by the research workflow.
	ResearchStatusComplete ResearchStatus = 2
)

// String returns a display label for the status
func (s ResearchStatus) String() string {
	switch s {
	case ResearchStatusRunning:
		return "running"
	case ResearchStatusComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// RunningReportPlaceholder is shown while a record has no result yet
const RunningReportPlaceholder = "Report is still running..."

// QuestionAnswer is a follow-up question and the user's answer to it
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Research represents a research job and its eventual report
type Research struct {
	ID               string           `json:"id" db:"id"`
	Title            *string          `json:"title,omitempty" db:"title"`
	Query            string           `json:"query" db:"query"`
	Depth            string           `json:"depth" db:"depth"`
	Breadth          string           `json:"breadth" db:"breadth"`
	Questions        []QuestionAnswer `json:"questions" db:"questions"` // JSON text in storage
	Status           ResearchStatus   `json:"status" db:"status"`
	Result           *string          `json:"result,omitempty" db:"result"`
	Duration         *int64           `json:"duration,omitempty" db:"duration"`
	InitialLearnings *string          `json:"initial_learnings,omitempty" db:"initial_learnings"`
	UserID           *string          `json:"user_id,omitempty" db:"user_id"`

	// Audit fields
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty" db:"started_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// DisplayTitle returns the title, falling back to the query
func (r *Research) DisplayTitle() string {
	if r.Title != nil && *r.Title != "" {
		return *r.Title
	}
	return r.Query
}

// ReportMarkdown returns the stored report, or an empty string while running
func (r *Research) ReportMarkdown() string {
	if r.Result == nil {
		return ""
	}
	return *r.Result
}

// Params builds the workflow creation payload for this record
func (r *Research) Params() ResearchParams {
	return ResearchParams{
		ID:        r.ID,
		Query:     r.Query,
		Depth:     r.Depth,
		Breadth:   r.Breadth,
		Questions: r.Questions,
		Status:    r.Status,
		UserID:    r.UserID,
	}
}

// ResearchParams is the payload handed to the research workflow
type ResearchParams struct {
	ID        string           `json:"id"`
	Query     string           `json:"query"`
	Depth     string           `json:"depth"`
	Breadth   string           `json:"breadth"`
	Questions []QuestionAnswer `json:"questions"`
	Status    ResearchStatus   `json:"status"`
	UserID    *string          `json:"user_id,omitempty"`
}

// NewResearch holds the user-submitted fields of a research request
type NewResearch struct {
	Query     string
	Depth     string
	Breadth   string
	Questions []QuestionAnswer
	UserID    *string
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}
