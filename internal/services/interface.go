package services

import (
	"context"

	"research-reports/backend/pkg/models"
)

// QuestionGenerator produces clarifying follow-up questions for a research query.
type QuestionGenerator interface {
	// Generate never returns more than MaxFollowUpQuestions questions.
	Generate(ctx context.Context, query string) QuestionResult
}

// WorkflowSubmitter hands research jobs to the external research workflow.
type WorkflowSubmitter interface {
	// SubmitJob starts the workflow and returns without waiting for it to finish.
	SubmitJob(ctx context.Context, id string, params models.ResearchParams) error
}
