package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"

	"research-reports/backend/internal/logging"
	"research-reports/backend/pkg/models"
)

func TestTemporalSubmitter_SubmitJob(t *testing.T) {
	c := &mocks.Client{}
	params := models.ResearchParams{ID: "r-1", Query: "q", Status: models.ResearchStatusRunning}

	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.ID == "r-1" && o.TaskQueue == "research"
	}), "ResearchWorkflow", params).Return(&mocks.WorkflowRun{}, nil)

	s := NewTemporalSubmitter(c, "research", "ResearchWorkflow")
	assert.NoError(t, s.SubmitJob(context.Background(), "r-1", params))
	c.AssertExpectations(t)
}

func TestTemporalSubmitter_SubmitJobError(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("unavailable"))

	err := NewTemporalSubmitter(c, "q", "wf").SubmitJob(context.Background(), "r-2", models.ResearchParams{})
	assert.ErrorContains(t, err, "unavailable")
	assert.ErrorContains(t, err, "r-2")
}

func TestLogSubmitter_AlwaysSucceeds(t *testing.T) {
	s := NewLogSubmitter(logging.NewNop())
	assert.NoError(t, s.SubmitJob(context.Background(), "r-3", models.ResearchParams{Query: "q"}))
}
