package services

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"

	"research-reports/backend/internal/logging"
	"research-reports/backend/pkg/models"
)

// TemporalSubmitter starts research workflows on a Temporal cluster.
type TemporalSubmitter struct {
	client       client.Client
	taskQueue    string
	workflowType string
}

// NewTemporalSubmitter creates a new TemporalSubmitter.
func NewTemporalSubmitter(c client.Client, taskQueue, workflowType string) *TemporalSubmitter {
	return &TemporalSubmitter{client: c, taskQueue: taskQueue, workflowType: workflowType}
}

// SubmitJob starts the workflow with the research id as workflow id. It
// returns as soon as Temporal has accepted the start request.
func (s *TemporalSubmitter) SubmitJob(ctx context.Context, id string, params models.ResearchParams) error {
	opts := client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: s.taskQueue,
	}
	if _, err := s.client.ExecuteWorkflow(ctx, opts, s.workflowType, params); err != nil {
		return fmt.Errorf("start workflow %s: %w", id, err)
	}
	return nil
}

// DialTemporal connects to the Temporal frontend at address.
func DialTemporal(ctx context.Context, address, namespace string, logger *logging.Logger) (client.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := client.DialContext(ctx, client.Options{
		HostPort:  address,
		Namespace: namespace,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial failed (address=%s namespace=%s): %w", address, namespace, err)
	}
	return c, nil
}

// LogSubmitter only logs jobs. It stands in for the workflow when no Temporal
// address is configured.
type LogSubmitter struct {
	logger *logging.Logger
}

// NewLogSubmitter creates a new LogSubmitter.
func NewLogSubmitter(logger *logging.Logger) *LogSubmitter {
	return &LogSubmitter{logger: logger}
}

// SubmitJob logs the job and reports success.
func (s *LogSubmitter) SubmitJob(ctx context.Context, id string, params models.ResearchParams) error {
	s.logger.Warn("workflow disabled; research job not dispatched",
		"id", id, "query", params.Query, "depth", params.Depth, "breadth", params.Breadth)
	return nil
}
