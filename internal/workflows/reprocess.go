package workflows

import (
	"context"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ReprocessInput is the input for the reprocess workflow.
type ReprocessInput struct {
	RideID int64
}

// ReprocessResult is the outcome of the reprocess workflow.
type ReprocessResult struct {
	RideID int64
	Ways   int
}

// ReprocessRideWorkflow segments a stored ride again. Segmentation hits
// the place database once per point, so attempts are spaced out generously.
func ReprocessRideWorkflow(ctx workflow.Context, input ReprocessInput) (ReprocessResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting reprocess workflow", "rideID", input.RideID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    10 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var a *RideActivities
	var ways int
	if err := workflow.ExecuteActivity(ctx, a.ResegmentRide, input.RideID).Get(ctx, &ways); err != nil {
		return ReprocessResult{RideID: input.RideID}, err
	}

	logger.Info("Ride reprocessed", "rideID", input.RideID, "ways", ways)
	return ReprocessResult{RideID: input.RideID, Ways: ways}, nil
}

// ReprocessWorkflowID is the workflow id for a ride; one reprocess runs per ride at a time.
func ReprocessWorkflowID(rideID int64) string {
	return fmt.Sprintf("reprocess-ride-%d", rideID)
}

// StartReprocess starts ReprocessRideWorkflow for a ride. A request for a
// ride that is already being reprocessed joins the running execution.
func StartReprocess(ctx context.Context, c client.Client, taskQueue string, rideID int64) (client.WorkflowRun, error) {
	opts := client.StartWorkflowOptions{
		ID:                       ReprocessWorkflowID(rideID),
		TaskQueue:                taskQueue,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionTimeout: time.Hour,
	}
	return c.ExecuteWorkflow(ctx, opts, ReprocessRideWorkflow, ReprocessInput{RideID: rideID})
}
