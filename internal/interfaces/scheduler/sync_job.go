package scheduler

import (
	"context"
	"fmt"
	"log"

	"finboard/internal/domain/sync"
)

// RefreshJob implements the Job interface for one user's scheduled
// incremental sync.
type RefreshJob struct {
	userID       string
	orchestrator *sync.Orchestrator
}

// NewRefreshJob creates a refresh job for a user.
func NewRefreshJob(userID string, orchestrator *sync.Orchestrator) *RefreshJob {
	return &RefreshJob{
		userID:       userID,
		orchestrator: orchestrator,
	}
}

// Execute runs one incremental sync. Scheduled refreshes never force a full
// resync; the stored cursor decides how much history the provider replays.
func (j *RefreshJob) Execute(ctx context.Context) error {
	report, err := j.orchestrator.SyncUser(ctx, j.userID, false)
	if err != nil {
		log.Printf("Scheduled sync failed for user %s: %v", j.userID, err)
		return fmt.Errorf("sync failed: %w", err)
	}

	log.Printf("Scheduled sync for user %s completed: %d added, %d modified, %d removed transactions",
		j.userID, report.TransactionsAdded, report.TransactionsModified, report.TransactionsRemoved)

	return nil
}

// UserID returns the user ID associated with this job
func (j *RefreshJob) UserID() string {
	return j.userID
}

// Description returns a human-readable description of the job
func (j *RefreshJob) Description() string {
	return fmt.Sprintf("Incremental sync for user %s", j.userID)
}

// NewRefreshJobProvider builds the job-provider function the scheduler calls
// on each tick: one refresh job per user with an active connection.
func NewRefreshJobProvider(orchestrator *sync.Orchestrator) func(context.Context) ([]Job, error) {
	return func(ctx context.Context) ([]Job, error) {
		userIDs, err := orchestrator.ListSyncableUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list syncable users: %w", err)
		}

		jobs := make([]Job, 0, len(userIDs))
		for _, userID := range userIDs {
			jobs = append(jobs, NewRefreshJob(userID, orchestrator))
		}
		return jobs, nil
	}
}
