// File: internal/jobs/listing_reindex.go
package jobs

import (
	"context"
	"time"

	"wws_listings_backend/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reindexRunTimeout = 10 * time.Minute

// IndexSyncer rebuilds the listing search index and reports how many documents were written.
type IndexSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// ListingReindexJob periodically re-indexes every listing into the search cluster.
type ListingReindexJob struct {
	syncer        IndexSyncer
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewListingReindexJob creates a new ListingReindexJob. A nil syncer means
// search indexing is disabled and the job never gets scheduled.
func NewListingReindexJob(syncer IndexSyncer, logger *zap.Logger, cfg *config.Config) *ListingReindexJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	return &ListingReindexJob{
		syncer:        syncer,
		logger:        logger.Named("ListingReindexJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job. It reports whether the job was scheduled.
func (j *ListingReindexJob) SetupAndStart() (bool, error) {
	if j.syncer == nil {
		j.logger.Info("Search indexing is disabled; listing reindex job will not run.")
		return false, nil
	}
	jobSpec := j.cfg.ListingReindexJobSchedule
	if jobSpec == "" {
		j.logger.Warn("Listing reindex job schedule not defined (LISTING_REINDEX_JOB_SCHEDULE). Job will not run.")
		return false, nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule listing reindex job", zap.String("spec", jobSpec), zap.Error(err))
		return false, err
	}

	j.logger.Info("Listing reindex job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return true, nil
}

func (j *ListingReindexJob) runJob() {
	ctx, cancel := context.WithTimeout(context.Background(), reindexRunTimeout)
	defer cancel()
	_, _ = j.RunOnce(ctx)
}

// RunOnce performs a single re-index pass.
func (j *ListingReindexJob) RunOnce(ctx context.Context) (int, error) {
	if j.syncer == nil {
		return 0, nil
	}
	j.logger.Info("Starting listing reindex job run...")
	indexed, err := j.syncer.Sync(ctx)
	if err != nil {
		j.logger.Error("Listing reindex job run failed", zap.Int("listings_indexed", indexed), zap.Error(err))
		return indexed, err
	}
	j.logger.Info("Listing reindex job run completed", zap.Int("listings_indexed", indexed))
	return indexed, nil
}

// Stop gracefully stops the cron scheduler.
func (j *ListingReindexJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping listing reindex job scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Listing reindex job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Listing reindex job scheduler stop timed out.")
	}
}
