package poll

import (
	"context"
	"time"

	"github.com/abelbrown/scrollbet/internal/model"
)

// DefaultJobInterval is how often a generation job is polled.
const DefaultJobInterval = 5 * time.Second

// JobSource reports the status of a generation job. *api.Client implements it.
type JobSource interface {
	JobStatus(ctx context.Context, jobID string) (model.JobStatus, error)
}

// WatchJob returns a Poller that follows jobID until it is done or failed.
func WatchJob(src JobSource, jobID string, interval time.Duration) *Poller[model.JobStatus] {
	if interval <= 0 {
		interval = DefaultJobInterval
	}
	return &Poller[model.JobStatus]{
		Interval: interval,
		Fetch: func(ctx context.Context) (model.JobStatus, error) {
			return src.JobStatus(ctx, jobID)
		},
		Terminal: model.JobStatus.Terminal,
	}
}
