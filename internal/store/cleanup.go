package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Cleaner is the subset of Store used by the retention job.
type Cleaner interface {
	Cleanup(olderThan time.Time) (int64, error)
}

// StartCleanup runs Cleanup every interval, deleting deliveries older than
// retention. The first run happens immediately. The returned scheduler must
// be shut down by the caller.
func StartCleanup(c Cleaner, retention, interval time.Duration) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = time.Hour
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating cleanup scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { runCleanup(c, retention) }),
		gocron.WithName("delivery-log-retention"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("scheduling cleanup: %w", err)
	}

	s.Start()
	return s, nil
}

func runCleanup(c Cleaner, retention time.Duration) {
	n, err := c.Cleanup(time.Now().Add(-retention))
	if err != nil {
		slog.Warn("delivery log cleanup failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("delivery log cleaned", "deleted", n)
	}
}
