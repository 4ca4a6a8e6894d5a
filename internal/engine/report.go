package engine

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultReportSchedule logs metrics every 30 seconds.
const DefaultReportSchedule = "@every 30s"

// Reporter logs scheduler metrics on a cron schedule.
type Reporter struct {
	cron   *cron.Cron
	s      *Scheduler
	logger *slog.Logger
}

// NewReporter validates spec and registers the report job. Standard five
// field specs and descriptors such as "@every 1m" are accepted.
func NewReporter(s *Scheduler, spec string, logger *slog.Logger) (*Reporter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reporter{
		cron:   cron.New(),
		s:      s,
		logger: logger,
	}
	if _, err := r.cron.AddFunc(spec, r.Report); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", spec, err)
	}
	return r, nil
}

// Start runs the schedule in the background.
func (r *Reporter) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running report to finish.
func (r *Reporter) Stop() {
	<-r.cron.Stop().Done()
}

// Report logs one metrics line.
func (r *Reporter) Report() {
	m := r.s.Metrics()
	r.logger.Info("scheduler metrics",
		"events", m.Events,
		"total_requests", m.TotalRequests,
		"successful_adds", m.SuccessfulAdds,
		"conflicts", m.Conflicts,
		"queued", m.Dispatch.Queued,
		"pending", m.Dispatch.Pending,
		"completed", m.Dispatch.Completed)
}
