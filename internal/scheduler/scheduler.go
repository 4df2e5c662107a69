// Package scheduler runs the periodic billing-cycle jobs.
package scheduler

import (
	"fmt"
	"time"

	"fitpass_backend/internal/metrics"
	"fitpass_backend/pkg/utils"

	"github.com/robfig/cron/v3"
)

type MembershipRenewer interface {
	RenewDue(at time.Time) (int, error)
}

type DailyAccessApplier interface {
	ApplyDueChanges(at time.Time) (int, error)
}

type NewsExpirer interface {
	ExpireNews(at time.Time) (int64, error)
}

type job struct {
	name string
	run  func(at time.Time) (int64, error)
}

// Scheduler runs memberships renewal, Daily Access changes and news expiry on one cron spec.
type Scheduler struct {
	cron *cron.Cron
	spec string
	jobs []job
	now  func() time.Time
}

func New(spec string, loc *time.Location, renewer MembershipRenewer, applier DailyAccessApplier, expirer NewsExpirer) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		spec: spec,
		// renewals first so the Daily Access pass sees the new billing dates
		jobs: []job{
			{"renew_memberships", func(at time.Time) (int64, error) {
				n, err := renewer.RenewDue(at)
				return int64(n), err
			}},
			{"apply_daily_access_changes", func(at time.Time) (int64, error) {
				n, err := applier.ApplyDueChanges(at)
				return int64(n), err
			}},
			{"expire_news", expirer.ExpireNews},
		},
		now: time.Now,
	}
}

// Start registers the jobs and starts the cron loop in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunAll(s.now()) }); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.spec, err)
	}
	s.cron.Start()
	utils.LogInfo("Scheduler started", map[string]interface{}{"spec": s.spec})
	return nil
}

// Stop stops the cron loop and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunAll runs every job once. A failing job is logged and does not stop the others.
func (s *Scheduler) RunAll(at time.Time) {
	for _, j := range s.jobs {
		s.runJob(j, at)
	}
}

func (s *Scheduler) runJob(j job, at time.Time) {
	defer func() {
		if r := recover(); r != nil {
			utils.LogError(fmt.Errorf("panic: %v", r), "Scheduled job "+j.name+" panicked")
			metrics.RecordJobRun(j.name, false)
		}
	}()

	start := time.Now()
	n, err := j.run(at)
	metrics.RecordJobRun(j.name, err == nil)
	if err != nil {
		utils.LogWarn(err, "Scheduled job failed", map[string]interface{}{"job": j.name, "processed": n})
		return
	}
	utils.LogInfo("Scheduled job finished", map[string]interface{}{
		"job":       j.name,
		"processed": n,
		"duration":  time.Since(start).String(),
	})
}
