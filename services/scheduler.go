// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartAwardScheduler runs the monthly award pipeline on an interval. The
// run row claim makes concurrent fires harmless, so the interval only
// bounds how late after month end the awards can land. Anything under 30
// minutes is raised to 30 minutes.
func (s *MonthlyAwardService) StartAwardScheduler(interval time.Duration) gocron.Scheduler {
	if interval < 30*time.Minute {
		interval = 30 * time.Minute
	}

	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			result, err := s.RunIfDue(s.Now(), false)
			if err != nil {
				log.Printf("[Scheduler] Monthly award run error: %v", err)
				return
			}
			if result.Processed {
				log.Printf("✅ [Scheduler] Monthly awards processed for %s", result.MonthKey)
			}
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	return sched
}

// Poke fires an opportunistic run in the background. Read endpoints call
// this so awards land promptly after month end even if the scheduler tick
// is far away.
func (s *MonthlyAwardService) Poke() {
	go func() {
		if _, err := s.RunIfDue(s.Now(), false); err != nil {
			log.Printf("[Scheduler] Opportunistic award run error: %v", err)
		}
	}()
}
