// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartReconcileScheduler runs the referral-count reconciler periodically.
// The two-step claim write has a documented drift window (claim recorded,
// counter bump lost); this job closes it.
func (s *ReferralService) StartReconcileScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			fixed, err := s.ReconcileCounts()
			if err != nil {
				log.Printf("[Reconciler] DB error: %v", err)
				return
			}
			if fixed > 0 {
				log.Printf("✅ Reconciler fixed %d drifted referral count(s)", fixed)
			}
		}),
	)
}
