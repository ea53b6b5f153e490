// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSnapshotScheduler rebuilds the leaderboard snapshot once a minute.
func (s *LeaderboardService) StartSnapshotScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if err := s.Refresh(); err != nil {
				s.logRefreshError(err)
				return
			}
			log.Printf("🏆 [LEADERBOARD] Snapshot refreshed")
		}),
	)
}
