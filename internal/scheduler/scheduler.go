package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/solar-fits-dashboard/internal/session"
)

// Scheduler periodically evicts dashboard sessions that have gone idle.
// Evicting a session cancels its in-flight fetches.
type Scheduler struct {
	scheduler *gocron.Scheduler
	sessions  *session.Manager
	interval  time.Duration
	maxIdle   time.Duration
}

// New creates a new Scheduler.
func New(sessions *session.Manager, interval, maxIdle time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		sessions:  sessions,
		interval:  interval,
		maxIdle:   maxIdle,
	}
}

// Start schedules the sweep job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.maxIdle <= 0 {
		log.Println("scheduler: session idle timeout disabled; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		s.Sweep()
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Sweep evicts sessions idle for longer than the configured timeout.
func (s *Scheduler) Sweep() int {
	n := s.sessions.EvictIdle(time.Now().Add(-s.maxIdle))
	if n > 0 {
		log.Printf("scheduler: evicted %d idle sessions (%d remaining)", n, s.sessions.Len())
	}
	return n
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
