// Package refresh periodically re-resolves whatever the dashboard is showing.
package refresh

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Target is refreshed on every tick. *dashboard.Dashboard satisfies it.
type Target interface {
	Refresh(ctx context.Context) error
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Target
	interval  time.Duration
	timeout   time.Duration
	busy      func(error) bool
}

// New creates a scheduler. busy identifies errors that mean the target was
// already loading; those are skipped quietly.
func New(target Target, interval time.Duration, busy func(error) bool) *Scheduler {
	if busy == nil {
		busy = func(error) bool { return false }
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
		timeout:   30 * time.Second,
		busy:      busy,
	}
}

// Start schedules the job. The first run happens one interval from now since
// the dashboard resolves its default city on startup.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return errors.New("refresh: interval must be positive")
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("refresh: every %s", s.interval)
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.target.Refresh(ctx); err != nil {
		if s.busy(err) {
			log.Println("refresh: dashboard busy, skipping")
			return
		}
		log.Printf("refresh: %v", err)
	}
}

// Stop cancels future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
