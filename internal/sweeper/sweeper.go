// Package sweeper reclaims completed and failed jobs once they are
// older than the retention window.
package sweeper

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mediagrab/api/internal/registry"
)

// Sweeper periodically expires terminal jobs and deletes their
// artifacts. A pass never touches queued or running jobs and no
// single job's failure stops the pass.
type Sweeper struct {
	registry *registry.Registry
	ttl      time.Duration
	interval time.Duration
	cron     *cron.Cron
}

func New(reg *registry.Registry, ttl, interval time.Duration) *Sweeper {
	return &Sweeper{
		registry: reg,
		ttl:      ttl,
		interval: interval,
	}
}

// Start schedules sweeps for the life of the process.
func (s *Sweeper) Start() error {
	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	s.cron.Start()
	log.Printf("Retention sweeper running every %s (ttl %s)", s.interval, s.ttl)
	return nil
}

// Stop halts scheduling; an in-flight pass finishes on its own.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep expires every terminal job older than the TTL. The artifact
// is deleted first; if deletion fails the job stays terminal so the
// next pass retries instead of losing track of the file.
func (s *Sweeper) Sweep() {
	cutoff := time.Now().Add(-s.ttl)
	expired := 0

	for _, job := range s.registry.Terminal(cutoff) {
		if job.OutputPath != "" {
			if err := os.Remove(job.OutputPath); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed to delete artifact for job %s: %v", job.ID, err)
				continue
			}
		}
		s.registry.Expire(job.ID)
		expired++
	}

	if expired > 0 {
		log.Printf("Sweep expired %d job(s)", expired)
	}
}
