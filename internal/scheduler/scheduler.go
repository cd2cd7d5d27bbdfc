// Package scheduler periodically scans the registry for credentials
// nearing expiry and triggers bounded-concurrency batch refresh.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pilotlight/switchboard/internal/registry"
)

// DefaultInterval is how often the scheduler scans when not configured.
const DefaultInterval = 5 * time.Minute

// Scheduler owns its timer state; start and stop are explicit, stopping an
// already-stopped scheduler is a no-op, and changing the interval while
// running restarts the timer with the new period. Stopping only prevents
// future ticks: a batch already started runs to completion.
type Scheduler struct {
	registry *registry.Registry

	mu       sync.Mutex
	interval time.Duration
	running  bool
	stopCh   chan struct{}
}

func New(reg *registry.Registry, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{registry: reg, interval: interval}
}

// Start begins periodic scanning. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	go s.loop(s.stopCh, s.interval)
	log.Printf("🔄 Auto-refresh scheduler started (interval: %s)", s.interval)
}

// Stop prevents future ticks. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	log.Println("🛑 Auto-refresh scheduler stopped")
}

// Running reports whether the scheduler is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the current tick period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the tick period, restarting the timer when the
// scheduler is running.
func (s *Scheduler) SetInterval(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s.mu.Lock()
	wasRunning := s.running
	s.interval = interval
	if wasRunning {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
	if wasRunning {
		s.Start()
	}
}

func (s *Scheduler) loop(stopCh chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	due := s.registry.ScanExpiring(time.Now())
	if len(due) == 0 {
		return
	}
	log.Printf("🔄 Scheduler tick: %d accounts need refresh", len(due))
	s.registry.RefreshBatch(context.Background(), due)
}
