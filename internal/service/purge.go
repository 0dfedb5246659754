package service

import (
	"context"
	"log"
	"sync"
	"time"

	"openkits-api/internal/repository"
)

// PurgeConfig controls the cooldown purge schedule.
type PurgeConfig struct {
	// Interval is how often the purge runs.
	Interval time.Duration
	// Retention is how long expired rows are kept before deletion.
	Retention time.Duration
}

// PurgeScheduler periodically deletes expired cooldown rows from the store.
// Rows belonging to one-time kits are never touched; the store keeps those
// forever so claims stay remembered.
type PurgeScheduler struct {
	store  repository.CooldownRepository
	config PurgeConfig

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	running bool
}

// NewPurgeScheduler creates a purge scheduler. Zero config values fall back
// to a 1 hour interval and 24 hour retention.
func NewPurgeScheduler(store repository.CooldownRepository, config PurgeConfig) *PurgeScheduler {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Retention < 0 {
		config.Retention = 24 * time.Hour
	}

	return &PurgeScheduler{
		store:  store,
		config: config,
		stopCh: make(chan struct{}),
	}
}

// Start launches the background purge loop. Calling Start twice is a no-op.
func (s *PurgeScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.ticker = time.NewTicker(s.config.Interval)

	go s.run()
	log.Printf("[PurgeScheduler] Started with interval %s, retention %s", s.config.Interval, s.config.Retention)
}

func (s *PurgeScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.RunNow()
		case <-s.stopCh:
			return
		}
	}
}

// RunNow performs one purge pass immediately.
func (s *PurgeScheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	before := time.Now().Add(-s.config.Retention)
	removed, err := s.store.PurgeExpiredCooldowns(ctx, before)
	if err != nil {
		log.Printf("[PurgeScheduler] Purge failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[PurgeScheduler] Removed %d expired cooldown rows", removed)
	}
}

// Stop halts the background loop.
func (s *PurgeScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.running = false
}
