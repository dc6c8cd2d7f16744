package scheduler

import (
	"log/slog"
	"time"

	"tpm-hub/internal/config"
	"tpm-hub/internal/repository"
	"tpm-hub/internal/service"
)

// Scheduler handles periodic tasks: sweeping expired sessions out of
// the store and expired confirmation tokens out of the broker.
type Scheduler struct {
	sessionRepo *repository.SessionRepository
	confirm     *service.ConfirmationBroker
	config      *config.SchedulerConfig
	stopChan    chan bool
}

// NewScheduler creates a new scheduler
func NewScheduler(
	sessionRepo *repository.SessionRepository,
	confirm *service.ConfirmationBroker,
	cfg *config.SchedulerConfig,
) *Scheduler {
	return &Scheduler{
		sessionRepo: sessionRepo,
		confirm:     confirm,
		config:      cfg,
		stopChan:    make(chan bool),
	}
}

// Start starts the periodic sweep
func (s *Scheduler) Start() {
	if !s.config.Enabled {
		slog.Info("Scheduler disabled")
		return
	}
	slog.Info("Starting scheduler", "sweep_interval", s.config.SweepInterval)

	go func() {
		ticker := time.NewTicker(s.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if !s.config.Enabled {
		return
	}
	close(s.stopChan)
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) sweep() {
	now := time.Now()

	sessions, err := s.sessionRepo.DeleteExpired(now)
	if err != nil {
		slog.Error("Failed to sweep expired sessions", "error", err)
	} else if sessions > 0 {
		slog.Info("Swept expired sessions", "count", sessions)
	}

	if confirmations := s.confirm.SweepExpired(now); confirmations > 0 {
		slog.Info("Swept expired confirmations", "count", confirmations)
	}
}
