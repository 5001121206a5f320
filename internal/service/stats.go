package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/studenthub/backend/internal/model"
	"github.com/studenthub/backend/internal/repository"
)

// StatsService exposes the platform-wide aggregate and its reconciliation.
type StatsService struct {
	db     repository.UnitOfWork
	logger *slog.Logger
}

// NewStatsService creates a StatsService.
func NewStatsService(db repository.UnitOfWork, logger *slog.Logger) *StatsService {
	return &StatsService{db: db, logger: logger}
}

// Overview is the public stats payload: the incremental singleton plus the
// computed-on-read user segmentation counters.
type Overview struct {
	model.GlobalStats
	Counts model.UserCounts `json:"counts"`
}

// Overview returns the global stats snapshot together with the user counts.
func (s *StatsService) Overview(ctx context.Context) (*Overview, error) {
	stats, err := s.db.Stats().Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/stats: reading snapshot: %w", err)
	}
	counts, err := s.db.Users().Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/stats: counting users: %w", err)
	}
	return &Overview{GlobalStats: *stats, Counts: counts}, nil
}

// Reconcile rebuilds the aggregate from the source tables inside one
// transaction. The incremental counters are updated transactionally with
// every contributing write, so this normally changes nothing — it exists to
// heal drift after manual data surgery or a historical bug, and runs once at
// startup.
func (s *StatsService) Reconcile(ctx context.Context) error {
	err := s.db.InTx(ctx, func(stores repository.Stores) error {
		return stores.Stats().Recompute(ctx)
	})
	if err != nil {
		return fmt.Errorf("service/stats: reconciling: %w", err)
	}
	s.logger.Info("global stats reconciled")
	return nil
}
