package worker

import (
	"context"
	"time"

	"github.com/yakoovad/teampoints/internal/db"
	"github.com/yakoovad/teampoints/internal/repository"
	"github.com/yakoovad/teampoints/internal/watch"
	"go.uber.org/zap"
)

// ResetWorker periodically zeroes the points of teams configured with a reset
// interval. Each team's reset and its bookkeeping stamp commit together.
type ResetWorker struct {
	tx db.Transactor

	teams   repository.TeamRepository
	members repository.MemberRepository

	notifier watch.Notifier
	logger   *zap.Logger

	tick    time.Duration
	timeout time.Duration
}

func NewResetWorker(tx db.Transactor, logger *zap.Logger, tick, timeout time.Duration) *ResetWorker {
	return &ResetWorker{
		tx:      tx,
		logger:  logger,
		tick:    tick,
		timeout: timeout,
	}
}

// Run blocks until ctx is cancelled.
func (w *ResetWorker) Run(ctx context.Context) {
	w.logger.Info("reset worker starting", zap.Duration("tick", w.tick))

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reset worker stopping")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ResetWorker) runOnce(ctx context.Context) {
	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	now := time.Now().UTC()

	due, err := w.teams.ListForReset(opCtx, now)
	if err != nil {
		w.logger.Error("failed to list teams due for reset", zap.Error(err))
		return
	}

	for _, team := range due {
		if err := w.resetTeam(opCtx, team.ID, now); err != nil {
			w.logger.Error("failed to reset team points",
				zap.String("team_id", team.ID),
				zap.Error(err))
			continue
		}

		w.logger.Info("team points reset",
			zap.String("team_id", team.ID),
			zap.Int("interval_days", team.ResetIntervalDays))

		if w.notifier != nil {
			w.notifier.Notify(team.ID)
		}
	}
}

func (w *ResetWorker) resetTeam(ctx context.Context, teamID string, now time.Time) error {
	return w.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := w.members.ResetPoints(txCtx, teamID); err != nil {
			return err
		}
		return w.teams.MarkReset(txCtx, teamID, now)
	})
}

func (w *ResetWorker) WithTeamRepo(r repository.TeamRepository) *ResetWorker {
	w.teams = r
	return w
}

func (w *ResetWorker) WithMemberRepo(r repository.MemberRepository) *ResetWorker {
	w.members = r
	return w
}

func (w *ResetWorker) WithNotifier(n watch.Notifier) *ResetWorker {
	w.notifier = n
	return w
}
