package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/yakoovad/teampoints/internal/db"
	"github.com/yakoovad/teampoints/internal/model"
	"github.com/yakoovad/teampoints/internal/repository"
	"github.com/yakoovad/teampoints/internal/watch"
	"github.com/yakoovad/teampoints/pkg/logger"
	"go.uber.org/zap"
)

type PointsService struct {
	tx db.Transactor

	members repository.MemberRepository

	notifier watch.Notifier
}

func NewPointsService(tx db.Transactor) *PointsService {
	return &PointsService{tx: tx}
}

// AddPoints applies a delta to a member's total. The delta may be negative
// and the total is not clamped. The increment happens store-side in one
// statement, so concurrent deltas all land.
func (p *PointsService) AddPoints(ctx context.Context, teamID, userID string, delta int64) (*model.Member, *Error) {
	l := logger.FromContext(ctx)
	l.Info("adding points",
		zap.String("team_id", teamID),
		zap.String("user_id", userID),
		zap.Int64("delta", delta))

	member, err := p.members.AddPoints(ctx, teamID, userID, delta, time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("no membership for points change",
			zap.String("team_id", teamID),
			zap.String("user_id", userID))
		return nil, NewServiceError(ErrorCodeNotMember, "not a member of this team")
	}
	if err != nil {
		l.Error("failed to add points",
			zap.String("team_id", teamID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to add points")
	}

	p.notify(teamID)

	return memberToModel(member), nil
}

// SetPoints overwrites a member's total. The audit record stores the new
// absolute value in its amount field.
func (p *PointsService) SetPoints(ctx context.Context, teamID, userID string, points int64) (*model.Member, *Error) {
	l := logger.FromContext(ctx)
	l.Info("setting points",
		zap.String("team_id", teamID),
		zap.String("user_id", userID),
		zap.Int64("points", points))

	member, err := p.members.SetPoints(ctx, teamID, userID, points, time.Now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("no membership for points change",
			zap.String("team_id", teamID),
			zap.String("user_id", userID))
		return nil, NewServiceError(ErrorCodeNotMember, "not a member of this team")
	}
	if err != nil {
		l.Error("failed to set points",
			zap.String("team_id", teamID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to set points")
	}

	p.notify(teamID)

	return memberToModel(member), nil
}

// ResetTeamPoints zeroes every member of a team. Used by the scheduled reset,
// not exposed over the API.
func (p *PointsService) ResetTeamPoints(ctx context.Context, teamID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("resetting team points", zap.String("team_id", teamID))

	if err := p.members.ResetPoints(ctx, teamID); err != nil {
		l.Error("failed to reset points", zap.String("team_id", teamID), zap.Error(err))
		return NewServiceError(ErrorCodeBackendUnavailable, "failed to reset points")
	}

	p.notify(teamID)

	return nil
}

func (p *PointsService) notify(teamID string) {
	if p.notifier != nil {
		p.notifier.Notify(teamID)
	}
}

func (p *PointsService) WithMemberRepo(r repository.MemberRepository) *PointsService {
	p.members = r
	return p
}

func (p *PointsService) WithNotifier(n watch.Notifier) *PointsService {
	p.notifier = n
	return p
}
