package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/yakoovad/teampoints/internal/model"
	"github.com/yakoovad/teampoints/internal/repository"
	"github.com/yakoovad/teampoints/internal/watch"
	"github.com/yakoovad/teampoints/pkg/logger"
	"go.uber.org/zap"
)

// LeaderboardService recomputes ordered views of membership state. Projections
// are pure reads; nothing is maintained incrementally.
type LeaderboardService struct {
	teams   repository.TeamRepository
	codes   repository.JoinCodeRepository
	members repository.MemberRepository

	broker *watch.Broker
}

func NewLeaderboardService() *LeaderboardService {
	return &LeaderboardService{}
}

// Project returns the team's members sorted descending by points, ties in
// join order.
func (s *LeaderboardService) Project(ctx context.Context, teamID string) ([]*model.Member, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("projecting leaderboard", zap.String("team_id", teamID))

	if _, err := s.teams.Get(ctx, teamID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewServiceError(ErrorCodeNotFound, "team not found")
		}
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to get team")
	}

	repoMembers, err := s.members.ListByTeam(ctx, teamID)
	if err != nil {
		l.Error("failed to list members", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to list members")
	}

	members := membersToModel(repoMembers)
	sortLeaderboard(members)

	return members, nil
}

// ProjectUserTeams returns every team the user belongs to, each carrying its
// full projected leaderboard.
func (s *LeaderboardService) ProjectUserTeams(ctx context.Context, userID string) ([]*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("projecting user teams", zap.String("user_id", userID))

	teamIDs, err := s.members.ListTeamIDsByUser(ctx, userID)
	if err != nil {
		l.Error("failed to list user teams", zap.String("user_id", userID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to list user teams")
	}

	teams := make([]*model.Team, 0, len(teamIDs))
	for _, teamID := range teamIDs {
		repoTeam, err := s.teams.Get(ctx, teamID)
		if errors.Is(err, repository.ErrNotFound) {
			// Membership row outlived its team mid-scan; skip it.
			continue
		}
		if err != nil {
			l.Error("failed to get team", zap.String("team_id", teamID), zap.Error(err))
			return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to get team")
		}

		code, err := s.codes.GetByTeam(ctx, teamID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			l.Error("failed to get join code", zap.String("team_id", teamID), zap.Error(err))
			return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to get join code")
		}

		repoMembers, err := s.members.ListByTeam(ctx, teamID)
		if err != nil {
			l.Error("failed to list members", zap.String("team_id", teamID), zap.Error(err))
			return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to list members")
		}

		members := membersToModel(repoMembers)
		sortLeaderboard(members)

		teams = append(teams, &model.Team{
			ID:                repoTeam.ID,
			Name:              repoTeam.Name,
			Description:       repoTeam.Description,
			OwnerID:           repoTeam.OwnerID,
			JoinCode:          code,
			ResetIntervalDays: repoTeam.ResetIntervalDays,
			CreatedAt:         repoTeam.CreatedAt,
			Members:           members,
		})
	}

	return teams, nil
}

// Snapshot adapts Project for the watch broker, which works with plain
// errors.
func (s *LeaderboardService) Snapshot(ctx context.Context, teamID string) ([]*model.Member, error) {
	members, serviceErr := s.Project(ctx, teamID)
	if serviceErr != nil {
		return nil, serviceErr
	}
	return members, nil
}

// Watch subscribes an observer to live leaderboard snapshots for a team. The
// returned cancel func must be called when the observer is done.
func (s *LeaderboardService) Watch(teamID string) (<-chan watch.Snapshot, func()) {
	return s.broker.Subscribe(teamID)
}

func (s *LeaderboardService) WithTeamRepo(r repository.TeamRepository) *LeaderboardService {
	s.teams = r
	return s
}

func (s *LeaderboardService) WithJoinCodeRepo(r repository.JoinCodeRepository) *LeaderboardService {
	s.codes = r
	return s
}

func (s *LeaderboardService) WithMemberRepo(r repository.MemberRepository) *LeaderboardService {
	s.members = r
	return s
}

func (s *LeaderboardService) WithBroker(b *watch.Broker) *LeaderboardService {
	s.broker = b
	return s
}
