package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yakoovad/teampoints/internal/db"
	"github.com/yakoovad/teampoints/internal/joincode"
	"github.com/yakoovad/teampoints/internal/model"
	"github.com/yakoovad/teampoints/internal/repository"
	"github.com/yakoovad/teampoints/internal/watch"
	"github.com/yakoovad/teampoints/pkg/logger"
	"go.uber.org/zap"
)

// A fresh join code is drawn at most this many times before giving up.
const maxCodeAttempts = 5

type TeamService struct {
	tx db.Transactor

	teams   repository.TeamRepository
	codes   repository.JoinCodeRepository
	members repository.MemberRepository

	codegen  joincode.Generator
	notifier watch.Notifier
}

func NewTeamService(tx db.Transactor) *TeamService {
	return &TeamService{
		tx: tx,
	}
}

// CreateTeam validates the name, issues a unique join code and writes the
// team, its code and the owner's zero-point membership in one transaction.
func (t *TeamService) CreateTeam(ctx context.Context, name, description string, resetIntervalDays int, ownerID, ownerName string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewServiceError(ErrorCodeValidation, "team name must not be empty")
	}
	if resetIntervalDays < 0 {
		return nil, NewServiceError(ErrorCodeValidation, "reset interval must not be negative")
	}

	l.Info("creating team", zap.String("team_name", name), zap.String("owner_id", ownerID))

	code, serviceErr := t.issueJoinCode(ctx)
	if serviceErr != nil {
		return nil, serviceErr
	}

	now := time.Now().UTC()
	team := &model.Team{
		ID:                uuid.NewString(),
		Name:              name,
		Description:       description,
		OwnerID:           ownerID,
		JoinCode:          code,
		ResetIntervalDays: resetIntervalDays,
		CreatedAt:         now,
	}

	err := t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := t.teams.Create(txCtx, &repository.Team{
			ID:                team.ID,
			Name:              team.Name,
			Description:       team.Description,
			OwnerID:           team.OwnerID,
			ResetIntervalDays: team.ResetIntervalDays,
			CreatedAt:         now,
			LastResetAt:       now,
		}); err != nil {
			l.Error("failed to create team", zap.String("team_name", name), zap.Error(err))
			return NewServiceError(ErrorCodeBackendUnavailable, "failed to create team")
		}

		if err := t.codes.Create(txCtx, code, team.ID); err != nil {
			// The uniqueness probe ran outside this transaction, so a
			// concurrent issuance can still land first.
			l.Error("failed to store join code", zap.String("team_id", team.ID), zap.Error(err))
			return NewServiceError(ErrorCodeBackendUnavailable, "failed to store join code")
		}

		if err := t.members.Create(txCtx, &repository.Member{
			TeamID:      team.ID,
			UserID:      ownerID,
			DisplayName: ownerName,
			Points:      0,
			JoinedAt:    now,
		}); err != nil {
			l.Error("failed to create owner membership", zap.String("team_id", team.ID), zap.Error(err))
			return NewServiceError(ErrorCodeBackendUnavailable, "failed to create owner membership")
		}

		return nil
	})
	if errors.Is(err, db.ErrCommitUnknown) {
		l.Error("team creation commit outcome unknown", zap.String("team_id", team.ID), zap.Error(err))
		return nil, NewServiceError(ErrorCodePartialFailure, "team creation may be partially committed")
	}
	if err != nil {
		var res *Error
		if errors.As(err, &res) {
			return nil, res
		}
		return nil, NewServiceError(ErrorCodeUnspecified, "failed to create team")
	}

	team.Members = []*model.Member{{
		UserID:      ownerID,
		DisplayName: ownerName,
		Points:      0,
		JoinedAt:    now,
	}}

	l.Debug("team created", zap.String("team_id", team.ID), zap.String("join_code", code))

	return team, nil
}

// issueJoinCode draws candidates until one is unused, bounded by
// maxCodeAttempts.
func (t *TeamService) issueJoinCode(ctx context.Context) (string, *Error) {
	l := logger.FromContext(ctx)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate := t.codegen.Generate()

		_, err := t.codes.Resolve(ctx, candidate)
		if errors.Is(err, repository.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			l.Error("failed to probe join code", zap.Error(err))
			return "", NewServiceError(ErrorCodeBackendUnavailable, "failed to check join code uniqueness")
		}

		l.Warn("join code collision, regenerating", zap.Int("attempt", attempt+1))
	}

	return "", NewServiceError(ErrorCodeCodeSpaceExhausted, "could not find a free join code")
}

func (t *TeamService) GetTeam(ctx context.Context, teamID string) (*model.Team, *Error) {
	l := logger.FromContext(ctx)
	l.Debug("getting team", zap.String("team_id", teamID))

	repoTeam, err := t.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("team not found", zap.String("team_id", teamID))
		return nil, NewServiceError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to get team")
	}

	code, err := t.codes.GetByTeam(ctx, teamID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		l.Error("failed to get join code", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to get join code")
	}

	repoMembers, err := t.members.ListByTeam(ctx, teamID)
	if err != nil {
		l.Error("failed to get team members", zap.String("team_id", teamID), zap.Error(err))
		return nil, NewServiceError(ErrorCodeBackendUnavailable, "failed to get team members")
	}

	members := membersToModel(repoMembers)
	sortLeaderboard(members)

	return &model.Team{
		ID:                repoTeam.ID,
		Name:              repoTeam.Name,
		Description:       repoTeam.Description,
		OwnerID:           repoTeam.OwnerID,
		JoinCode:          code,
		ResetIntervalDays: repoTeam.ResetIntervalDays,
		CreatedAt:         repoTeam.CreatedAt,
		Members:           members,
	}, nil
}

// DeleteTeam removes the team, its join code and every membership in one
// transaction. Only the owner may delete.
func (t *TeamService) DeleteTeam(ctx context.Context, teamID, requesterID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("deleting team", zap.String("team_id", teamID), zap.String("requester_id", requesterID))

	repoTeam, err := t.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewServiceError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Error(err))
		return NewServiceError(ErrorCodeBackendUnavailable, "failed to get team")
	}

	if repoTeam.OwnerID != requesterID {
		l.Warn("delete rejected for non-owner",
			zap.String("team_id", teamID),
			zap.String("requester_id", requesterID))
		return NewServiceError(ErrorCodeNotAuthorized, "only the owner can delete the team")
	}

	err = t.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := t.members.DeleteByTeam(txCtx, teamID); err != nil {
			return NewServiceError(ErrorCodeBackendUnavailable, "failed to delete memberships")
		}
		if err := t.codes.DeleteByTeam(txCtx, teamID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return NewServiceError(ErrorCodeBackendUnavailable, "failed to delete join code")
		}
		if err := t.teams.Delete(txCtx, teamID); err != nil {
			return NewServiceError(ErrorCodeBackendUnavailable, "failed to delete team")
		}
		return nil
	})
	if errors.Is(err, db.ErrCommitUnknown) {
		l.Error("team deletion commit outcome unknown", zap.String("team_id", teamID), zap.Error(err))
		return NewServiceError(ErrorCodePartialFailure, "team deletion may be partially committed")
	}
	if err != nil {
		var res *Error
		if errors.As(err, &res) {
			return res
		}
		return NewServiceError(ErrorCodeUnspecified, "failed to delete team")
	}

	t.notify(teamID)

	l.Debug("team deleted", zap.String("team_id", teamID))

	return nil
}

func (t *TeamService) notify(teamID string) {
	if t.notifier != nil {
		t.notifier.Notify(teamID)
	}
}

func (t *TeamService) WithTeamRepo(r repository.TeamRepository) *TeamService {
	t.teams = r
	return t
}

func (t *TeamService) WithJoinCodeRepo(r repository.JoinCodeRepository) *TeamService {
	t.codes = r
	return t
}

func (t *TeamService) WithMemberRepo(r repository.MemberRepository) *TeamService {
	t.members = r
	return t
}

func (t *TeamService) WithCodeGenerator(g joincode.Generator) *TeamService {
	t.codegen = g
	return t
}

func (t *TeamService) WithNotifier(n watch.Notifier) *TeamService {
	t.notifier = n
	return t
}
