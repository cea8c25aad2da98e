package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/yakoovad/teampoints/internal/db"
	"github.com/yakoovad/teampoints/internal/joincode"
	"github.com/yakoovad/teampoints/internal/repository"
	"github.com/yakoovad/teampoints/internal/watch"
	"github.com/yakoovad/teampoints/pkg/logger"
	"go.uber.org/zap"
)

type MembershipService struct {
	tx db.Transactor

	teams   repository.TeamRepository
	codes   repository.JoinCodeRepository
	members repository.MemberRepository

	notifier watch.Notifier
}

func NewMembershipService(tx db.Transactor) *MembershipService {
	return &MembershipService{tx: tx}
}

// JoinByCode resolves the code and creates a zero-point membership. Joining a
// team twice is rejected without touching the existing membership.
func (m *MembershipService) JoinByCode(ctx context.Context, code, userID, displayName string) (string, *Error) {
	l := logger.FromContext(ctx)

	code = strings.TrimSpace(code)
	if !joincode.Valid(code) {
		return "", NewServiceError(ErrorCodeValidation, "join code must be 8 digits")
	}

	l.Info("joining team by code", zap.String("user_id", userID))

	teamID, err := m.codes.Resolve(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		l.Warn("join code not found", zap.String("user_id", userID))
		return "", NewServiceError(ErrorCodeNotFound, "join code not found")
	}
	if err != nil {
		l.Error("failed to resolve join code", zap.Error(err))
		return "", NewServiceError(ErrorCodeBackendUnavailable, "failed to resolve join code")
	}

	if displayName == "" {
		displayName = "Unnamed"
	}

	err = m.members.Create(ctx, &repository.Member{
		TeamID:      teamID,
		UserID:      userID,
		DisplayName: displayName,
		Points:      0,
		JoinedAt:    time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrAlreadyExists) {
		l.Warn("user already a member",
			zap.String("team_id", teamID),
			zap.String("user_id", userID))
		return "", NewServiceError(ErrorCodeAlreadyMember, "already a member of this team")
	}
	if err != nil {
		l.Error("failed to create membership",
			zap.String("team_id", teamID),
			zap.String("user_id", userID),
			zap.Error(err))
		return "", NewServiceError(ErrorCodeBackendUnavailable, "failed to create membership")
	}

	m.notify(teamID)

	l.Debug("joined team", zap.String("team_id", teamID), zap.String("user_id", userID))

	return teamID, nil
}

// Leave deletes the membership. The owner's membership is pinned while the
// team still references them as owner.
func (m *MembershipService) Leave(ctx context.Context, teamID, userID string) *Error {
	l := logger.FromContext(ctx)
	l.Info("leaving team", zap.String("team_id", teamID), zap.String("user_id", userID))

	team, err := m.teams.Get(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewServiceError(ErrorCodeNotFound, "team not found")
	}
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Error(err))
		return NewServiceError(ErrorCodeBackendUnavailable, "failed to get team")
	}

	if team.OwnerID == userID {
		l.Warn("owner attempted to leave", zap.String("team_id", teamID))
		return NewServiceError(ErrorCodeOwnerCannotLeave, "the owner cannot leave the team")
	}

	err = m.members.Delete(ctx, teamID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewServiceError(ErrorCodeNotMember, "not a member of this team")
	}
	if err != nil {
		l.Error("failed to delete membership",
			zap.String("team_id", teamID),
			zap.String("user_id", userID),
			zap.Error(err))
		return NewServiceError(ErrorCodeBackendUnavailable, "failed to delete membership")
	}

	m.notify(teamID)

	l.Debug("left team", zap.String("team_id", teamID), zap.String("user_id", userID))

	return nil
}

func (m *MembershipService) notify(teamID string) {
	if m.notifier != nil {
		m.notifier.Notify(teamID)
	}
}

func (m *MembershipService) WithTeamRepo(r repository.TeamRepository) *MembershipService {
	m.teams = r
	return m
}

func (m *MembershipService) WithJoinCodeRepo(r repository.JoinCodeRepository) *MembershipService {
	m.codes = r
	return m
}

func (m *MembershipService) WithMemberRepo(r repository.MemberRepository) *MembershipService {
	m.members = r
	return m
}

func (m *MembershipService) WithNotifier(n watch.Notifier) *MembershipService {
	m.notifier = n
	return m
}
