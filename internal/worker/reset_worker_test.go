package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yakoovad/teampoints/internal/repository"
	"github.com/yakoovad/teampoints/internal/service"
	"go.uber.org/zap"
)

func newWorker(tr *service.MockTeamRepository, mr *service.MockMemberRepository, n *service.MockNotifier) *ResetWorker {
	return NewResetWorker(new(service.MockTransactor), zap.NewNop(), time.Minute, time.Second).
		WithTeamRepo(tr).
		WithMemberRepo(mr).
		WithNotifier(n)
}

func TestResetWorker_ResetsDueTeams(t *testing.T) {
	tr := new(service.MockTeamRepository)
	mr := new(service.MockMemberRepository)
	n := new(service.MockNotifier)

	tr.On("ListForReset", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*repository.Team{
		{ID: "team-1", ResetIntervalDays: 7},
		{ID: "team-2", ResetIntervalDays: 1},
	}, nil)

	mr.On("ResetPoints", mock.Anything, "team-1").Return(nil)
	tr.On("MarkReset", mock.Anything, "team-1", mock.AnythingOfType("time.Time")).Return(nil)
	n.On("Notify", "team-1").Return()

	mr.On("ResetPoints", mock.Anything, "team-2").Return(nil)
	tr.On("MarkReset", mock.Anything, "team-2", mock.AnythingOfType("time.Time")).Return(nil)
	n.On("Notify", "team-2").Return()

	newWorker(tr, mr, n).runOnce(context.Background())

	tr.AssertExpectations(t)
	mr.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestResetWorker_NothingDue(t *testing.T) {
	tr := new(service.MockTeamRepository)
	mr := new(service.MockMemberRepository)
	n := new(service.MockNotifier)

	tr.On("ListForReset", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*repository.Team{}, nil)

	newWorker(tr, mr, n).runOnce(context.Background())

	mr.AssertNotCalled(t, "ResetPoints", mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "Notify", mock.Anything)
}

func TestResetWorker_FailedResetSkipsStampAndNotify(t *testing.T) {
	tr := new(service.MockTeamRepository)
	mr := new(service.MockMemberRepository)
	n := new(service.MockNotifier)

	tr.On("ListForReset", mock.Anything, mock.AnythingOfType("time.Time")).Return([]*repository.Team{
		{ID: "team-1", ResetIntervalDays: 7},
	}, nil)
	mr.On("ResetPoints", mock.Anything, "team-1").Return(errors.New("db error"))

	newWorker(tr, mr, n).runOnce(context.Background())

	tr.AssertNotCalled(t, "MarkReset", mock.Anything, mock.Anything, mock.Anything)
	n.AssertNotCalled(t, "Notify", mock.Anything)
}
