package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/teampoints/internal/repository"
)

func TestMembershipService_JoinByCode(t *testing.T) {
	tests := []struct {
		name          string
		code          string
		displayName   string
		setupMocks    func(*MockJoinCodeRepository, *MockMemberRepository, *MockNotifier)
		expectedError bool
		errorCode     ErrorCode
		expectedTeam  string
	}{
		{
			name:        "success",
			code:        "12345678",
			displayName: "Jane",
			setupMocks: func(cr *MockJoinCodeRepository, mr *MockMemberRepository, n *MockNotifier) {
				cr.On("Resolve", mock.Anything, "12345678").Return("team-1", nil)
				mr.On("Create", mock.Anything, mock.MatchedBy(func(m *repository.Member) bool {
					return m.TeamID == "team-1" && m.UserID == "user-1" &&
						m.DisplayName == "Jane" && m.Points == 0 &&
						m.LastChangeAt == nil && m.LastChangeAmount == nil
				})).Return(nil)
				n.On("Notify", "team-1").Return()
			},
			expectedTeam: "team-1",
		},
		{
			name:        "empty display name gets a placeholder",
			code:        "12345678",
			displayName: "",
			setupMocks: func(cr *MockJoinCodeRepository, mr *MockMemberRepository, n *MockNotifier) {
				cr.On("Resolve", mock.Anything, "12345678").Return("team-1", nil)
				mr.On("Create", mock.Anything, mock.MatchedBy(func(m *repository.Member) bool {
					return m.DisplayName == "Unnamed"
				})).Return(nil)
				n.On("Notify", "team-1").Return()
			},
			expectedTeam: "team-1",
		},
		{
			name:          "malformed code, no store access",
			code:          "1234",
			setupMocks:    func(*MockJoinCodeRepository, *MockMemberRepository, *MockNotifier) {},
			expectedError: true,
			errorCode:     ErrorCodeValidation,
		},
		{
			name:          "non-numeric code",
			code:          "12ab5678",
			setupMocks:    func(*MockJoinCodeRepository, *MockMemberRepository, *MockNotifier) {},
			expectedError: true,
			errorCode:     ErrorCodeValidation,
		},
		{
			name: "unmapped code",
			code: "87654321",
			setupMocks: func(cr *MockJoinCodeRepository, mr *MockMemberRepository, n *MockNotifier) {
				cr.On("Resolve", mock.Anything, "87654321").Return("", repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
		{
			name: "already a member",
			code: "12345678",
			setupMocks: func(cr *MockJoinCodeRepository, mr *MockMemberRepository, n *MockNotifier) {
				cr.On("Resolve", mock.Anything, "12345678").Return("team-1", nil)
				mr.On("Create", mock.Anything, mock.Anything).Return(repository.ErrAlreadyExists)
			},
			expectedError: true,
			errorCode:     ErrorCodeAlreadyMember,
		},
		{
			name: "store failure",
			code: "12345678",
			setupMocks: func(cr *MockJoinCodeRepository, mr *MockMemberRepository, n *MockNotifier) {
				cr.On("Resolve", mock.Anything, "12345678").Return("", errors.New("db error"))
			},
			expectedError: true,
			errorCode:     ErrorCodeBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTx := new(MockTransactor)
			mockCodeRepo := new(MockJoinCodeRepository)
			mockMemberRepo := new(MockMemberRepository)
			mockNotifier := new(MockNotifier)

			tt.setupMocks(mockCodeRepo, mockMemberRepo, mockNotifier)

			service := NewMembershipService(mockTx).
				WithJoinCodeRepo(mockCodeRepo).
				WithMemberRepo(mockMemberRepo).
				WithNotifier(mockNotifier)

			teamID, err := service.JoinByCode(context.Background(), tt.code, "user-1", tt.displayName)

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				assert.Empty(t, teamID)
				if tt.errorCode == ErrorCodeValidation {
					mockCodeRepo.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
				}
				mockNotifier.AssertNotCalled(t, "Notify", mock.Anything)
			} else {
				require.Nil(t, err)
				assert.Equal(t, tt.expectedTeam, teamID)
			}

			mockCodeRepo.AssertExpectations(t)
			mockMemberRepo.AssertExpectations(t)
			mockNotifier.AssertExpectations(t)
		})
	}
}

func TestMembershipService_Leave(t *testing.T) {
	tests := []struct {
		name          string
		userID        string
		setupMocks    func(*MockTeamRepository, *MockMemberRepository, *MockNotifier)
		expectedError bool
		errorCode     ErrorCode
	}{
		{
			name:   "member leaves",
			userID: "user-2",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, n *MockNotifier) {
				tr.On("Get", mock.Anything, "team-1").Return(&repository.Team{ID: "team-1", OwnerID: "owner-1"}, nil)
				mr.On("Delete", mock.Anything, "team-1", "user-2").Return(nil)
				n.On("Notify", "team-1").Return()
			},
		},
		{
			name:   "owner cannot leave",
			userID: "owner-1",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, n *MockNotifier) {
				tr.On("Get", mock.Anything, "team-1").Return(&repository.Team{ID: "team-1", OwnerID: "owner-1"}, nil)
			},
			expectedError: true,
			errorCode:     ErrorCodeOwnerCannotLeave,
		},
		{
			name:   "not a member",
			userID: "stranger",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, n *MockNotifier) {
				tr.On("Get", mock.Anything, "team-1").Return(&repository.Team{ID: "team-1", OwnerID: "owner-1"}, nil)
				mr.On("Delete", mock.Anything, "team-1", "stranger").Return(repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotMember,
		},
		{
			name:   "team not found",
			userID: "user-2",
			setupMocks: func(tr *MockTeamRepository, mr *MockMemberRepository, n *MockNotifier) {
				tr.On("Get", mock.Anything, "team-1").Return(nil, repository.ErrNotFound)
			},
			expectedError: true,
			errorCode:     ErrorCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTx := new(MockTransactor)
			mockTeamRepo := new(MockTeamRepository)
			mockMemberRepo := new(MockMemberRepository)
			mockNotifier := new(MockNotifier)

			tt.setupMocks(mockTeamRepo, mockMemberRepo, mockNotifier)

			service := NewMembershipService(mockTx).
				WithTeamRepo(mockTeamRepo).
				WithMemberRepo(mockMemberRepo).
				WithNotifier(mockNotifier)

			err := service.Leave(context.Background(), "team-1", tt.userID)

			if tt.expectedError {
				require.Error(t, err)
				assert.Equal(t, tt.errorCode, err.Code)
				if tt.errorCode == ErrorCodeOwnerCannotLeave {
					mockMemberRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
				}
			} else {
				require.Nil(t, err)
			}

			mockTeamRepo.AssertExpectations(t)
			mockMemberRepo.AssertExpectations(t)
			mockNotifier.AssertExpectations(t)
		})
	}
}
