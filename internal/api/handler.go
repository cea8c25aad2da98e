package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/yakoovad/teampoints/internal/service"
	"github.com/yakoovad/teampoints/pkg/logger"
	"go.uber.org/zap"
)

type Handler struct {
	team        *service.TeamService
	membership  *service.MembershipService
	points      *service.PointsService
	leaderboard *service.LeaderboardService

	healthChecker HealthChecker

	logger *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

func (h *Handler) WithHealthChecker(c HealthChecker) *Handler {
	h.healthChecker = c
	return h
}

func (h *Handler) WithTeamService(team *service.TeamService) *Handler {
	h.team = team
	return h
}

func (h *Handler) WithMembershipService(membership *service.MembershipService) *Handler {
	h.membership = membership
	return h
}

func (h *Handler) WithPointsService(points *service.PointsService) *Handler {
	h.points = points
	return h
}

func (h *Handler) WithLeaderboardService(leaderboard *service.LeaderboardService) *Handler {
	h.leaderboard = leaderboard
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.Validator = NewValidator()
	e.Use(middleware.RequestID())
	e.Use(ZapLoggerMiddleware(h.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", h.healthChecker.HealthCheck())

	authed := e.Group("", AuthMiddleware())

	authed.POST("/teams", h.CreateTeam)
	authed.GET("/teams", h.ListMyTeams)
	authed.GET("/teams/:team_id", h.GetTeam)
	authed.DELETE("/teams/:team_id", h.DeleteTeam)
	authed.POST("/teams/join", h.JoinTeam)
	authed.POST("/teams/:team_id/leave", h.LeaveTeam)
	authed.POST("/teams/:team_id/points/add", h.AddPoints)
	authed.POST("/teams/:team_id/points/set", h.SetPoints)
	authed.GET("/teams/:team_id/watch", h.WatchTeam)
}

func (h *Handler) CreateTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Name              string `json:"team_name" validate:"required"`
		Description       string `json:"description"`
		ResetIntervalDays int    `json:"reset_interval_days" validate:"gte=0"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	user := CurrentUser(e)

	l.Info("creating team", zap.String("team_name", req.Name), zap.String("owner_id", user.Subject))

	team, err := h.team.CreateTeam(e.Request().Context(), req.Name, req.Description, req.ResetIntervalDays, user.Subject, user.DisplayName)
	if err != nil {
		l.Error("failed to create team", zap.String("team_name", req.Name), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, team)
}

func (h *Handler) ListMyTeams(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	user := CurrentUser(e)

	l.Info("listing user teams", zap.String("user_id", user.Subject))

	teams, err := h.leaderboard.ProjectUserTeams(e.Request().Context(), user.Subject)
	if err != nil {
		l.Error("failed to list user teams", zap.String("user_id", user.Subject), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, teams)
}

func (h *Handler) GetTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("team_id")

	l.Info("getting team", zap.String("team_id", teamID))

	team, err := h.team.GetTeam(e.Request().Context(), teamID)
	if err != nil {
		l.Error("failed to get team", zap.String("team_id", teamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, team)
}

func (h *Handler) DeleteTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("team_id")
	user := CurrentUser(e)

	l.Info("deleting team", zap.String("team_id", teamID), zap.String("requester_id", user.Subject))

	if err := h.team.DeleteTeam(e.Request().Context(), teamID, user.Subject); err != nil {
		l.Error("failed to delete team", zap.String("team_id", teamID), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) JoinTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		Code string `json:"code" validate:"required"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	user := CurrentUser(e)

	l.Info("joining team", zap.String("user_id", user.Subject))

	teamID, err := h.membership.JoinByCode(e.Request().Context(), req.Code, user.Subject, user.DisplayName)
	if err != nil {
		l.Error("failed to join team", zap.String("user_id", user.Subject), zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusCreated, map[string]string{"team_id": teamID})
}

func (h *Handler) LeaveTeam(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	teamID := e.Param("team_id")
	user := CurrentUser(e)

	l.Info("leaving team", zap.String("team_id", teamID), zap.String("user_id", user.Subject))

	if err := h.membership.Leave(e.Request().Context(), teamID, user.Subject); err != nil {
		l.Error("failed to leave team",
			zap.String("team_id", teamID),
			zap.String("user_id", user.Subject),
			zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.NoContent(http.StatusNoContent)
}

func (h *Handler) AddPoints(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		UserID string `json:"user_id" validate:"required"`
		Amount int64  `json:"amount"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	teamID := e.Param("team_id")

	l.Info("adding points",
		zap.String("team_id", teamID),
		zap.String("user_id", req.UserID),
		zap.Int64("amount", req.Amount))

	member, err := h.points.AddPoints(e.Request().Context(), teamID, req.UserID, req.Amount)
	if err != nil {
		l.Error("failed to add points",
			zap.String("team_id", teamID),
			zap.String("user_id", req.UserID),
			zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, member)
}

func (h *Handler) SetPoints(e echo.Context) error {
	l := logger.FromContext(e.Request().Context())

	var req struct {
		UserID string `json:"user_id" validate:"required"`
		Points int64  `json:"points"`
	}

	if err := h.decodeRequest(e, &req); err != nil {
		l.Error("invalid request", zap.Any("error", err))
		return h.transportError(e, err)
	}

	teamID := e.Param("team_id")

	l.Info("setting points",
		zap.String("team_id", teamID),
		zap.String("user_id", req.UserID),
		zap.Int64("points", req.Points))

	member, err := h.points.SetPoints(e.Request().Context(), teamID, req.UserID, req.Points)
	if err != nil {
		l.Error("failed to set points",
			zap.String("team_id", teamID),
			zap.String("user_id", req.UserID),
			zap.Any("error", err))
		return h.transportError(e, err)
	}

	return e.JSON(http.StatusOK, member)
}

func (h *Handler) decodeRequest(e echo.Context, req any) *service.Error {
	if err := e.Bind(req); err != nil {
		return service.NewServiceError(service.ErrorCodeInvalidBody, "invalid request body")
	}

	if err := e.Validate(req); err != nil {
		return service.NewServiceError(service.ErrorCodeInvalidBody, errors.Wrap(err, "request validation failed").Error())
	}
	return nil
}

func (h *Handler) transportError(e echo.Context, err *service.Error) error {
	response := struct {
		Error *service.Error `json:"error"`
	}{Error: err}

	switch err.Code {
	case service.ErrorCodeNotFound:
		return e.JSON(http.StatusNotFound, response)
	case service.ErrorCodeValidation, service.ErrorCodeInvalidBody:
		return e.JSON(http.StatusBadRequest, response)
	case service.ErrorCodeNotMember, service.ErrorCodeAlreadyMember, service.ErrorCodeOwnerCannotLeave:
		return e.JSON(http.StatusConflict, response)
	case service.ErrorCodeNotAuthorized:
		return e.JSON(http.StatusForbidden, response)
	case service.ErrorCodeCodeSpaceExhausted, service.ErrorCodeBackendUnavailable:
		return e.JSON(http.StatusServiceUnavailable, response)
	default:
		return e.JSON(http.StatusInternalServerError, response)
	}
}
