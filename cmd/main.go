package main

import (
	"context"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/yakoovad/teampoints/internal/api"
	"github.com/yakoovad/teampoints/internal/auth"
	"github.com/yakoovad/teampoints/internal/config"
	"github.com/yakoovad/teampoints/internal/db"
	"github.com/yakoovad/teampoints/internal/joincode"
	"github.com/yakoovad/teampoints/internal/repository"
	"github.com/yakoovad/teampoints/internal/service"
	"github.com/yakoovad/teampoints/internal/watch"
	"github.com/yakoovad/teampoints/internal/worker"
	"github.com/yakoovad/teampoints/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	logger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting application")

	cfg := config.Load()

	if cfg.TokenSecret == "" {
		logger.Fatal("TOKEN_AUTH_SECRET is not set")
	}
	auth.TokenSecretKey = cfg.TokenSecret

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err = pool.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}

	logger.Info("database connection established")

	transactor := db.NewPgxTransactor(pool)

	teamRepo := repository.NewPgxTeamRepository(pool)
	codeRepo := repository.NewPgxJoinCodeRepository(pool)
	memberRepo := repository.NewPgxMemberRepository(pool)

	leaderboard := service.NewLeaderboardService().
		WithTeamRepo(teamRepo).
		WithJoinCodeRepo(codeRepo).
		WithMemberRepo(memberRepo)

	broker := watch.NewBroker(leaderboard.Snapshot, cfg.StoreTimeout)
	leaderboard = leaderboard.WithBroker(broker)

	team := service.NewTeamService(transactor).
		WithTeamRepo(teamRepo).
		WithJoinCodeRepo(codeRepo).
		WithMemberRepo(memberRepo).
		WithCodeGenerator(joincode.NewRandomGenerator()).
		WithNotifier(broker)
	membership := service.NewMembershipService(transactor).
		WithTeamRepo(teamRepo).
		WithJoinCodeRepo(codeRepo).
		WithMemberRepo(memberRepo).
		WithNotifier(broker)
	points := service.NewPointsService(transactor).
		WithMemberRepo(memberRepo).
		WithNotifier(broker)

	resetWorker := worker.NewResetWorker(transactor, logger, cfg.ResetTick, cfg.StoreTimeout).
		WithTeamRepo(teamRepo).
		WithMemberRepo(memberRepo).
		WithNotifier(broker)
	go resetWorker.Run(context.Background())

	healthChecker := api.MustNewHealthChecker(health.Config{
		Name:    "postgres",
		Timeout: 5 * time.Second,
		Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	})

	e := echo.New()

	handler := api.NewHandler(logger).
		WithHealthChecker(healthChecker).
		WithTeamService(team).
		WithMembershipService(membership).
		WithPointsService(points).
		WithLeaderboardService(leaderboard)

	handler.RegisterRoutes(e)

	logger.Info("server starting", zap.String("addr", cfg.HTTPAddr))
	if err = e.Start(cfg.HTTPAddr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
