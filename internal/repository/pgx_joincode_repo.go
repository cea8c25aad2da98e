package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/yakoovad/teampoints/internal/db"
)

// JoinCodeRepository owns the code -> team mapping. A code row lives exactly
// as long as its team.
type JoinCodeRepository interface {
	Create(ctx context.Context, code, teamID string) error
	Resolve(ctx context.Context, code string) (string, error)
	GetByTeam(ctx context.Context, teamID string) (string, error)
	DeleteByTeam(ctx context.Context, teamID string) error
}

type pgxJoinCodeRepository struct {
	pool *pgxpool.Pool
}

func NewPgxJoinCodeRepository(pool *pgxpool.Pool) JoinCodeRepository {
	return &pgxJoinCodeRepository{pool: pool}
}

func (p *pgxJoinCodeRepository) Create(ctx context.Context, code, teamID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("join_code", "code", "team_id"),
		im.Values(psql.Arg(code), psql.Arg(teamID)),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	_, err = e.Exec(ctx, sql, args...)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}

	return err
}

func (p *pgxJoinCodeRepository) Resolve(ctx context.Context, code string) (string, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("team_id"),
		sm.From("join_code"),
		sm.Where(psql.Quote("code").EQ(psql.Arg(code))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return "", err
	}

	var teamID string
	if err = e.QueryRow(ctx, sql, args...).Scan(&teamID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return teamID, nil
}

func (p *pgxJoinCodeRepository) GetByTeam(ctx context.Context, teamID string) (string, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("code"),
		sm.From("join_code"),
		sm.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return "", err
	}

	var code string
	if err = e.QueryRow(ctx, sql, args...).Scan(&code); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return code, nil
}

func (p *pgxJoinCodeRepository) DeleteByTeam(ctx context.Context, teamID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("join_code"),
		dm.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	commandTag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}

	if commandTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
