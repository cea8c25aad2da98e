package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/yakoovad/teampoints/internal/db"
)

type Member struct {
	TeamID           string     `db:"team_id"`
	UserID           string     `db:"user_id"`
	DisplayName      string     `db:"display_name"`
	Points           int64      `db:"points"`
	JoinedAt         time.Time  `db:"joined_at"`
	LastChangeAt     *time.Time `db:"last_change_at"`
	LastChangeAmount *int64     `db:"last_change_amount"`
}

type MemberRepository interface {
	Create(ctx context.Context, member *Member) error
	Get(ctx context.Context, teamID, userID string) (*Member, error)
	Delete(ctx context.Context, teamID, userID string) error
	ListByTeam(ctx context.Context, teamID string) ([]*Member, error)
	ListTeamIDsByUser(ctx context.Context, userID string) ([]string, error)
	AddPoints(ctx context.Context, teamID, userID string, delta int64, at time.Time) (*Member, error)
	SetPoints(ctx context.Context, teamID, userID string, points int64, at time.Time) (*Member, error)
	ResetPoints(ctx context.Context, teamID string) error
	DeleteByTeam(ctx context.Context, teamID string) error
}

type pgxMemberRepository struct {
	pool *pgxpool.Pool
}

func NewPgxMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &pgxMemberRepository{pool: pool}
}

func scanMember(row pgx.Row) (*Member, error) {
	m := &Member{}
	err := row.Scan(
		&m.TeamID,
		&m.UserID,
		&m.DisplayName,
		&m.Points,
		&m.JoinedAt,
		&m.LastChangeAt,
		&m.LastChangeAmount,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (p *pgxMemberRepository) Create(ctx context.Context, member *Member) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Insert(
		im.Into("team_member", "team_id", "user_id", "display_name", "points", "joined_at", "last_change_at", "last_change_amount"),
		im.Values(
			psql.Arg(member.TeamID), psql.Arg(member.UserID), psql.Arg(member.DisplayName),
			psql.Arg(member.Points), psql.Arg(member.JoinedAt),
			psql.Arg(member.LastChangeAt), psql.Arg(member.LastChangeAmount),
		),
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

func (p *pgxMemberRepository) Get(ctx context.Context, teamID, userID string) (*Member, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("team_id", "user_id", "display_name", "points", "joined_at", "last_change_at", "last_change_amount"),
		sm.From("team_member"),
		sm.Where(
			psql.Quote("team_id").EQ(psql.Arg(teamID)).
				And(psql.Quote("user_id").EQ(psql.Arg(userID))),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	m, err := scanMember(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func (p *pgxMemberRepository) Delete(ctx context.Context, teamID, userID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("team_member"),
		dm.Where(
			psql.Quote("team_id").EQ(psql.Arg(teamID)).
				And(psql.Quote("user_id").EQ(psql.Arg(userID))),
		),
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

// ListByTeam returns members in join order; the leaderboard sort on top of it
// stays stable because of that ordering.
func (p *pgxMemberRepository) ListByTeam(ctx context.Context, teamID string) ([]*Member, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("team_id", "user_id", "display_name", "points", "joined_at", "last_change_at", "last_change_amount"),
		sm.From("team_member"),
		sm.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
		sm.OrderBy("joined_at").Asc(),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Member, error) {
		return scanMember(row)
	})
	if err != nil {
		return nil, err
	}

	return members, nil
}

func (p *pgxMemberRepository) ListTeamIDsByUser(ctx context.Context, userID string) ([]string, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Select(
		sm.Columns("team_id"),
		sm.From("team_member"),
		sm.Where(psql.Quote("user_id").EQ(psql.Arg(userID))),
		sm.OrderBy("joined_at").Asc(),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		if err = row.Scan(&id); err != nil {
			return "", err
		}
		return id, nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// AddPoints increments in a single statement so concurrent deltas never lose
// updates.
func (p *pgxMemberRepository) AddPoints(ctx context.Context, teamID, userID string, delta int64, at time.Time) (*Member, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("team_member"),
		um.SetCol("points").To(psql.Raw("points + ?", psql.Arg(delta))),
		um.SetCol("last_change_at").ToArg(at),
		um.SetCol("last_change_amount").ToArg(delta),
		um.Where(
			psql.Quote("team_id").EQ(psql.Arg(teamID)).
				And(psql.Quote("user_id").EQ(psql.Arg(userID))),
		),
		um.Returning("team_id", "user_id", "display_name", "points", "joined_at", "last_change_at", "last_change_amount"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	m, err := scanMember(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func (p *pgxMemberRepository) SetPoints(ctx context.Context, teamID, userID string, points int64, at time.Time) (*Member, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("team_member"),
		um.SetCol("points").ToArg(points),
		um.SetCol("last_change_at").ToArg(at),
		// The audit row keeps the new absolute total here, matching the
		// historical record shape.
		um.SetCol("last_change_amount").ToArg(points),
		um.Where(
			psql.Quote("team_id").EQ(psql.Arg(teamID)).
				And(psql.Quote("user_id").EQ(psql.Arg(userID))),
		),
		um.Returning("team_id", "user_id", "display_name", "points", "joined_at", "last_change_at", "last_change_amount"),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	m, err := scanMember(e.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func (p *pgxMemberRepository) ResetPoints(ctx context.Context, teamID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("team_member"),
		um.SetCol("points").ToArg(int64(0)),
		um.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return err
	}

	return nil
}

func (p *pgxMemberRepository) DeleteByTeam(ctx context.Context, teamID string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Delete(
		dm.From("team_member"),
		dm.Where(psql.Quote("team_id").EQ(psql.Arg(teamID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return err
	}

	return nil
}
