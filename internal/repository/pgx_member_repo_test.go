package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yakoovad/teampoints/internal/db"
)

// recordingTx captures the SQL the repository builds. Only the executor
// surface is implemented; the embedded interface panics on anything else.
type recordingTx struct {
	pgx.Tx

	sql  []string
	args [][]any
	row  pgx.Row
	qerr error
}

func (r *recordingTx) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	r.sql = append(r.sql, sql)
	r.args = append(r.args, args)
	return nil, r.qerr
}

func (r *recordingTx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	r.sql = append(r.sql, sql)
	r.args = append(r.args, args)
	return r.row
}

type memberRow struct {
	m   Member
	err error
}

func (r memberRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.m.TeamID
	*dest[1].(*string) = r.m.UserID
	*dest[2].(*string) = r.m.DisplayName
	*dest[3].(*int64) = r.m.Points
	*dest[4].(*time.Time) = r.m.JoinedAt
	*dest[5].(**time.Time) = r.m.LastChangeAt
	*dest[6].(**int64) = r.m.LastChangeAmount
	return nil
}

var memberScanColumns = []string{
	"team_id", "user_id", "display_name", "points",
	"joined_at", "last_change_at", "last_change_amount",
}

func execCtx(tx *recordingTx) context.Context {
	return context.WithValue(context.Background(), db.TxContextKey{}, tx)
}

func TestPgxMemberRepository_GetSelectsEveryScannedColumn(t *testing.T) {
	stored := Member{
		TeamID:      "team-1",
		UserID:      "user-1",
		DisplayName: "Jane",
		Points:      50,
		JoinedAt:    time.Now().UTC(),
	}
	tx := &recordingTx{row: memberRow{m: stored}}
	repo := NewPgxMemberRepository(nil)

	m, err := repo.Get(execCtx(tx), "team-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, &stored, m)

	require.Len(t, tx.sql, 1)
	for _, col := range memberScanColumns {
		assert.Contains(t, tx.sql[0], col)
	}
}

func TestPgxMemberRepository_GetNoRows(t *testing.T) {
	tx := &recordingTx{row: memberRow{err: pgx.ErrNoRows}}
	repo := NewPgxMemberRepository(nil)

	_, err := repo.Get(execCtx(tx), "team-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPgxMemberRepository_ListByTeamOrdersByJoinTime(t *testing.T) {
	tx := &recordingTx{qerr: errors.New("boom")}
	repo := NewPgxMemberRepository(nil)

	_, err := repo.ListByTeam(execCtx(tx), "team-1")
	require.Error(t, err)

	require.Len(t, tx.sql, 1)
	for _, col := range memberScanColumns {
		assert.Contains(t, tx.sql[0], col)
	}
	assert.Contains(t, tx.sql[0], "ORDER BY")
	assert.Contains(t, tx.sql[0], "joined_at ASC")
}

func TestPgxMemberRepository_AddPointsReturnsUpdatedRow(t *testing.T) {
	at := time.Now().UTC()
	delta := int64(25)
	updated := Member{
		TeamID:           "team-1",
		UserID:           "user-1",
		DisplayName:      "Jane",
		Points:           75,
		JoinedAt:         at.Add(-time.Hour),
		LastChangeAt:     &at,
		LastChangeAmount: &delta,
	}
	tx := &recordingTx{row: memberRow{m: updated}}
	repo := NewPgxMemberRepository(nil)

	m, err := repo.AddPoints(execCtx(tx), "team-1", "user-1", delta, at)
	require.NoError(t, err)
	assert.Equal(t, &updated, m)

	require.Len(t, tx.sql, 1)
	assert.Contains(t, tx.sql[0], "RETURNING")
	for _, col := range memberScanColumns {
		assert.Contains(t, tx.sql[0], col)
	}
	assert.Contains(t, tx.args[0], delta)
}

func TestPgxMemberRepository_SetPointsReturnsUpdatedRow(t *testing.T) {
	at := time.Now().UTC()
	points := int64(40)
	updated := Member{
		TeamID:           "team-1",
		UserID:           "user-1",
		Points:           points,
		JoinedAt:         at.Add(-time.Hour),
		LastChangeAt:     &at,
		LastChangeAmount: &points,
	}
	tx := &recordingTx{row: memberRow{m: updated}}
	repo := NewPgxMemberRepository(nil)

	m, err := repo.SetPoints(execCtx(tx), "team-1", "user-1", points, at)
	require.NoError(t, err)
	assert.Equal(t, &updated, m)

	require.Len(t, tx.sql, 1)
	assert.Contains(t, tx.sql[0], "RETURNING")
	for _, col := range memberScanColumns {
		assert.Contains(t, tx.sql[0], col)
	}
}
