package watchlist

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupRepo(t *testing.T) (*Repository, *sql.DB) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, repo.InitSchema())
	return repo, db
}

func TestRepository_AddListRemove(t *testing.T) {
	repo, _ := setupRepo(t)

	require.NoError(t, repo.Add("user-1", "petr4"))
	require.NoError(t, repo.Add("user-1", "VALE3"))
	require.NoError(t, repo.Add("user-2", "BBAS3"))

	tickers, err := repo.List("user-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"PETR4", "VALE3"}, tickers)

	require.NoError(t, repo.Remove("user-1", "PETR4"))
	tickers, err = repo.List("user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"VALE3"}, tickers)

	// Other users are untouched.
	tickers, err = repo.List("user-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"BBAS3"}, tickers)
}

func TestRepository_AddIsIdempotent(t *testing.T) {
	repo, _ := setupRepo(t)

	require.NoError(t, repo.Add("user-1", "PETR4"))
	require.NoError(t, repo.Add("user-1", "PETR4"))

	tickers, err := repo.List("user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"PETR4"}, tickers)
}

func TestRepository_RemoveAbsentIsNoop(t *testing.T) {
	repo, _ := setupRepo(t)
	require.NoError(t, repo.Remove("user-1", "PETR4"))
}
