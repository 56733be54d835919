package db_test

import (
	"context"
	"database/sql"
	"ms-booking/internal/catalog/db"
	"ms-booking/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *db.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Movie)(nil),
		(*models.Booking)(nil),
		(*models.SeatCell)(nil),
		(*models.WatchlistEntry)(nil),
	} {
		if err := bunDB.ResetModel(ctx, model); err != nil {
			t.Fatalf("Failed to reset model %T: %v", model, err)
		}
	}

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}
}

func seedMovies(t *testing.T, d *db.DB, n int) {
	for i := 0; i < n; i++ {
		require.NoError(t, d.InsertMovie(&models.Movie{
			Position: i,
			Title:    "Movie " + string(rune('A'+i)),
			Timings:  []string{"10:00 AM", "7:00 PM"},
		}))
	}
}

func TestInsertAndGetMovie(t *testing.T) {
	d := setupTestDB(t)
	seedMovies(t, d, 3)

	movie, err := d.GetMovie(1)
	require.NoError(t, err)
	assert.Equal(t, "Movie B", movie.Title)
	assert.Equal(t, []string{"10:00 AM", "7:00 PM"}, movie.Timings)

	count, err := d.CountMovies()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = d.GetMovie(9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUpdateMovie_EditsInPlace(t *testing.T) {
	d := setupTestDB(t)
	seedMovies(t, d, 2)

	movie, err := d.GetMovie(1)
	require.NoError(t, err)

	movie.Title = "Renamed"
	movie.Timings = []string{"9:00 PM"}
	require.NoError(t, d.UpdateMovie(movie))

	reloaded, err := d.GetMovie(1)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", reloaded.Title)
	assert.Equal(t, []string{"9:00 PM"}, reloaded.Timings)

	untouched, err := d.GetMovie(0)
	require.NoError(t, err)
	assert.Equal(t, "Movie A", untouched.Title)
}

func TestDeleteMovieCascade_RenumbersEverything(t *testing.T) {
	d := setupTestDB(t)
	seedMovies(t, d, 5)

	ctx := context.Background()
	now := time.Now()
	bookings := []models.Booking{
		{BookingID: "b-1", UserEmail: "alice@example.com", MovieIdx: 1, TimingIdx: 0, Count: 1, BookedAt: now},
		{BookingID: "b-2", UserEmail: "alice@example.com", MovieIdx: 2, TimingIdx: 0, Count: 1, BookedAt: now},
		{BookingID: "b-3", UserEmail: "bob@example.com", MovieIdx: 3, TimingIdx: 1, Count: 1, BookedAt: now},
		{BookingID: "b-4", UserEmail: "bob@example.com", MovieIdx: 4, TimingIdx: 1, Count: 1, BookedAt: now},
	}
	_, err := d.Bun.NewInsert().Model(&bookings).Exec(ctx)
	require.NoError(t, err)

	watchlist := []models.WatchlistEntry{
		{UserEmail: "alice@example.com", MovieIdx: 2},
		{UserEmail: "alice@example.com", MovieIdx: 4},
	}
	_, err = d.Bun.NewInsert().Model(&watchlist).Exec(ctx)
	require.NoError(t, err)

	cells := []models.SeatCell{
		{MovieIdx: 1, TimingIdx: 0, SeatsLeft: 59},
		{MovieIdx: 2, TimingIdx: 0, SeatsLeft: 58},
		{MovieIdx: 3, TimingIdx: 0, SeatsLeft: 57},
	}
	_, err = d.Bun.NewInsert().Model(&cells).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, d.DeleteMovieCascade(2))

	// Catalog shrank and positions are dense again.
	movies, err := d.GetMovies()
	require.NoError(t, err)
	require.Len(t, movies, 4)
	for i, m := range movies {
		assert.Equal(t, i, m.Position)
	}
	assert.Equal(t, "Movie D", movies[2].Title, "movie past the deleted one shifted down")

	// Bookings at idx 2 vanished, higher ones shifted down.
	var remaining []models.Booking
	require.NoError(t, d.Bun.NewSelect().Model(&remaining).Order("booking_id").Scan(ctx))
	require.Len(t, remaining, 3)
	assert.Equal(t, 1, remaining[0].MovieIdx) // b-1 untouched
	assert.Equal(t, 2, remaining[1].MovieIdx) // b-3 was 3
	assert.Equal(t, 3, remaining[2].MovieIdx) // b-4 was 4

	// Watchlists follow the same rule.
	var entries []models.WatchlistEntry
	require.NoError(t, d.Bun.NewSelect().Model(&entries).Order("movie_idx").Scan(ctx))
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].MovieIdx)

	// Ledger rows too (stale values, reconcile rebuilds them afterwards).
	var ledger []models.SeatCell
	require.NoError(t, d.Bun.NewSelect().Model(&ledger).Order("movie_idx").Scan(ctx))
	require.Len(t, ledger, 2)
	assert.Equal(t, 1, ledger[0].MovieIdx)
	assert.Equal(t, 2, ledger[1].MovieIdx)
}

func TestDeleteMovieCascade_FirstAndLastPosition(t *testing.T) {
	d := setupTestDB(t)
	seedMovies(t, d, 3)

	require.NoError(t, d.DeleteMovieCascade(0))
	movies, err := d.GetMovies()
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Movie B", movies[0].Title)
	assert.Equal(t, 0, movies[0].Position)

	require.NoError(t, d.DeleteMovieCascade(1))
	movies, err = d.GetMovies()
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "Movie B", movies[0].Title)
}
