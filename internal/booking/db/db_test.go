package db_test

import (
	"context"
	"database/sql"
	"ms-booking/internal/booking/db"
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
		(*models.User)(nil),
	} {
		if err := bunDB.ResetModel(ctx, model); err != nil {
			t.Fatalf("Failed to reset model %T: %v", model, err)
		}
	}

	t.Cleanup(func() { bunDB.Close() })
	return &db.DB{Bun: bunDB}
}

func TestUpsertBooking_InsertThenGrow(t *testing.T) {
	d := setupTestDB(t)
	now := time.Now().Round(time.Second)

	first, err := d.UpsertBooking("alice@example.com", 0, 1, 2, now)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Count)
	assert.False(t, first.Paid)

	second, err := d.UpsertBooking("alice@example.com", 0, 1, 3, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.BookingID, second.BookingID, "same triple grows the existing row")
	assert.Equal(t, 5, second.Count)

	rows, err := d.GetBookingsByUser("alice@example.com")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Count)
}

func TestUpsertBooking_GrowResetsPaid(t *testing.T) {
	d := setupTestDB(t)
	now := time.Now().Round(time.Second)

	first, err := d.UpsertBooking("alice@example.com", 1, 0, 1, now)
	require.NoError(t, err)

	// Admin confirms, then the user books more seats on the same showtime.
	require.NoError(t, d.UpdateBookingPaid(first.BookingID, true))

	grown, err := d.UpsertBooking("alice@example.com", 1, 0, 2, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, grown.Paid, "new unconfirmed seats force the entry back to due")
	assert.Equal(t, 3, grown.Count)
}

func TestUpsertBooking_DifferentTimingsStaySeparate(t *testing.T) {
	d := setupTestDB(t)
	now := time.Now().Round(time.Second)

	_, err := d.UpsertBooking("alice@example.com", 0, 0, 1, now)
	require.NoError(t, err)
	_, err = d.UpsertBooking("alice@example.com", 0, 1, 1, now)
	require.NoError(t, err)
	_, err = d.UpsertBooking("bob@example.com", 0, 0, 1, now)
	require.NoError(t, err)

	rows, err := d.GetBookingsByUser("alice@example.com")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGetBookingsByUser_StableOrder(t *testing.T) {
	d := setupTestDB(t)
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	// Inserted out of chronological order.
	_, err := d.UpsertBooking("alice@example.com", 2, 0, 1, base.Add(2*time.Hour))
	require.NoError(t, err)
	_, err = d.UpsertBooking("alice@example.com", 0, 1, 1, base)
	require.NoError(t, err)
	_, err = d.UpsertBooking("alice@example.com", 1, 0, 1, base.Add(time.Hour))
	require.NoError(t, err)

	rows, err := d.GetBookingsByUser("alice@example.com")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 0, rows[0].MovieIdx)
	assert.Equal(t, 1, rows[1].MovieIdx)
	assert.Equal(t, 2, rows[2].MovieIdx)
}

func TestUpdateBookingPaid_MissingRow(t *testing.T) {
	d := setupTestDB(t)
	err := d.UpdateBookingPaid("no-such-booking", true)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReplaceBookings_SwapsUserRows(t *testing.T) {
	d := setupTestDB(t)
	now := time.Now().Round(time.Second)

	_, err := d.UpsertBooking("alice@example.com", 0, 0, 1, now)
	require.NoError(t, err)
	_, err = d.UpsertBooking("alice@example.com", 0, 1, 1, now)
	require.NoError(t, err)

	merged := map[string][]models.Booking{
		"alice@example.com": {
			{BookingID: "merged-1", UserEmail: "alice@example.com", MovieIdx: 0, TimingIdx: 0, Count: 2, Paid: true, BookedAt: now},
		},
	}
	require.NoError(t, d.ReplaceBookings(merged))

	rows, err := d.GetBookingsByUser("alice@example.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "merged-1", rows[0].BookingID)
	assert.Equal(t, 2, rows[0].Count)
	assert.True(t, rows[0].Paid)
}

func TestReplaceLedger_Wholesale(t *testing.T) {
	d := setupTestDB(t)

	require.NoError(t, d.ReplaceLedger([]models.SeatCell{
		{MovieIdx: 0, TimingIdx: 0, SeatsLeft: 60},
		{MovieIdx: 0, TimingIdx: 1, SeatsLeft: 12},
	}))

	require.NoError(t, d.ReplaceLedger([]models.SeatCell{
		{MovieIdx: 0, TimingIdx: 0, SeatsLeft: 55},
	}))

	cells, err := d.GetLedger()
	require.NoError(t, err)
	require.Len(t, cells, 1, "old cells never survive a replace")
	assert.Equal(t, 55, cells[0].SeatsLeft)
}

func TestGetLedgerForMovie(t *testing.T) {
	d := setupTestDB(t)

	require.NoError(t, d.ReplaceLedger([]models.SeatCell{
		{MovieIdx: 0, TimingIdx: 0, SeatsLeft: 60},
		{MovieIdx: 1, TimingIdx: 0, SeatsLeft: 30},
		{MovieIdx: 1, TimingIdx: 1, SeatsLeft: 20},
	}))

	cells, err := d.GetLedgerForMovie(1)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, 30, cells[0].SeatsLeft)
	assert.Equal(t, 20, cells[1].SeatsLeft)
}

func TestToggleWatchlist_AddThenRemove(t *testing.T) {
	d := setupTestDB(t)

	added, err := d.ToggleWatchlist("alice@example.com", 3)
	require.NoError(t, err)
	assert.True(t, added)

	indices, err := d.GetWatchlist("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, indices)

	added, err = d.ToggleWatchlist("alice@example.com", 3)
	require.NoError(t, err)
	assert.False(t, added)

	indices, err = d.GetWatchlist("alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, indices)
}

func TestUsers_CreateAndCount(t *testing.T) {
	d := setupTestDB(t)

	require.NoError(t, d.CreateUser(models.User{
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
	}))

	user, err := d.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)

	_, err = d.GetUserByEmail("nobody@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	count, err := d.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	d := setupTestDB(t)

	require.NoError(t, d.CreateUser(models.User{
		Email:        "alice@example.com",
		PasswordHash: "hash",
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
	}))

	err := d.CreateUser(models.User{
		Email:        "alice@example.com",
		PasswordHash: "other-hash",
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
	})
	assert.ErrorIs(t, err, models.ErrDuplicateUser,
		"unique violation maps to the domain sentinel, not a driver error")
}
