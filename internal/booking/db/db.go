package db

import (
	"context"
	"database/sql"
	"errors"
	"ms-booking/internal/models"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- MOVIES (read side) ----------------

// GetMovies → current catalog in position order
func (d *DB) GetMovies() ([]models.Movie, error) {
	var movies []models.Movie
	err := d.Bun.NewSelect().
		Model(&movies).
		Order("position").
		Scan(context.Background())
	return movies, err
}

// ---------------- BOOKINGS ----------------

// GetBookingsByUser → all bookings of one user in stable iteration order.
// The order (booked_at, movie_idx, timing_idx) is what positional entry
// indices in the admin toggle refer to.
func (d *DB) GetBookingsByUser(email string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Where("user_email = ?", email).
		Order("booked_at", "movie_idx", "timing_idx").
		Scan(context.Background())
	return bookings, err
}

// GetAllBookings → every booking system-wide, grouped by user
func (d *DB) GetAllBookings() (map[string][]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Order("user_email", "booked_at", "movie_idx", "timing_idx").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]models.Booking)
	for _, b := range bookings {
		grouped[b.UserEmail] = append(grouped[b.UserEmail], b)
	}
	return grouped, nil
}

// UpsertBooking → insert a new booking for the triple, or add to the
// existing one. Growing an entry always forces paid back to false: the new
// seats are unconfirmed, and partial payment is not modeled.
func (d *DB) UpsertBooking(email string, movieIdx, timingIdx, count int, now time.Time) (*models.Booking, error) {
	var result models.Booking

	err := d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		var existing models.Booking
		err := tx.NewSelect().
			Model(&existing).
			Where("user_email = ?", email).
			Where("movie_idx = ?", movieIdx).
			Where("timing_idx = ?", timingIdx).
			Limit(1).
			Scan(ctx)

		if errors.Is(err, sql.ErrNoRows) {
			result = models.Booking{
				BookingID: uuid.NewString(),
				UserEmail: email,
				MovieIdx:  movieIdx,
				TimingIdx: timingIdx,
				Count:     count,
				Paid:      false,
				BookedAt:  now,
			}
			_, err = tx.NewInsert().Model(&result).Exec(ctx)
			return err
		}
		if err != nil {
			return err
		}

		existing.Count += count
		existing.Paid = false
		_, err = tx.NewUpdate().
			Model(&existing).
			Column("seat_count", "paid").
			Where("booking_id = ?", existing.BookingID).
			Exec(ctx)
		result = existing
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateBookingPaid → flip the payment flag of a single booking row
func (d *DB) UpdateBookingPaid(bookingID string, paid bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("paid = ?", paid).
		Where("booking_id = ?", bookingID).
		Exec(context.Background())
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReplaceBookings → swap every user's raw booking rows for their merged
// form in one transaction. Used by normalization; never patches rows.
func (d *DB) ReplaceBookings(merged map[string][]models.Booking) error {
	return d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		for email, rows := range merged {
			_, err := tx.NewDelete().
				Model((*models.Booking)(nil)).
				Where("user_email = ?", email).
				Exec(ctx)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				continue
			}
			_, err = tx.NewInsert().Model(&rows).Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ---------------- SEAT LEDGER ----------------

// ReplaceLedger → full-table swap. The ledger is derived state and is only
// ever written wholesale, which rules out double-application drift.
func (d *DB) ReplaceLedger(cells []models.SeatCell) error {
	return d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.SeatCell)(nil)).
			Where("1 = 1").
			Exec(ctx)
		if err != nil {
			return err
		}
		if len(cells) == 0 {
			return nil
		}
		_, err = tx.NewInsert().Model(&cells).Exec(ctx)
		return err
	})
}

// GetLedger → all cells, movie-major order
func (d *DB) GetLedger() ([]models.SeatCell, error) {
	var cells []models.SeatCell
	err := d.Bun.NewSelect().
		Model(&cells).
		Order("movie_idx", "timing_idx").
		Scan(context.Background())
	return cells, err
}

// GetLedgerForMovie → remaining seats per timing for one movie
func (d *DB) GetLedgerForMovie(movieIdx int) ([]models.SeatCell, error) {
	var cells []models.SeatCell
	err := d.Bun.NewSelect().
		Model(&cells).
		Where("movie_idx = ?", movieIdx).
		Order("timing_idx").
		Scan(context.Background())
	return cells, err
}

// ---------------- WATCHLISTS ----------------

func (d *DB) GetWatchlist(email string) ([]int, error) {
	var indices []int
	err := d.Bun.NewSelect().
		Column("movie_idx").
		Table("watchlists").
		Where("user_email = ?", email).
		Order("movie_idx").
		Scan(context.Background(), &indices)
	if err != nil {
		return nil, err
	}
	if indices == nil {
		indices = []int{}
	}
	return indices, nil
}

// ToggleWatchlist → add the movie if absent, remove it if present.
// Returns true when the movie ended up on the list.
func (d *DB) ToggleWatchlist(email string, movieIdx int) (bool, error) {
	added := false
	err := d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		var entry models.WatchlistEntry
		err := tx.NewSelect().
			Model(&entry).
			Where("user_email = ?", email).
			Where("movie_idx = ?", movieIdx).
			Limit(1).
			Scan(ctx)

		if errors.Is(err, sql.ErrNoRows) {
			entry = models.WatchlistEntry{UserEmail: email, MovieIdx: movieIdx}
			_, err = tx.NewInsert().Model(&entry).Exec(ctx)
			added = true
			return err
		}
		if err != nil {
			return err
		}

		_, err = tx.NewDelete().
			Model((*models.WatchlistEntry)(nil)).
			Where("id = ?", entry.ID).
			Exec(ctx)
		return err
	})
	return added, err
}

// ---------------- USERS ----------------

func (d *DB) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("email = ?", email).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new account row. A concurrent register for the same
// email can slip past the service-level existence check, so the primary-key
// violation surfaces as ErrDuplicateUser rather than a raw driver error.
func (d *DB) CreateUser(user models.User) error {
	_, err := d.Bun.NewInsert().Model(&user).Exec(context.Background())
	if err != nil && isUniqueViolation(err) {
		return models.ErrDuplicateUser
	}
	return err
}

// isUniqueViolation matches duplicate-key errors across drivers: pq error
// code 23505 in production, the sqlite message under test.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint")
}

func (d *DB) CountUsers() (int, error) {
	return d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Count(context.Background())
}
