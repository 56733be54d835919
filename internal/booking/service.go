package booking

import (
	"errors"
	"fmt"
	"ms-booking/internal/models"
	"sort"
	"time"

	"github.com/google/uuid"
)

type DBLayer interface {
	GetMovies() ([]models.Movie, error)
	GetBookingsByUser(email string) ([]models.Booking, error)
	GetAllBookings() (map[string][]models.Booking, error)
	UpsertBooking(email string, movieIdx, timingIdx, count int, now time.Time) (*models.Booking, error)
	UpdateBookingPaid(bookingID string, paid bool) error
	ReplaceBookings(merged map[string][]models.Booking) error
	ReplaceLedger(cells []models.SeatCell) error
	GetLedger() ([]models.SeatCell, error)
	GetWatchlist(email string) ([]int, error)
	ToggleWatchlist(email string, movieIdx int) (bool, error)
	CountUsers() (int, error)
}

// MutationLock serializes every write against the booking store. Two
// interleaved toggles, or a toggle racing a movie delete, must never read
// stale state.
type MutationLock interface {
	Acquire(owner string) (bool, error)
	Release(owner string) error
}

type LedgerCache interface {
	StoreLedger(cells []models.SeatCell) error
}

type KafkaPublisher interface {
	PublishBookingRecorded(ev models.BookingEvent) error
	PublishPaymentToggled(ev models.BookingEvent) error
	PublishBookingsNormalized(ev models.NormalizeEvent) error
}

type BookingService struct {
	DB       DBLayer
	Lock     MutationLock
	Cache    LedgerCache
	Kafka    KafkaPublisher
	Capacity int
}

func NewBookingService(db DBLayer, lock MutationLock, cache LedgerCache, kafka KafkaPublisher, capacity int) *BookingService {
	return &BookingService{DB: db, Lock: lock, Cache: cache, Kafka: kafka, Capacity: capacity}
}

// acquire claims the store-wide mutation lock and returns the release func.
func (s *BookingService) acquire() (func(), error) {
	if s.Lock == nil {
		return func() {}, nil
	}
	owner := uuid.NewString()
	ok, err := s.Lock.Acquire(owner)
	if err != nil {
		return nil, fmt.Errorf("mutation lock error: %w", err)
	}
	if !ok {
		return nil, errors.New("booking store is busy, try again")
	}
	return func() { _ = s.Lock.Release(owner) }, nil
}

// RecordBooking appends count unconfirmed seats to the caller's entry for
// the (movieIdx, timingIdx) pair, creating the entry when absent. Unpaid
// bookings never touch the seat ledger, so no reconcile runs here.
func (s *BookingService) RecordBooking(email string, movieIdx, timingIdx, count int) (*models.Booking, error) {
	if count <= 0 {
		count = 1
	}

	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	// Validate against the catalog only while holding the lock: a movie
	// delete renumbers indices, so a reference checked outside the critical
	// section can go stale before the upsert lands.
	movies, err := s.DB.GetMovies()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if movieIdx < 0 || movieIdx >= len(movies) {
		return nil, models.ErrInvalidReference
	}
	if timingIdx < 0 || timingIdx >= len(movies[movieIdx].Timings) {
		return nil, models.ErrInvalidReference
	}

	booking, err := s.DB.UpsertBooking(email, movieIdx, timingIdx, count, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to record booking: %w", err)
	}

	if s.Kafka != nil {
		ev := models.BookingEvent{
			EventID:    uuid.NewString(),
			UserEmail:  email,
			MovieIdx:   movieIdx,
			TimingIdx:  timingIdx,
			Count:      booking.Count,
			Paid:       booking.Paid,
			OccurredAt: time.Now(),
		}
		if err := s.Kafka.PublishBookingRecorded(ev); err != nil {
			fmt.Printf("Kafka publish error (booking recorded): %v\n", err)
		}
	}

	return booking, nil
}

// TogglePaid flips the payment flag of the booking at entryIdx within the
// user's stable booking order, then runs the full normalize+reconcile
// pipeline before returning. Re-normalizing on every toggle is deliberate:
// it converges the store no matter what state it was left in.
func (s *BookingService) TogglePaid(email string, entryIdx int) (*models.Booking, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	bookings, err := s.DB.GetBookingsByUser(email)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	if entryIdx < 0 || entryIdx >= len(bookings) {
		return nil, models.ErrNotFound
	}

	target := bookings[entryIdx]
	target.Paid = !target.Paid
	if err := s.DB.UpdateBookingPaid(target.BookingID, target.Paid); err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	if err := s.Normalize(); err != nil {
		return nil, err
	}
	if err := s.Reconcile(); err != nil {
		return nil, err
	}

	if s.Kafka != nil {
		ev := models.BookingEvent{
			EventID:    uuid.NewString(),
			UserEmail:  email,
			MovieIdx:   target.MovieIdx,
			TimingIdx:  target.TimingIdx,
			Count:      target.Count,
			Paid:       target.Paid,
			OccurredAt: time.Now(),
		}
		if err := s.Kafka.PublishPaymentToggled(ev); err != nil {
			fmt.Printf("Kafka publish error (payment toggled): %v\n", err)
		}
	}

	return &target, nil
}

// FixData runs normalization and reconciliation on demand. Safe to call
// arbitrarily often: both steps are idempotent over a stable snapshot.
func (s *BookingService) FixData() error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := s.Normalize(); err != nil {
		return err
	}
	if err := s.Reconcile(); err != nil {
		return err
	}

	if s.Kafka != nil {
		ev := models.NormalizeEvent{EventID: uuid.NewString(), OccurredAt: time.Now()}
		if err := s.Kafka.PublishBookingsNormalized(ev); err != nil {
			fmt.Printf("Kafka publish error (bookings normalized): %v\n", err)
		}
	}
	return nil
}

// Normalize collapses fragmented booking rows into one row per
// (user, movie, timing) triple. Callers are expected to hold the mutation
// lock and to reconcile afterwards.
func (s *BookingService) Normalize() error {
	raw, err := s.DB.GetAllBookings()
	if err != nil {
		return fmt.Errorf("failed to load bookings: %w", err)
	}

	now := time.Now()
	merged := make(map[string][]models.Booking, len(raw))
	for email, rows := range raw {
		merged[email] = MergeUserBookings(rows, now)
	}

	if err := s.DB.ReplaceBookings(merged); err != nil {
		return fmt.Errorf("failed to store merged bookings: %w", err)
	}
	return nil
}

// Reconcile rebuilds the seat ledger from scratch out of paid bookings.
// The previous ledger contents are never consulted.
func (s *BookingService) Reconcile() error {
	movies, err := s.DB.GetMovies()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	bookings, err := s.DB.GetAllBookings()
	if err != nil {
		return fmt.Errorf("failed to load bookings: %w", err)
	}

	cells := RebuildLedger(movies, bookings, s.Capacity)
	if err := s.DB.ReplaceLedger(cells); err != nil {
		return fmt.Errorf("failed to replace ledger: %w", err)
	}

	if s.Cache != nil {
		if err := s.Cache.StoreLedger(cells); err != nil {
			fmt.Printf("Ledger cache refresh error: %v\n", err)
		}
	}
	return nil
}

// ---------------- READS ----------------

func (s *BookingService) BookingsForUser(email string) ([]models.Booking, error) {
	return s.DB.GetBookingsByUser(email)
}

func (s *BookingService) AllBookings() (map[string][]models.Booking, error) {
	return s.DB.GetAllBookings()
}

func (s *BookingService) Watchlist(email string) ([]int, error) {
	return s.DB.GetWatchlist(email)
}

func (s *BookingService) ToggleWatchlist(email string, movieIdx int) (bool, error) {
	movies, err := s.DB.GetMovies()
	if err != nil {
		return false, fmt.Errorf("failed to load catalog: %w", err)
	}
	if movieIdx < 0 || movieIdx >= len(movies) {
		return false, models.ErrInvalidReference
	}
	return s.DB.ToggleWatchlist(email, movieIdx)
}

// Stats assembles the admin dashboard summary: totals plus the most recent
// bookings across all users, newest first.
func (s *BookingService) Stats(recentLimit int) (*models.AdminStats, error) {
	grouped, err := s.DB.GetAllBookings()
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	users, err := s.DB.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	stats := &models.AdminStats{TotalUsers: users}
	var rows []models.BookingWithOwner
	for email, list := range grouped {
		for i, b := range list {
			stats.TotalBookings++
			if b.Paid {
				stats.TotalPaid++
			}
			rows = append(rows, models.BookingWithOwner{UserEmail: email, EntryIdx: i, Booking: b})
		}
	}
	stats.TotalDue = stats.TotalBookings - stats.TotalPaid

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Booking.BookedAt.After(rows[j].Booking.BookedAt)
	})
	if recentLimit > 0 && len(rows) > recentLimit {
		rows = rows[:recentLimit]
	}
	stats.Recent = rows
	return stats, nil
}

// ---------------- PURE PIPELINE STEPS ----------------

// MergeUserBookings folds one user's raw rows into at most one row per
// (movie, timing) pair: counts are summed, the earliest timestamp wins, and
// a single paid fragment upgrades the whole merged row to paid. The lenient
// any-paid rule is a policy choice carried over from the admin confirmation
// flow, not an accident. Running the merge on already-merged rows is a no-op.
func MergeUserBookings(rows []models.Booking, now time.Time) []models.Booking {
	type key struct{ movie, timing int }

	var order []key
	byKey := make(map[key]*models.Booking)

	for _, row := range rows {
		k := key{row.MovieIdx, row.TimingIdx}
		entry, ok := byKey[k]
		if !ok {
			bookedAt := row.BookedAt
			if bookedAt.IsZero() {
				bookedAt = now
			}
			merged := models.Booking{
				BookingID: row.BookingID,
				UserEmail: row.UserEmail,
				MovieIdx:  row.MovieIdx,
				TimingIdx: row.TimingIdx,
				Count:     0,
				Paid:      false,
				BookedAt:  bookedAt,
			}
			byKey[k] = &merged
			order = append(order, k)
			entry = &merged
		}
		count := row.Count
		if count == 0 {
			count = 1
		}
		entry.Count += count
		if row.Paid {
			entry.Paid = true
		}
		if !row.BookedAt.IsZero() && row.BookedAt.Before(entry.BookedAt) {
			entry.BookedAt = row.BookedAt
		}
	}

	merged := make([]models.Booking, 0, len(order))
	for _, k := range order {
		merged = append(merged, *byKey[k])
	}
	return merged
}

// RebuildLedger computes a fresh ledger for the given catalog: every cell
// starts at capacity and only paid bookings subtract from it, clamped at
// zero. Overbooking saturates silently rather than going negative or
// failing; unpaid rows and rows pointing outside the catalog contribute
// nothing.
func RebuildLedger(movies []models.Movie, bookings map[string][]models.Booking, capacity int) []models.SeatCell {
	remaining := make([][]int, len(movies))
	for i, m := range movies {
		remaining[i] = make([]int, len(m.Timings))
		for t := range m.Timings {
			remaining[i][t] = capacity
		}
	}

	for _, rows := range bookings {
		for _, b := range rows {
			if !b.Paid {
				continue
			}
			if b.MovieIdx < 0 || b.MovieIdx >= len(remaining) {
				continue
			}
			if b.TimingIdx < 0 || b.TimingIdx >= len(remaining[b.MovieIdx]) {
				continue
			}
			remaining[b.MovieIdx][b.TimingIdx] -= b.Count
			if remaining[b.MovieIdx][b.TimingIdx] < 0 {
				remaining[b.MovieIdx][b.TimingIdx] = 0
			}
		}
	}

	var cells []models.SeatCell
	for i := range remaining {
		for t, left := range remaining[i] {
			cells = append(cells, models.SeatCell{MovieIdx: i, TimingIdx: t, SeatsLeft: left})
		}
	}
	return cells
}
