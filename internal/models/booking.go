package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BookingRequest struct {
	MovieIdx  int `json:"movie_idx"`
	TimingIdx int `json:"timing_idx"`
	Count     int `json:"count,omitempty"`
}

// Booking is one user's seat reservation for one (movie, timing) pair.
// After normalization at most one row exists per (user, movie, timing)
// triple. An unpaid booking never consumes seats.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	BookingID string    `bun:"booking_id,pk" json:"booking_id"`
	UserEmail string    `bun:"user_email,notnull" json:"user_email"`
	MovieIdx  int       `bun:"movie_idx,notnull" json:"movie_idx"`
	TimingIdx int       `bun:"timing_idx,notnull" json:"timing_idx"`
	Count     int       `bun:"seat_count,notnull" json:"count"`
	Paid      bool      `bun:"paid,notnull" json:"paid"`
	BookedAt  time.Time `bun:"booked_at,notnull" json:"booked_at"`
}

// BookingWithOwner is the admin dashboard row: a booking plus the positional
// index it occupies in its owner's list, which is what the paid/due toggle
// endpoint addresses.
type BookingWithOwner struct {
	UserEmail string  `json:"user_email"`
	EntryIdx  int     `json:"entry_idx"`
	Booking   Booking `json:"booking"`
}

// AdminStats summarizes system activity for the admin dashboard.
type AdminStats struct {
	TotalUsers    int                `json:"total_users"`
	TotalBookings int                `json:"total_bookings"`
	TotalPaid     int                `json:"total_paid"`
	TotalDue      int                `json:"total_due"`
	Recent        []BookingWithOwner `json:"recent"`
}
