package models

import (
	"github.com/uptrace/bun"
)

// SeatCell is one (movie, timing) entry of the seat ledger holding the
// remaining seat count. The ledger is derived state: it is rebuilt wholesale
// from paid bookings on every reconcile and must never be patched in place.
type SeatCell struct {
	bun.BaseModel `bun:"table:seat_ledger"`

	ID        int64 `bun:"id,pk,autoincrement" json:"-"`
	MovieIdx  int   `bun:"movie_idx,notnull" json:"movie_idx"`
	TimingIdx int   `bun:"timing_idx,notnull" json:"timing_idx"`
	SeatsLeft int   `bun:"seats_left,notnull" json:"seats_left"`
}
