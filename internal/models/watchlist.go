package models

import (
	"github.com/uptrace/bun"
)

// WatchlistEntry is a (user, movie index) membership row. Entries are
// independent of bookings but are renumbered in lockstep with them when a
// movie is deleted.
type WatchlistEntry struct {
	bun.BaseModel `bun:"table:watchlists"`

	ID        int64  `bun:"id,pk,autoincrement" json:"-"`
	UserEmail string `bun:"user_email,notnull" json:"user_email"`
	MovieIdx  int    `bun:"movie_idx,notnull" json:"movie_idx"`
}
