package models

import (
	"github.com/uptrace/bun"
)

// Movie is one entry of the ordered catalog. Its public identity is
// Position: the index of the movie in catalog order. Positions are
// renumbered when a movie is deleted so references stay dense.
type Movie struct {
	bun.BaseModel `bun:"table:movies"`

	ID       int64    `bun:"id,pk,autoincrement" json:"-"`
	Position int      `bun:"position,notnull" json:"position"`
	Title    string   `bun:"title,notnull" json:"title"`
	Poster   string   `bun:"poster" json:"poster"`
	Year     int      `bun:"year" json:"year"`
	Rating   float64  `bun:"rating" json:"rating"`
	Genre    string   `bun:"genre" json:"genre"`
	Language string   `bun:"language" json:"language"`
	Duration int      `bun:"duration" json:"duration"`
	Actors   []string `bun:"actors" json:"actors"`
	Desc     string   `bun:"description" json:"desc"`
	// Timings is the ordered list of showtime labels. A showtime has no
	// identity of its own, only its index within this list.
	Timings []string `bun:"timings" json:"timings"`
}

type MovieRequest struct {
	Title    string   `json:"title"`
	Poster   string   `json:"poster"`
	Year     int      `json:"year"`
	Rating   float64  `json:"rating"`
	Genre    string   `json:"genre"`
	Language string   `json:"language"`
	Duration int      `json:"duration"`
	Actors   []string `json:"actors"`
	Desc     string   `json:"desc"`
	Timings  []string `json:"timings,omitempty"`
}

// MovieWithSeats pairs a catalog entry with its remaining-seat row so the
// browse endpoints can render availability per showtime.
type MovieWithSeats struct {
	Movie     Movie `json:"movie"`
	SeatsLeft []int `json:"seats_left"`
}
