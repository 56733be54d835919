package models

import "time"

// BookingEvent is the payload streamed to Kafka whenever a booking is
// recorded or its payment flag changes.
type BookingEvent struct {
	EventID    string    `json:"event_id"`
	UserEmail  string    `json:"user_email"`
	MovieIdx   int       `json:"movie_idx"`
	TimingIdx  int       `json:"timing_idx"`
	Count      int       `json:"count"`
	Paid       bool      `json:"paid"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NormalizeEvent is streamed after a normalize+reconcile pass converges
// the store, e.g. the admin fix-data action.
type NormalizeEvent struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MovieEvent is streamed when the catalog changes shape.
type MovieEvent struct {
	EventID    string    `json:"event_id"`
	MovieIdx   int       `json:"movie_idx"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
}
