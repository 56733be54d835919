package db

import (
	"context"
	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// GetMovies → catalog in position order
func (d *DB) GetMovies() ([]models.Movie, error) {
	var movies []models.Movie
	err := d.Bun.NewSelect().
		Model(&movies).
		Order("position").
		Scan(context.Background())
	return movies, err
}

// GetMovie → one catalog entry by its position
func (d *DB) GetMovie(idx int) (*models.Movie, error) {
	var movie models.Movie
	err := d.Bun.NewSelect().
		Model(&movie).
		Where("position = ?", idx).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

func (d *DB) CountMovies() (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Movie)(nil)).
		Count(context.Background())
}

// InsertMovie → append to the catalog
func (d *DB) InsertMovie(movie *models.Movie) error {
	_, err := d.Bun.NewInsert().Model(movie).Exec(context.Background())
	return err
}

// UpdateMovie → in-place edit of an existing catalog entry
func (d *DB) UpdateMovie(movie *models.Movie) error {
	_, err := d.Bun.NewUpdate().
		Model(movie).
		Column("title", "poster", "year", "rating", "genre", "language", "duration", "actors", "description", "timings").
		Where("position = ?", movie.Position).
		Exec(context.Background())
	return err
}

// DeleteMovieCascade → remove the movie at idx and keep every index-based
// reference valid. One transaction covers all four tables: the movie row
// itself, higher positions shifted down, the bookings and watchlist rows for
// idx dropped and higher indices shifted down, and the ledger row removed.
// Callers must reconcile afterwards; the ledger rows left here are stale
// until the rebuild runs.
func (d *DB) DeleteMovieCascade(idx int) error {
	return d.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Movie)(nil)).
			Where("position = ?", idx).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().
			Model((*models.Movie)(nil)).
			Set("position = position - 1").
			Where("position > ?", idx).
			Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model((*models.Booking)(nil)).
			Where("movie_idx = ?", idx).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().
			Model((*models.Booking)(nil)).
			Set("movie_idx = movie_idx - 1").
			Where("movie_idx > ?", idx).
			Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model((*models.WatchlistEntry)(nil)).
			Where("movie_idx = ?", idx).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().
			Model((*models.WatchlistEntry)(nil)).
			Set("movie_idx = movie_idx - 1").
			Where("movie_idx > ?", idx).
			Exec(ctx); err != nil {
			return err
		}

		if _, err := tx.NewDelete().
			Model((*models.SeatCell)(nil)).
			Where("movie_idx = ?", idx).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*models.SeatCell)(nil)).
			Set("movie_idx = movie_idx - 1").
			Where("movie_idx > ?", idx).
			Exec(ctx)
		return err
	})
}
