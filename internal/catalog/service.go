package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"ms-booking/internal/models"
	"time"

	"github.com/google/uuid"
)

type DBLayer interface {
	GetMovies() ([]models.Movie, error)
	GetMovie(idx int) (*models.Movie, error)
	CountMovies() (int, error)
	InsertMovie(movie *models.Movie) error
	UpdateMovie(movie *models.Movie) error
	DeleteMovieCascade(idx int) error
}

// LedgerSource supplies remaining-seat rows for the browse endpoints.
type LedgerSource interface {
	GetLedger() ([]models.SeatCell, error)
	GetLedgerForMovie(movieIdx int) ([]models.SeatCell, error)
}

// LedgerCache holds the snapshot written on every reconcile. Browse reads
// try it first and fall back to LedgerSource on a miss or read error.
type LedgerCache interface {
	FetchLedger() ([]models.SeatCell, bool, error)
}

// Pipeline re-derives booking state after the catalog changes shape.
type Pipeline interface {
	Normalize() error
	Reconcile() error
}

type MutationLock interface {
	Acquire(owner string) (bool, error)
	Release(owner string) error
}

type KafkaPublisher interface {
	PublishMovieDeleted(ev models.MovieEvent) error
}

type CatalogService struct {
	DB             DBLayer
	Ledger         LedgerSource
	Pipeline       Pipeline
	Lock           MutationLock
	Cache          LedgerCache
	Kafka          KafkaPublisher
	Capacity       int
	DefaultTimings []string
}

func NewCatalogService(db DBLayer, ledger LedgerSource, pipeline Pipeline, lock MutationLock, cache LedgerCache, kafka KafkaPublisher, capacity int, defaultTimings []string) *CatalogService {
	return &CatalogService{
		DB:             db,
		Ledger:         ledger,
		Pipeline:       pipeline,
		Lock:           lock,
		Cache:          cache,
		Kafka:          kafka,
		Capacity:       capacity,
		DefaultTimings: defaultTimings,
	}
}

func (s *CatalogService) acquire() (func(), error) {
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

// cachedLedger returns the cached snapshot when one is available. A read
// error is treated as a miss so browse traffic never fails on the cache.
func (s *CatalogService) cachedLedger() ([]models.SeatCell, bool) {
	if s.Cache == nil {
		return nil, false
	}
	cells, ok, err := s.Cache.FetchLedger()
	if err != nil {
		fmt.Printf("Ledger cache read error: %v\n", err)
		return nil, false
	}
	return cells, ok
}

// ListMovies returns the catalog with per-showtime availability attached.
// A movie whose ledger row is missing (freshly added, reconcile pending)
// shows full capacity.
func (s *CatalogService) ListMovies() ([]models.MovieWithSeats, error) {
	movies, err := s.DB.GetMovies()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	cells, ok := s.cachedLedger()
	if !ok {
		cells, err = s.Ledger.GetLedger()
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger: %w", err)
		}
	}

	byMovie := make(map[int]map[int]int)
	for _, c := range cells {
		if byMovie[c.MovieIdx] == nil {
			byMovie[c.MovieIdx] = make(map[int]int)
		}
		byMovie[c.MovieIdx][c.TimingIdx] = c.SeatsLeft
	}

	result := make([]models.MovieWithSeats, len(movies))
	for i, m := range movies {
		seats := make([]int, len(m.Timings))
		for t := range m.Timings {
			if left, ok := byMovie[m.Position][t]; ok {
				seats[t] = left
			} else {
				seats[t] = s.Capacity
			}
		}
		result[i] = models.MovieWithSeats{Movie: m, SeatsLeft: seats}
	}
	return result, nil
}

// GetMovie returns one catalog entry with availability.
func (s *CatalogService) GetMovie(idx int) (*models.MovieWithSeats, error) {
	movie, err := s.DB.GetMovie(idx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load movie: %w", err)
	}

	var cells []models.SeatCell
	if cached, ok := s.cachedLedger(); ok {
		for _, c := range cached {
			if c.MovieIdx == idx {
				cells = append(cells, c)
			}
		}
	} else {
		cells, err = s.Ledger.GetLedgerForMovie(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger: %w", err)
		}
	}

	seats := make([]int, len(movie.Timings))
	for t := range movie.Timings {
		seats[t] = s.Capacity
	}
	for _, c := range cells {
		if c.TimingIdx >= 0 && c.TimingIdx < len(seats) {
			seats[c.TimingIdx] = c.SeatsLeft
		}
	}
	return &models.MovieWithSeats{Movie: *movie, SeatsLeft: seats}, nil
}

// AddMovie appends to the catalog and reseeds the ledger so the new rows
// start at full capacity. Existing bookings are untouched.
func (s *CatalogService) AddMovie(req models.MovieRequest) (*models.Movie, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	count, err := s.DB.CountMovies()
	if err != nil {
		return nil, fmt.Errorf("failed to count movies: %w", err)
	}

	timings := req.Timings
	if len(timings) == 0 {
		timings = append([]string(nil), s.DefaultTimings...)
	}

	movie := &models.Movie{
		Position: count,
		Title:    req.Title,
		Poster:   req.Poster,
		Year:     req.Year,
		Rating:   req.Rating,
		Genre:    req.Genre,
		Language: req.Language,
		Duration: req.Duration,
		Actors:   req.Actors,
		Desc:     req.Desc,
		Timings:  timings,
	}
	if err := s.DB.InsertMovie(movie); err != nil {
		return nil, fmt.Errorf("failed to insert movie: %w", err)
	}

	if err := s.Pipeline.Reconcile(); err != nil {
		return nil, err
	}
	return movie, nil
}

// EditMovie updates catalog fields in place. The timing list is only
// replaced when the caller supplies one, and changing how many showtimes a
// movie has reshapes the ledger, so that case reconciles before returning.
func (s *CatalogService) EditMovie(idx int, req models.MovieRequest) (*models.Movie, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	movie, err := s.DB.GetMovie(idx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrInvalidReference
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load movie: %w", err)
	}

	movie.Title = req.Title
	movie.Poster = req.Poster
	movie.Year = req.Year
	movie.Rating = req.Rating
	movie.Genre = req.Genre
	movie.Language = req.Language
	movie.Duration = req.Duration
	movie.Actors = req.Actors
	movie.Desc = req.Desc

	reshaped := false
	if len(req.Timings) > 0 {
		reshaped = len(req.Timings) != len(movie.Timings)
		movie.Timings = req.Timings
	}

	if err := s.DB.UpdateMovie(movie); err != nil {
		return nil, fmt.Errorf("failed to update movie: %w", err)
	}

	if reshaped {
		if err := s.Pipeline.Reconcile(); err != nil {
			return nil, err
		}
	}
	return movie, nil
}

// DeleteMovie removes the movie at idx and renumbers every index-based
// reference (bookings, watchlists, ledger) in one transaction, then runs
// the pipeline so the ledger matches the shrunk catalog.
func (s *CatalogService) DeleteMovie(idx int) error {
	release, err := s.acquire()
	if err != nil {
		return err
	}
	defer release()

	// Range-check under the lock: another delete that slipped in first
	// would have renumbered everything above it.
	count, err := s.DB.CountMovies()
	if err != nil {
		return fmt.Errorf("failed to count movies: %w", err)
	}
	if idx < 0 || idx >= count {
		return models.ErrInvalidReference
	}

	movie, err := s.DB.GetMovie(idx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to load movie: %w", err)
	}

	if err := s.DB.DeleteMovieCascade(idx); err != nil {
		return fmt.Errorf("failed to delete movie: %w", err)
	}

	if err := s.Pipeline.Normalize(); err != nil {
		return err
	}
	if err := s.Pipeline.Reconcile(); err != nil {
		return err
	}

	if s.Kafka != nil && movie != nil {
		ev := models.MovieEvent{
			EventID:    uuid.NewString(),
			MovieIdx:   idx,
			Title:      movie.Title,
			OccurredAt: time.Now(),
		}
		if err := s.Kafka.PublishMovieDeleted(ev); err != nil {
			fmt.Printf("Kafka publish error (movie deleted): %v\n", err)
		}
	}
	return nil
}
