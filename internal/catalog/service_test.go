package catalog_test

import (
	"database/sql"
	"ms-booking/internal/catalog"
	"ms-booking/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) GetMovies() ([]models.Movie, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Movie), args.Error(1)
}

func (m *MockDBLayer) GetMovie(idx int) (*models.Movie, error) {
	args := m.Called(idx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Movie), args.Error(1)
}

func (m *MockDBLayer) CountMovies() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}

func (m *MockDBLayer) InsertMovie(movie *models.Movie) error {
	args := m.Called(movie)
	return args.Error(0)
}

func (m *MockDBLayer) UpdateMovie(movie *models.Movie) error {
	args := m.Called(movie)
	return args.Error(0)
}

func (m *MockDBLayer) DeleteMovieCascade(idx int) error {
	args := m.Called(idx)
	return args.Error(0)
}

type MockLedgerSource struct {
	mock.Mock
}

func (m *MockLedgerSource) GetLedger() ([]models.SeatCell, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SeatCell), args.Error(1)
}

func (m *MockLedgerSource) GetLedgerForMovie(movieIdx int) ([]models.SeatCell, error) {
	args := m.Called(movieIdx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SeatCell), args.Error(1)
}

type MockLedgerCache struct {
	mock.Mock
}

func (m *MockLedgerCache) FetchLedger() ([]models.SeatCell, bool, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]models.SeatCell), args.Bool(1), args.Error(2)
}

type MockPipeline struct {
	mock.Mock
}

func (m *MockPipeline) Normalize() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPipeline) Reconcile() error {
	args := m.Called()
	return args.Error(0)
}

var defaultTimings = []string{"9:00 AM", "12:00 PM", "3:00 PM", "6:00 PM", "9:00 PM"}

func newService(db *MockDBLayer, ledger *MockLedgerSource, pipeline *MockPipeline) *catalog.CatalogService {
	return catalog.NewCatalogService(db, ledger, pipeline, nil, nil, nil, 60, defaultTimings)
}

func TestListMovies_AttachesAvailability(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLedger := new(MockLedgerSource)

	mockDB.On("GetMovies").Return([]models.Movie{
		{Position: 0, Title: "Barbie", Timings: []string{"10:00 AM", "7:00 PM"}},
		{Position: 1, Title: "Wonka", Timings: []string{"4:00 PM"}},
	}, nil)
	mockLedger.On("GetLedger").Return([]models.SeatCell{
		{MovieIdx: 0, TimingIdx: 0, SeatsLeft: 12},
		{MovieIdx: 0, TimingIdx: 1, SeatsLeft: 0},
	}, nil)

	svc := newService(mockDB, mockLedger, new(MockPipeline))

	movies, err := svc.ListMovies()
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, []int{12, 0}, movies[0].SeatsLeft)
	assert.Equal(t, []int{60}, movies[1].SeatsLeft, "missing ledger rows read as full capacity")
}

func TestListMovies_ServesFromCachedLedger(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLedger := new(MockLedgerSource)
	mockCache := new(MockLedgerCache)

	mockDB.On("GetMovies").Return([]models.Movie{
		{Position: 0, Title: "Barbie", Timings: []string{"10:00 AM"}},
	}, nil)
	mockCache.On("FetchLedger").Return([]models.SeatCell{
		{MovieIdx: 0, TimingIdx: 0, SeatsLeft: 7},
	}, true, nil)

	svc := catalog.NewCatalogService(mockDB, mockLedger, new(MockPipeline), nil, mockCache, nil, 60, defaultTimings)

	movies, err := svc.ListMovies()
	require.NoError(t, err)
	assert.Equal(t, []int{7}, movies[0].SeatsLeft)
	mockLedger.AssertNotCalled(t, "GetLedger")
}

func TestListMovies_CacheMissFallsBackToDatabase(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLedger := new(MockLedgerSource)
	mockCache := new(MockLedgerCache)

	mockDB.On("GetMovies").Return([]models.Movie{
		{Position: 0, Title: "Barbie", Timings: []string{"10:00 AM"}},
	}, nil)
	mockCache.On("FetchLedger").Return(nil, false, nil)
	mockLedger.On("GetLedger").Return([]models.SeatCell{
		{MovieIdx: 0, TimingIdx: 0, SeatsLeft: 42},
	}, nil)

	svc := catalog.NewCatalogService(mockDB, mockLedger, new(MockPipeline), nil, mockCache, nil, 60, defaultTimings)

	movies, err := svc.ListMovies()
	require.NoError(t, err)
	assert.Equal(t, []int{42}, movies[0].SeatsLeft)
	mockLedger.AssertCalled(t, "GetLedger")
}

func TestGetMovie_FiltersCachedLedger(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLedger := new(MockLedgerSource)
	mockCache := new(MockLedgerCache)

	mockDB.On("GetMovie", 1).Return(&models.Movie{
		Position: 1, Title: "Wonka", Timings: []string{"4:00 PM"},
	}, nil)
	mockCache.On("FetchLedger").Return([]models.SeatCell{
		{MovieIdx: 0, TimingIdx: 0, SeatsLeft: 12},
		{MovieIdx: 1, TimingIdx: 0, SeatsLeft: 3},
	}, true, nil)

	svc := catalog.NewCatalogService(mockDB, mockLedger, new(MockPipeline), nil, mockCache, nil, 60, defaultTimings)

	movie, err := svc.GetMovie(1)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, movie.SeatsLeft)
	mockLedger.AssertNotCalled(t, "GetLedgerForMovie", mock.Anything)
}

func TestGetMovie_NotFound(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetMovie", 9).Return(nil, sql.ErrNoRows)

	svc := newService(mockDB, new(MockLedgerSource), new(MockPipeline))

	_, err := svc.GetMovie(9)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddMovie_AppendsWithDefaults(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockPipeline := new(MockPipeline)

	mockDB.On("CountMovies").Return(4, nil)
	mockDB.On("InsertMovie", mock.MatchedBy(func(m *models.Movie) bool {
		return m.Position == 4 && m.Title == "Dune" && len(m.Timings) == len(defaultTimings)
	})).Return(nil)
	mockPipeline.On("Reconcile").Return(nil)

	svc := newService(mockDB, new(MockLedgerSource), mockPipeline)

	movie, err := svc.AddMovie(models.MovieRequest{Title: "Dune"})
	require.NoError(t, err)
	assert.Equal(t, 4, movie.Position)
	assert.Equal(t, defaultTimings, movie.Timings)
	mockPipeline.AssertCalled(t, "Reconcile")
}

func TestAddMovie_KeepsCallerTimings(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockPipeline := new(MockPipeline)

	mockDB.On("CountMovies").Return(0, nil)
	mockDB.On("InsertMovie", mock.Anything).Return(nil)
	mockPipeline.On("Reconcile").Return(nil)

	svc := newService(mockDB, new(MockLedgerSource), mockPipeline)

	movie, err := svc.AddMovie(models.MovieRequest{Title: "Dune", Timings: []string{"11:00 PM"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"11:00 PM"}, movie.Timings)
}

func TestEditMovie_PreservesTimingsWhenOmitted(t *testing.T) {
	mockDB := new(MockDBLayer)

	existing := &models.Movie{Position: 1, Title: "Old", Timings: []string{"10:00 AM", "7:00 PM"}}
	mockDB.On("GetMovie", 1).Return(existing, nil)
	mockDB.On("UpdateMovie", mock.MatchedBy(func(m *models.Movie) bool {
		return m.Title == "New" && len(m.Timings) == 2
	})).Return(nil)

	svc := newService(mockDB, new(MockLedgerSource), new(MockPipeline))

	movie, err := svc.EditMovie(1, models.MovieRequest{Title: "New"})
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 AM", "7:00 PM"}, movie.Timings,
		"booking references ride on timing count and order")
}

func TestEditMovie_UnknownPosition(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("GetMovie", 7).Return(nil, sql.ErrNoRows)

	svc := newService(mockDB, new(MockLedgerSource), new(MockPipeline))

	_, err := svc.EditMovie(7, models.MovieRequest{Title: "X"})
	assert.ErrorIs(t, err, models.ErrInvalidReference)
}

func TestEditMovie_ReshapedTimingsReconcile(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockPipeline := new(MockPipeline)

	existing := &models.Movie{Position: 1, Title: "Wonka", Timings: []string{"10:00 AM", "7:00 PM"}}
	mockDB.On("GetMovie", 1).Return(existing, nil)
	mockDB.On("UpdateMovie", mock.Anything).Return(nil)
	mockPipeline.On("Reconcile").Return(nil)

	svc := newService(mockDB, new(MockLedgerSource), mockPipeline)

	movie, err := svc.EditMovie(1, models.MovieRequest{Title: "Wonka", Timings: []string{"1:00 PM"}})
	require.NoError(t, err)
	assert.Len(t, movie.Timings, 1)
	mockPipeline.AssertCalled(t, "Reconcile")
}

func TestEditMovie_RelabeledTimingsSkipReconcile(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockPipeline := new(MockPipeline)

	existing := &models.Movie{Position: 1, Title: "Wonka", Timings: []string{"10:00 AM", "7:00 PM"}}
	mockDB.On("GetMovie", 1).Return(existing, nil)
	mockDB.On("UpdateMovie", mock.Anything).Return(nil)

	svc := newService(mockDB, new(MockLedgerSource), mockPipeline)

	_, err := svc.EditMovie(1, models.MovieRequest{Title: "Wonka", Timings: []string{"11:00 AM", "8:00 PM"}})
	require.NoError(t, err)
	mockPipeline.AssertNotCalled(t, "Reconcile")
}

// shrinkOnLockDB reports a smaller catalog once the mutation lock is held,
// standing in for a delete that won the lock first.
type shrinkOnLockDB struct {
	MockDBLayer
	locked bool
}

func (d *shrinkOnLockDB) CountMovies() (int, error) {
	if d.locked {
		return 1, nil
	}
	return 5, nil
}

type flagLock struct{ db *shrinkOnLockDB }

func (l *flagLock) Acquire(owner string) (bool, error) {
	l.db.locked = true
	return true, nil
}

func (l *flagLock) Release(owner string) error { return nil }

func TestDeleteMovie_RangeCheckedUnderLock(t *testing.T) {
	db := new(shrinkOnLockDB)
	svc := catalog.NewCatalogService(db, new(MockLedgerSource), new(MockPipeline), &flagLock{db: db}, nil, nil, 60, defaultTimings)

	err := svc.DeleteMovie(3)
	assert.ErrorIs(t, err, models.ErrInvalidReference,
		"index 3 is valid against the pre-lock catalog but not the current one")
	db.AssertNotCalled(t, "DeleteMovieCascade", mock.Anything)
}

func TestDeleteMovie_OutOfRange(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockDB.On("CountMovies").Return(3, nil)

	svc := newService(mockDB, new(MockLedgerSource), new(MockPipeline))

	assert.ErrorIs(t, svc.DeleteMovie(3), models.ErrInvalidReference)
	assert.ErrorIs(t, svc.DeleteMovie(-1), models.ErrInvalidReference)
	mockDB.AssertNotCalled(t, "DeleteMovieCascade", mock.Anything)
}

func TestDeleteMovie_CascadesThenReconciles(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockPipeline := new(MockPipeline)

	mockDB.On("CountMovies").Return(3, nil)
	mockDB.On("GetMovie", 1).Return(&models.Movie{Position: 1, Title: "Wonka"}, nil)
	mockDB.On("DeleteMovieCascade", 1).Return(nil)
	mockPipeline.On("Normalize").Return(nil)
	mockPipeline.On("Reconcile").Return(nil)

	svc := newService(mockDB, new(MockLedgerSource), mockPipeline)

	require.NoError(t, svc.DeleteMovie(1))
	mockDB.AssertCalled(t, "DeleteMovieCascade", 1)
	mockPipeline.AssertCalled(t, "Normalize")
	mockPipeline.AssertCalled(t, "Reconcile")
}
