package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"swimslot/internal/apperr"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, s *Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) FindAvailable(ctx context.Context, from, to time.Time, f Filter) ([]Session, error) {
	args := m.Called(ctx, from, to, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Session), args.Error(1)
}

func (m *MockRepository) IncrementBookingCount(ctx context.Context, id string, at time.Time) (*Session, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) DecrementBookingCount(ctx context.Context, id string, at time.Time) (*Session, error) {
	args := m.Called(ctx, id, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) SetInstructor(ctx context.Context, id string, from, to *string, at time.Time) (*Session, error) {
	args := m.Called(ctx, id, from, to, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func newTestCatalog(repo Repository) *catalog {
	c := NewCatalog(repo).(*catalog)
	c.retryBackoff = time.Millisecond
	return c
}

func TestCatalog_FindAvailableRetriesOnce(t *testing.T) {
	repo := new(MockRepository)
	c := newTestCatalog(repo)

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)
	want := []Session{{ID: "s1"}}

	repo.On("FindAvailable", mock.Anything, from, to, Filter{}).
		Return(nil, apperr.Unavailable("session.find_available", context.DeadlineExceeded)).Once()
	repo.On("FindAvailable", mock.Anything, from, to, Filter{}).Return(want, nil).Once()

	got, err := c.FindAvailable(context.Background(), from, to, Filter{})

	require.NoError(t, err)
	assert.Equal(t, want, got)
	repo.AssertNumberOfCalls(t, "FindAvailable", 2)
}

func TestCatalog_FindAvailableGivesUpAfterRetry(t *testing.T) {
	repo := new(MockRepository)
	c := newTestCatalog(repo)

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	repo.On("FindAvailable", mock.Anything, from, to, Filter{}).
		Return(nil, apperr.Unavailable("session.find_available", errors.New("connection refused")))

	_, err := c.FindAvailable(context.Background(), from, to, Filter{})

	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	repo.AssertNumberOfCalls(t, "FindAvailable", 2)
}

func TestCatalog_FindAvailableDoesNotRetryBusinessErrors(t *testing.T) {
	repo := new(MockRepository)
	c := newTestCatalog(repo)

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	f := Filter{SessionType: TypeLesson}

	repo.On("FindAvailable", mock.Anything, from, to, f).Return(nil, apperr.Validation("bad"))

	_, err := c.FindAvailable(context.Background(), from, to, f)

	assert.ErrorIs(t, err, apperr.ErrValidation)
	repo.AssertNumberOfCalls(t, "FindAvailable", 1)
}

func TestCatalog_FindAvailableValidatesRange(t *testing.T) {
	repo := new(MockRepository)
	c := newTestCatalog(repo)

	now := time.Now()

	_, err := c.FindAvailable(context.Background(), now, now, Filter{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = c.FindAvailable(context.Background(), now, now.Add(time.Hour), Filter{SessionType: "party"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	repo.AssertNotCalled(t, "FindAvailable", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalog_ReserveSlotPassesErrorsThrough(t *testing.T) {
	repo := new(MockRepository)
	c := newTestCatalog(repo)

	repo.On("IncrementBookingCount", mock.Anything, "full", mock.AnythingOfType("time.Time")).
		Return(nil, apperr.SlotFull("session full is full"))
	repo.On("IncrementBookingCount", mock.Anything, "open", mock.AnythingOfType("time.Time")).
		Return(&Session{ID: "open", Capacity: 2, BookingCount: 1}, nil)

	_, err := c.ReserveSlot(context.Background(), "full")
	assert.ErrorIs(t, err, apperr.ErrSlotFull)

	s, err := c.ReserveSlot(context.Background(), "open")
	require.NoError(t, err)
	assert.Equal(t, 1, s.BookingCount)
}

func TestCatalog_CreateValidates(t *testing.T) {
	repo := new(MockRepository)
	c := newTestCatalog(repo)

	start := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"zero capacity", CreateRequest{StartTime: start, EndTime: start.Add(time.Hour), SessionType: TypeLesson}},
		{"end before start", CreateRequest{StartTime: start, EndTime: start, Capacity: 1, SessionType: TypeLesson}},
		{"unknown type", CreateRequest{StartTime: start, EndTime: start.Add(time.Hour), Capacity: 1, SessionType: "party"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalog_Create(t *testing.T) {
	repo := new(MockRepository)
	c := newTestCatalog(repo)

	start := time.Date(2026, 6, 1, 16, 0, 0, 0, time.FixedZone("PDT", -7*3600))
	repo.On("Create", mock.Anything, mock.AnythingOfType("*session.Session")).Return(nil)

	s, err := c.Create(context.Background(), CreateRequest{
		StartTime:   start,
		EndTime:     start.Add(30 * time.Minute),
		Location:    "Main Pool",
		Capacity:    3,
		SessionType: TypeLesson,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, time.UTC, s.StartTime.Location())
	assert.True(t, s.StartTime.Equal(start))
	assert.Zero(t, s.BookingCount)
	repo.AssertExpectations(t)
}

func TestSessionHelpers(t *testing.T) {
	instructor := "i-1"
	other := "i-2"
	now := time.Now()

	s := Session{Capacity: 2, BookingCount: 2, StartTime: now, InstructorID: &instructor}

	assert.True(t, s.IsFull())
	assert.Zero(t, s.Available())
	assert.True(t, s.HasStarted(now))
	assert.False(t, s.HasStarted(now.Add(-time.Second)))
	assert.True(t, s.InstructorIs(&instructor))
	assert.False(t, s.InstructorIs(&other))
	assert.False(t, s.InstructorIs(nil))

	tbd := Session{}
	assert.True(t, tbd.InstructorIs(nil))
}
