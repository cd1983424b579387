package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"swimslot/internal/apperr"
	"swimslot/internal/session"
)

type MockRepository struct{ mock.Mock }

func (m *MockRepository) Insert(ctx context.Context, b *Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepository) HasActiveBooking(ctx context.Context, sessionID, swimmerID string) (bool, error) {
	args := m.Called(ctx, sessionID, swimmerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) CompareAndSetStatus(ctx context.Context, id string, from, to Status, at time.Time) (*Booking, error) {
	args := m.Called(ctx, id, from, to, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepository) MarkCancelled(ctx context.Context, id string, meta CancelMeta) (*Booking, error) {
	args := m.Called(ctx, id, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepository) MoveToSession(ctx context.Context, id, fromSessionID, toSessionID string, at time.Time) (*Booking, error) {
	args := m.Called(ctx, id, fromSessionID, toSessionID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Booking), args.Error(1)
}

func (m *MockRepository) ListBySwimmer(ctx context.Context, swimmerID string) ([]BookingWithSession, error) {
	args := m.Called(ctx, swimmerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BookingWithSession), args.Error(1)
}

func (m *MockRepository) FindFutureSeries(ctx context.Context, q SeriesQuery) ([]SeriesEntry, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SeriesEntry), args.Error(1)
}

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) Get(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockCatalog) Create(ctx context.Context, req session.CreateRequest) (*session.Session, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockCatalog) FindAvailable(ctx context.Context, from, to time.Time, f session.Filter) ([]session.Session, error) {
	args := m.Called(ctx, from, to, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]session.Session), args.Error(1)
}

func (m *MockCatalog) ReserveSlot(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockCatalog) ReleaseSlot(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func (m *MockCatalog) ReassignInstructor(ctx context.Context, id string, from, to *string) (*session.Session, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

// passthroughTx runs fn directly; rollback behaviour is covered by the
// SQLite tests.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestLedger(repo *MockRepository, cat *MockCatalog, now time.Time) *ledger {
	l := NewLedger(repo, cat, passthroughTx{}).(*ledger)
	l.now = func() time.Time { return now }
	return l
}

func TestLedger_CreateRejectsUnknownKind(t *testing.T) {
	l := newTestLedger(new(MockRepository), new(MockCatalog), time.Now())

	_, err := l.Create(context.Background(), CreateParams{SessionID: "s1", SwimmerID: "w1", Kind: "private"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLedger_CreateDuplicateSkipsReservation(t *testing.T) {
	repo := new(MockRepository)
	cat := new(MockCatalog)
	l := newTestLedger(repo, cat, time.Now())

	repo.On("HasActiveBooking", mock.Anything, "s1", "w1").Return(true, nil)

	_, err := l.Create(context.Background(), CreateParams{SessionID: "s1", SwimmerID: "w1", ParentID: "p1", Kind: KindLesson})

	assert.ErrorIs(t, err, apperr.ErrDuplicateBooking)
	cat.AssertNotCalled(t, "ReserveSlot", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestLedger_CreateSlotFull(t *testing.T) {
	repo := new(MockRepository)
	cat := new(MockCatalog)
	l := newTestLedger(repo, cat, time.Now())

	repo.On("HasActiveBooking", mock.Anything, "s1", "w1").Return(false, nil)
	cat.On("ReserveSlot", mock.Anything, "s1").Return(nil, apperr.SlotFull("session s1 is full"))

	_, err := l.Create(context.Background(), CreateParams{SessionID: "s1", SwimmerID: "w1", ParentID: "p1", Kind: KindLesson})

	assert.ErrorIs(t, err, apperr.ErrSlotFull)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestLedger_CreateKindMismatch(t *testing.T) {
	repo := new(MockRepository)
	cat := new(MockCatalog)
	l := newTestLedger(repo, cat, time.Now())

	repo.On("HasActiveBooking", mock.Anything, "s1", "w1").Return(false, nil)
	cat.On("ReserveSlot", mock.Anything, "s1").
		Return(&session.Session{ID: "s1", SessionType: session.TypeLesson, Capacity: 2, BookingCount: 1}, nil)

	_, err := l.Create(context.Background(), CreateParams{SessionID: "s1", SwimmerID: "w1", ParentID: "p1", Kind: KindAssessment})

	assert.ErrorIs(t, err, apperr.ErrValidation)
	repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestLedger_Create(t *testing.T) {
	repo := new(MockRepository)
	cat := new(MockCatalog)
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	l := newTestLedger(repo, cat, now)
	notes := "bring goggles"

	repo.On("HasActiveBooking", mock.Anything, "s1", "w1").Return(false, nil)
	cat.On("ReserveSlot", mock.Anything, "s1").
		Return(&session.Session{ID: "s1", SessionType: session.TypeLesson, Capacity: 2, BookingCount: 1}, nil)
	repo.On("Insert", mock.Anything, mock.MatchedBy(func(b *Booking) bool {
		return b.SessionID == "s1" && b.SwimmerID == "w1" && b.Status == StatusConfirmed && b.ID != ""
	})).Return(nil)

	b, err := l.Create(context.Background(), CreateParams{SessionID: "s1", SwimmerID: "w1", ParentID: "p1", Kind: KindLesson, Notes: &notes})

	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, KindLesson, b.BookingType)
	assert.Equal(t, now, b.CreatedAt)
	assert.Equal(t, &notes, b.Notes)
	repo.AssertExpectations(t)
	cat.AssertExpectations(t)
}

func TestLedger_SetStatusRefusesCancelled(t *testing.T) {
	repo := new(MockRepository)
	l := newTestLedger(repo, new(MockCatalog), time.Now())

	_, err := l.SetStatus(context.Background(), "b1", StatusCancelled)

	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestLedger_SetStatusFromTerminal(t *testing.T) {
	repo := new(MockRepository)
	l := newTestLedger(repo, new(MockCatalog), time.Now())

	repo.On("GetByID", mock.Anything, "b1").Return(&Booking{ID: "b1", Status: StatusCancelled}, nil)

	_, err := l.SetStatus(context.Background(), "b1", StatusCompleted)

	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	repo.AssertNotCalled(t, "CompareAndSetStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLedger_SetStatusBeforeSessionStart(t *testing.T) {
	repo := new(MockRepository)
	cat := new(MockCatalog)
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	l := newTestLedger(repo, cat, now)

	repo.On("GetByID", mock.Anything, "b1").Return(&Booking{ID: "b1", SessionID: "s1", Status: StatusConfirmed}, nil)
	cat.On("Get", mock.Anything, "s1").Return(&session.Session{ID: "s1", StartTime: now.Add(time.Minute)}, nil)

	_, err := l.SetStatus(context.Background(), "b1", StatusNoShow)

	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestLedger_SetStatusAfterSessionStart(t *testing.T) {
	repo := new(MockRepository)
	cat := new(MockCatalog)
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	l := newTestLedger(repo, cat, now)

	repo.On("GetByID", mock.Anything, "b1").Return(&Booking{ID: "b1", SessionID: "s1", Status: StatusConfirmed}, nil)
	cat.On("Get", mock.Anything, "s1").Return(&session.Session{ID: "s1", StartTime: now.Add(-time.Hour)}, nil)
	repo.On("CompareAndSetStatus", mock.Anything, "b1", StatusConfirmed, StatusCompleted, now).
		Return(&Booking{ID: "b1", Status: StatusCompleted}, nil)

	b, err := l.SetStatus(context.Background(), "b1", StatusCompleted)

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, b.Status)
}

func TestLedger_MarkCancelledStampsTime(t *testing.T) {
	repo := new(MockRepository)
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	l := newTestLedger(repo, new(MockCatalog), now)

	meta := CancelMeta{SessionID: "s1", Reason: "sick", Source: CancelSourceParent, By: "p1"}
	stamped := meta
	stamped.At = now
	repo.On("MarkCancelled", mock.Anything, "b1", stamped).Return(&Booking{ID: "b1", Status: StatusCancelled}, nil)

	b, err := l.MarkCancelled(context.Background(), "b1", meta)

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, b.Status)
	repo.AssertExpectations(t)
}

func TestLedger_MarkCancelledNeedsSession(t *testing.T) {
	repo := new(MockRepository)
	l := newTestLedger(repo, new(MockCatalog), time.Now())

	_, err := l.MarkCancelled(context.Background(), "b1", CancelMeta{Reason: "sick", Source: CancelSourceParent})

	assert.ErrorIs(t, err, apperr.ErrValidation)
	repo.AssertNotCalled(t, "MarkCancelled", mock.Anything, mock.Anything, mock.Anything)
}
