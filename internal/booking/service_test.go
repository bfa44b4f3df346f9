package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	getUserByID        func(ctx context.Context, id int64) (*User, error)
	getProviderByID    func(ctx context.Context, id int64) (*User, error)
	getAppointmentByID func(ctx context.Context, id int64) (*Appointment, error)
	hasConflicting     func(ctx context.Context, providerID int64, date time.Time) (bool, error)
	createAppointment  func(ctx context.Context, requesterID, providerID int64, date time.Time) (*Appointment, error)
	cancelAppointment  func(ctx context.Context, id int64, at time.Time) (*Appointment, error)
	listByRequester    func(ctx context.Context, requesterID int64, limit, offset int) ([]Appointment, error)
	listProviderDay    func(ctx context.Context, providerID int64, from, to time.Time) ([]Appointment, error)
}

func (f *fakeRepo) GetUserByID(ctx context.Context, id int64) (*User, error) {
	if f.getUserByID == nil {
		panic("GetUserByID not configured")
	}
	return f.getUserByID(ctx, id)
}

func (f *fakeRepo) GetProviderByID(ctx context.Context, id int64) (*User, error) {
	if f.getProviderByID == nil {
		panic("GetProviderByID not configured")
	}
	return f.getProviderByID(ctx, id)
}

func (f *fakeRepo) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	if f.getAppointmentByID == nil {
		panic("GetAppointmentByID not configured")
	}
	return f.getAppointmentByID(ctx, id)
}

func (f *fakeRepo) HasConflicting(ctx context.Context, providerID int64, date time.Time) (bool, error) {
	if f.hasConflicting == nil {
		panic("HasConflicting not configured")
	}
	return f.hasConflicting(ctx, providerID, date)
}

func (f *fakeRepo) CreateAppointment(ctx context.Context, requesterID, providerID int64, date time.Time) (*Appointment, error) {
	if f.createAppointment == nil {
		panic("CreateAppointment not configured")
	}
	return f.createAppointment(ctx, requesterID, providerID, date)
}

func (f *fakeRepo) CancelAppointment(ctx context.Context, id int64, at time.Time) (*Appointment, error) {
	if f.cancelAppointment == nil {
		panic("CancelAppointment not configured")
	}
	return f.cancelAppointment(ctx, id, at)
}

func (f *fakeRepo) ListByRequester(ctx context.Context, requesterID int64, limit, offset int) ([]Appointment, error) {
	if f.listByRequester == nil {
		panic("ListByRequester not configured")
	}
	return f.listByRequester(ctx, requesterID, limit, offset)
}

func (f *fakeRepo) ListProviderDay(ctx context.Context, providerID int64, from, to time.Time) ([]Appointment, error) {
	if f.listProviderDay == nil {
		panic("ListProviderDay not configured")
	}
	return f.listProviderDay(ctx, providerID, from, to)
}

type fakeNotifier struct {
	recipientID int64
	content     string
	calls       int
	err         error
}

func (f *fakeNotifier) Notify(ctx context.Context, recipientID int64, content string) error {
	f.calls++
	f.recipientID = recipientID
	f.content = content
	return f.err
}

type fakeMailQueue struct {
	kind    string
	payload any
	calls   int
	err     error
}

func (f *fakeMailQueue) Enqueue(ctx context.Context, kind string, payload any) error {
	f.calls++
	f.kind = kind
	f.payload = payload
	return f.err
}

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestService(repo Repository, notifier *fakeNotifier, mq *fakeMailQueue) *Service {
	svc := NewService(repo, notifier, mq)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func providerUser(id int64) *User {
	return &User{ID: id, Name: "Maria Silva", Email: "maria@example.com", Provider: true}
}

func TestCreateAppointment_Success(t *testing.T) {
	var storedDate time.Time
	repo := &fakeRepo{
		getProviderByID: func(ctx context.Context, id int64) (*User, error) {
			return providerUser(id), nil
		},
		getUserByID: func(ctx context.Context, id int64) (*User, error) {
			return &User{ID: id, Name: "João Souza"}, nil
		},
		hasConflicting: func(ctx context.Context, providerID int64, date time.Time) (bool, error) {
			return false, nil
		},
		createAppointment: func(ctx context.Context, requesterID, providerID int64, date time.Time) (*Appointment, error) {
			storedDate = date
			return &Appointment{ID: 7, RequesterID: requesterID, ProviderID: providerID, Date: date}, nil
		},
	}
	notifier := &fakeNotifier{}
	svc := newTestService(repo, notifier, &fakeMailQueue{})

	date := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	appt, err := svc.CreateAppointment(context.Background(), 2, 1, date)
	require.NoError(t, err)

	assert.Equal(t, date, storedDate)
	assert.Nil(t, appt.CancelledAt)
	assert.Equal(t, int64(2), appt.RequesterID)
	assert.Equal(t, int64(1), appt.ProviderID)

	require.Equal(t, 1, notifier.calls)
	assert.Equal(t, int64(1), notifier.recipientID)
	assert.Equal(t, "Novo agendamento do João Souza para dia 01 de junho, às 14:00h", notifier.content)
}

func TestCreateAppointment_TruncationRejectsSubHourDates(t *testing.T) {
	repo := &fakeRepo{
		getProviderByID: func(ctx context.Context, id int64) (*User, error) {
			return providerUser(id), nil
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	_, err := svc.CreateAppointment(context.Background(), 2, 1,
		time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrSlotNotHourAligned)

	_, err = svc.CreateAppointment(context.Background(), 2, 1,
		time.Date(2025, 6, 1, 14, 0, 1, 0, time.UTC))
	assert.ErrorIs(t, err, ErrSlotNotHourAligned)
}

func TestCreateAppointment_NotAProvider(t *testing.T) {
	repo := &fakeRepo{
		getProviderByID: func(ctx context.Context, id int64) (*User, error) {
			return nil, ErrUserNotFound
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	_, err := svc.CreateAppointment(context.Background(), 2, 99,
		time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNotAProvider)
}

func TestCreateAppointment_SelfBooking(t *testing.T) {
	repo := &fakeRepo{
		getProviderByID: func(ctx context.Context, id int64) (*User, error) {
			return providerUser(id), nil
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	// Self booking fails regardless of the date.
	for _, date := range []time.Time{
		time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC),
	} {
		_, err := svc.CreateAppointment(context.Background(), 1, 1, date)
		assert.ErrorIs(t, err, ErrSelfBooking)
	}
}

func TestCreateAppointment_PastDate(t *testing.T) {
	repo := &fakeRepo{
		getProviderByID: func(ctx context.Context, id int64) (*User, error) {
			return providerUser(id), nil
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	_, err := svc.CreateAppointment(context.Background(), 2, 1,
		time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestCreateAppointment_SlotConflict(t *testing.T) {
	created := false
	repo := &fakeRepo{
		getProviderByID: func(ctx context.Context, id int64) (*User, error) {
			return providerUser(id), nil
		},
		hasConflicting: func(ctx context.Context, providerID int64, date time.Time) (bool, error) {
			return created, nil
		},
		createAppointment: func(ctx context.Context, requesterID, providerID int64, date time.Time) (*Appointment, error) {
			created = true
			return &Appointment{ID: 1, RequesterID: requesterID, ProviderID: providerID, Date: date}, nil
		},
		getUserByID: func(ctx context.Context, id int64) (*User, error) {
			return &User{ID: id, Name: "João Souza"}, nil
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	date := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

	_, err := svc.CreateAppointment(context.Background(), 2, 1, date)
	require.NoError(t, err)

	_, err = svc.CreateAppointment(context.Background(), 3, 1, date)
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestCreateAppointment_InsertLosesRace(t *testing.T) {
	repo := &fakeRepo{
		getProviderByID: func(ctx context.Context, id int64) (*User, error) {
			return providerUser(id), nil
		},
		hasConflicting: func(ctx context.Context, providerID int64, date time.Time) (bool, error) {
			// Advisory check saw the slot free...
			return false, nil
		},
		createAppointment: func(ctx context.Context, requesterID, providerID int64, date time.Time) (*Appointment, error) {
			// ...but the unique index rejected the insert.
			return nil, ErrSlotTaken
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	_, err := svc.CreateAppointment(context.Background(), 2, 1,
		time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestCreateAppointment_NotifyFailureDoesNotFailBooking(t *testing.T) {
	repo := &fakeRepo{
		getProviderByID: func(ctx context.Context, id int64) (*User, error) {
			return providerUser(id), nil
		},
		getUserByID: func(ctx context.Context, id int64) (*User, error) {
			return &User{ID: id, Name: "João Souza"}, nil
		},
		hasConflicting: func(ctx context.Context, providerID int64, date time.Time) (bool, error) {
			return false, nil
		},
		createAppointment: func(ctx context.Context, requesterID, providerID int64, date time.Time) (*Appointment, error) {
			return &Appointment{ID: 7, RequesterID: requesterID, ProviderID: providerID, Date: date}, nil
		},
	}
	notifier := &fakeNotifier{err: errors.New("redis down")}
	svc := newTestService(repo, notifier, &fakeMailQueue{})

	appt, err := svc.CreateAppointment(context.Background(), 2, 1,
		time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(7), appt.ID)
}

func cancellableAppointment(id, requesterID int64, date time.Time) *Appointment {
	return &Appointment{
		ID:          id,
		RequesterID: requesterID,
		ProviderID:  1,
		Date:        date,
		Requester:   &User{ID: requesterID, Name: "João Souza"},
		Provider:    providerUser(1),
	}
}

func TestCancelAppointment_Success(t *testing.T) {
	date := fixedNow.Add(3 * time.Hour)
	repo := &fakeRepo{
		getAppointmentByID: func(ctx context.Context, id int64) (*Appointment, error) {
			return cancellableAppointment(id, 2, date), nil
		},
		cancelAppointment: func(ctx context.Context, id int64, at time.Time) (*Appointment, error) {
			return &Appointment{ID: id, RequesterID: 2, ProviderID: 1, Date: date, CancelledAt: &at}, nil
		},
	}
	mq := &fakeMailQueue{}
	svc := newTestService(repo, &fakeNotifier{}, mq)

	appt, err := svc.CancelAppointment(context.Background(), 2, 7)
	require.NoError(t, err)

	require.NotNil(t, appt.CancelledAt)
	assert.Equal(t, fixedNow, *appt.CancelledAt)
	require.NotNil(t, appt.Provider)

	require.Equal(t, 1, mq.calls)
	assert.Equal(t, "CancellationMail", mq.kind)
}

func TestCancelAppointment_NotFound(t *testing.T) {
	repo := &fakeRepo{
		getAppointmentByID: func(ctx context.Context, id int64) (*Appointment, error) {
			return nil, ErrAppointmentNotFound
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	_, err := svc.CancelAppointment(context.Background(), 2, 404)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestCancelAppointment_Forbidden(t *testing.T) {
	repo := &fakeRepo{
		getAppointmentByID: func(ctx context.Context, id int64) (*Appointment, error) {
			return cancellableAppointment(id, 2, fixedNow.Add(3*time.Hour)), nil
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	_, err := svc.CancelAppointment(context.Background(), 5, 7)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancelAppointment_AlreadyCancelled(t *testing.T) {
	cancelledAt := fixedNow.Add(-time.Hour)
	repo := &fakeRepo{
		getAppointmentByID: func(ctx context.Context, id int64) (*Appointment, error) {
			appt := cancellableAppointment(id, 2, fixedNow.Add(3*time.Hour))
			appt.CancelledAt = &cancelledAt
			return appt, nil
		},
	}
	mq := &fakeMailQueue{}
	svc := newTestService(repo, &fakeNotifier{}, mq)

	_, err := svc.CancelAppointment(context.Background(), 2, 7)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Zero(t, mq.calls)
}

func TestCancelAppointment_WindowBoundary(t *testing.T) {
	tests := []struct {
		name    string
		date    time.Time
		wantErr error
	}{
		{"window already closed", fixedNow.Add(time.Hour), ErrCancelWindowClosed},
		{"one second inside the window", fixedNow.Add(2*time.Hour - time.Second), ErrCancelWindowClosed},
		{"exactly at the window edge", fixedNow.Add(2 * time.Hour), ErrCancelWindowClosed},
		{"one second of slack", fixedNow.Add(2*time.Hour + time.Second), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{
				getAppointmentByID: func(ctx context.Context, id int64) (*Appointment, error) {
					return cancellableAppointment(id, 2, tt.date), nil
				},
				cancelAppointment: func(ctx context.Context, id int64, at time.Time) (*Appointment, error) {
					return &Appointment{ID: id, RequesterID: 2, ProviderID: 1, Date: tt.date, CancelledAt: &at}, nil
				},
			}
			svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

			_, err := svc.CancelAppointment(context.Background(), 2, 7)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCancelAppointment_LostUpdateRaceReportsAlreadyCancelled(t *testing.T) {
	repo := &fakeRepo{
		getAppointmentByID: func(ctx context.Context, id int64) (*Appointment, error) {
			return cancellableAppointment(id, 2, fixedNow.Add(3*time.Hour)), nil
		},
		cancelAppointment: func(ctx context.Context, id int64, at time.Time) (*Appointment, error) {
			// The conditional update matched nothing: someone else won.
			return nil, ErrAppointmentNotFound
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	_, err := svc.CancelAppointment(context.Background(), 2, 7)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestCancelAppointment_EnqueueFailureStillSucceeds(t *testing.T) {
	date := fixedNow.Add(3 * time.Hour)
	repo := &fakeRepo{
		getAppointmentByID: func(ctx context.Context, id int64) (*Appointment, error) {
			return cancellableAppointment(id, 2, date), nil
		},
		cancelAppointment: func(ctx context.Context, id int64, at time.Time) (*Appointment, error) {
			return &Appointment{ID: id, RequesterID: 2, ProviderID: 1, Date: date, CancelledAt: &at}, nil
		},
	}
	mq := &fakeMailQueue{err: errors.New("redis down")}
	svc := newTestService(repo, &fakeNotifier{}, mq)

	appt, err := svc.CancelAppointment(context.Background(), 2, 7)
	require.NoError(t, err)
	assert.NotNil(t, appt.CancelledAt)
}

func TestListAppointments_Paging(t *testing.T) {
	var gotLimit, gotOffset int
	repo := &fakeRepo{
		listByRequester: func(ctx context.Context, requesterID int64, limit, offset int) ([]Appointment, error) {
			gotLimit, gotOffset = limit, offset
			return nil, nil
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	_, err := svc.ListAppointments(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 0, gotOffset)

	_, err = svc.ListAppointments(context.Background(), 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 40, gotOffset)
}

func TestListProviderSchedule_NotAProviderShortCircuits(t *testing.T) {
	queried := false
	repo := &fakeRepo{
		getProviderByID: func(ctx context.Context, id int64) (*User, error) {
			return nil, ErrUserNotFound
		},
		listProviderDay: func(ctx context.Context, providerID int64, from, to time.Time) ([]Appointment, error) {
			queried = true
			return nil, nil
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	_, err := svc.ListProviderSchedule(context.Background(), 2, fixedNow)
	assert.ErrorIs(t, err, ErrNotAProvider)
	assert.False(t, queried, "query must not run for non-providers")
}

func TestListProviderSchedule_DayRange(t *testing.T) {
	var gotFrom, gotTo time.Time
	repo := &fakeRepo{
		getProviderByID: func(ctx context.Context, id int64) (*User, error) {
			return providerUser(id), nil
		},
		listProviderDay: func(ctx context.Context, providerID int64, from, to time.Time) ([]Appointment, error) {
			gotFrom, gotTo = from, to
			return []Appointment{
				{ID: 1, Date: from.Add(9 * time.Hour)},
				{ID: 2, Date: from.Add(14 * time.Hour)},
			}, nil
		},
	}
	svc := newTestService(repo, &fakeNotifier{}, &fakeMailQueue{})

	appts, err := svc.ListProviderSchedule(context.Background(), 1,
		time.Date(2025, 6, 1, 17, 45, 12, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), gotFrom)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), gotTo)
	require.Len(t, appts, 2)
	assert.True(t, appts[0].Date.Before(appts[1].Date))
}
