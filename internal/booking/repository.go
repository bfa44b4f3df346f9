package booking

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotTaken           = errors.New("appointment date is not available")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetProviderByID returns the user only when its provider flag is set.
	GetProviderByID(ctx context.Context, id int64) (*User, error)

	// GetAppointmentByID hydrates requester and provider.
	GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error)

	// HasConflicting reports whether a non-cancelled appointment exists for
	// (providerID, date). Advisory only; CreateAppointment is the authority.
	HasConflicting(ctx context.Context, providerID int64, date time.Time) (bool, error)

	// CreateAppointment inserts a new appointment and returns ErrSlotTaken when
	// the slot uniqueness constraint rejects it.
	CreateAppointment(ctx context.Context, requesterID, providerID int64, date time.Time) (*Appointment, error)

	// CancelAppointment sets cancelled_at only if it is still null and returns
	// the updated row; ErrAppointmentNotFound means the guard did not match.
	CancelAppointment(ctx context.Context, id int64, at time.Time) (*Appointment, error)

	// ListByRequester returns the requester's non-cancelled appointments,
	// ascending by date, with providers hydrated.
	ListByRequester(ctx context.Context, requesterID int64, limit, offset int) ([]Appointment, error)

	// ListProviderDay returns the provider's non-cancelled appointments with
	// from <= date < to, ascending by date, with requesters hydrated.
	ListProviderDay(ctx context.Context, providerID int64, from, to time.Time) ([]Appointment, error)
}
