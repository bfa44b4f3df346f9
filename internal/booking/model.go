package booking

import (
	"time"
)

// CancelWindow is how long before an appointment cancellation closes.
const CancelWindow = 2 * time.Hour

type User struct {
	ID         int64
	Name       string
	Email      string
	Provider   bool
	AvatarPath *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Appointment struct {
	ID          int64
	RequesterID int64
	ProviderID  int64
	Date        time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Hydrated by the repository on reads that join users.
	Requester *User
	Provider  *User
}

// Past reports whether the appointment's slot has already started.
func (a *Appointment) Past(now time.Time) bool {
	return a.Date.Before(now)
}

// Cancelable reports whether the appointment can still be cancelled,
// i.e. now is strictly inside the window before date minus CancelWindow.
func (a *Appointment) Cancelable(now time.Time) bool {
	return now.Before(a.Date.Add(-CancelWindow))
}
