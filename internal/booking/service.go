package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/agendaapp/agenda-api/internal/mailqueue"
)

const listPageSize = 20

var (
	ErrNotAProvider       = errors.New("appointments can only be created with providers")
	ErrSelfBooking        = errors.New("providers cannot book appointments with themselves")
	ErrSlotNotHourAligned = errors.New("date must be without minutes and seconds")
	ErrPastDate           = errors.New("past dates are not permitted")
	ErrForbidden          = errors.New("no permission to cancel this appointment")
	ErrAlreadyCancelled   = errors.New("appointment was already cancelled")
	ErrCancelWindowClosed = errors.New("appointments can only be cancelled 2 hours in advance")
)

// Notifier delivers in-app notifications to providers.
type Notifier interface {
	Notify(ctx context.Context, recipientID int64, content string) error
}

// MailQueue hands mail jobs off to an asynchronous worker.
type MailQueue interface {
	Enqueue(ctx context.Context, kind string, payload any) error
}

type Service struct {
	repo     Repository
	notifier Notifier
	mail     MailQueue
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, mail MailQueue) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		mail:     mail,
		now:      time.Now,
	}
}

// CreateAppointment books an hour-aligned slot with a provider on behalf of
// the requester. Validation runs fully before any write: provider flag, no
// self-booking, slot granularity, no past dates, then slot availability. The
// conflict check is advisory; the insert itself is guarded by the slot
// uniqueness constraint.
func (s *Service) CreateAppointment(ctx context.Context, requesterID, providerID int64, date time.Time) (*Appointment, error) {
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNotAProvider
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	if providerID == requesterID {
		return nil, ErrSelfBooking
	}

	slot := date.UTC()
	hourStart := slot.Truncate(time.Hour)
	if !hourStart.Equal(slot) {
		return nil, ErrSlotNotHourAligned
	}

	if hourStart.Before(s.now()) {
		return nil, ErrPastDate
	}

	taken, err := s.repo.HasConflicting(ctx, providerID, hourStart)
	if err != nil {
		return nil, fmt.Errorf("check slot availability: %w", err)
	}
	if taken {
		return nil, ErrSlotTaken
	}

	appt, err := s.repo.CreateAppointment(ctx, requesterID, providerID, hourStart)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.notifyProvider(ctx, appt)

	return appt, nil
}

// notifyProvider is best effort: the appointment is already committed, so a
// notification failure is logged rather than surfaced to the caller.
func (s *Service) notifyProvider(ctx context.Context, appt *Appointment) {
	requester, err := s.repo.GetUserByID(ctx, appt.RequesterID)
	if err != nil {
		log.Printf("load requester %d for notification: %v", appt.RequesterID, err)
		return
	}

	content := fmt.Sprintf("Novo agendamento do %s para %s", requester.Name, FormatDatePt(appt.Date))
	if err := s.notifier.Notify(ctx, appt.ProviderID, content); err != nil {
		log.Printf("notify provider %d about appointment %d: %v", appt.ProviderID, appt.ID, err)
	}
}

// CancelAppointment cancels one of the caller's own appointments, as long as
// it is not already cancelled and its slot is still more than two hours away.
// The update only matches rows whose cancelled_at is still null, so a
// concurrent double cancel loses cleanly.
func (s *Service) CancelAppointment(ctx context.Context, callerID, appointmentID int64) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if appt.RequesterID != callerID {
		return nil, ErrForbidden
	}

	if appt.CancelledAt != nil {
		return nil, ErrAlreadyCancelled
	}

	now := s.now()
	if !appt.Cancelable(now) {
		return nil, ErrCancelWindowClosed
	}

	updated, err := s.repo.CancelAppointment(ctx, appointmentID, now)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Another request cancelled it between our read and the update.
			return nil, ErrAlreadyCancelled
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}
	updated.Requester = appt.Requester
	updated.Provider = appt.Provider

	payload := mailqueue.CancellationMail{
		AppointmentID: updated.ID,
		Date:          updated.Date,
		RequesterName: appt.Requester.Name,
		ProviderName:  appt.Provider.Name,
		ProviderEmail: appt.Provider.Email,
	}
	if err := s.mail.Enqueue(ctx, mailqueue.KindCancellationMail, payload); err != nil {
		// The cancellation is already committed; the mail job is fire and forget.
		log.Printf("enqueue cancellation mail for appointment %d: %v", updated.ID, err)
	}

	return updated, nil
}

// ListAppointments returns one page of the caller's upcoming and past
// non-cancelled appointments, 20 per page, ascending by date.
func (s *Service) ListAppointments(ctx context.Context, requesterID int64, page int) ([]Appointment, error) {
	if page < 1 {
		page = 1
	}

	appts, err := s.repo.ListByRequester(ctx, requesterID, listPageSize, (page-1)*listPageSize)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// ListProviderSchedule returns the caller's non-cancelled appointments for the
// given calendar day, ascending by date. Callers that are not providers are
// rejected before any query runs.
func (s *Service) ListProviderSchedule(ctx context.Context, callerID int64, day time.Time) ([]Appointment, error) {
	if _, err := s.repo.GetProviderByID(ctx, callerID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrNotAProvider
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	day = day.UTC()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	appts, err := s.repo.ListProviderDay(ctx, callerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list provider schedule: %w", err)
	}
	return appts, nil
}
