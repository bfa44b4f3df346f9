package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agendaapp/agenda-api/internal/booking"
	"github.com/agendaapp/agenda-api/internal/notification"
)

// BookingService is the slice of the booking core the handlers call.
type BookingService interface {
	CreateAppointment(ctx context.Context, requesterID, providerID int64, date time.Time) (*booking.Appointment, error)
	CancelAppointment(ctx context.Context, callerID, appointmentID int64) (*booking.Appointment, error)
	ListAppointments(ctx context.Context, requesterID int64, page int) ([]booking.Appointment, error)
	ListProviderSchedule(ctx context.Context, callerID int64, day time.Time) ([]booking.Appointment, error)
}

// NotificationService is the provider-gated notification surface.
type NotificationService interface {
	List(ctx context.Context, callerID int64, page int) ([]notification.Notification, error)
	MarkRead(ctx context.Context, callerID int64, id string) (*notification.Notification, error)
}

func listAppointmentsHandler(svc BookingService, appURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ListAppointments(r.Context(), CallerID(r.Context()), pageParam(r))
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appointmentList(appts, appURL))
	}
}

func createAppointmentHandler(svc BookingService, appURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if req.ProviderID <= 0 || req.Date == "" {
			writeError(w, http.StatusBadRequest, "validation_fails", "provider_id and date are required")
			return
		}

		date, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_fails", "date must be an ISO-8601 timestamp")
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), CallerID(r.Context()), req.ProviderID, date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt, time.Now(), appURL))
	}
}

func cancelAppointmentHandler(svc BookingService, appURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be an integer")
			return
		}

		appt, err := svc.CancelAppointment(r.Context(), CallerID(r.Context()), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt, time.Now(), appURL))
	}
}

func scheduleHandler(svc BookingService, appURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_fails", "date query param must be YYYY-MM-DD")
			return
		}

		appts, err := svc.ListProviderSchedule(r.Context(), CallerID(r.Context()), day)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appointmentList(appts, appURL))
	}
}

func listNotificationsHandler(svc NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notifs, err := svc.List(r.Context(), CallerID(r.Context()), pageParam(r))
		if err != nil {
			handleNotificationError(w, err)
			return
		}

		resp := make([]NotificationResponse, 0, len(notifs))
		for i := range notifs {
			resp = append(resp, toNotificationResponse(&notifs[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func readNotificationHandler(svc NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notif, err := svc.MarkRead(r.Context(), CallerID(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			handleNotificationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toNotificationResponse(notif))
	}
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func appointmentList(appts []booking.Appointment, appURL string) []AppointmentResponse {
	now := time.Now()
	resp := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		resp = append(resp, toAppointmentResponse(&appts[i], now, appURL))
	}
	return resp
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrNotAProvider):
		writeError(w, http.StatusUnauthorized, "not_a_provider", err.Error())
	case errors.Is(err, booking.ErrSelfBooking):
		writeError(w, http.StatusUnauthorized, "self_booking", err.Error())
	case errors.Is(err, booking.ErrForbidden):
		writeError(w, http.StatusUnauthorized, "forbidden", err.Error())
	case errors.Is(err, booking.ErrAlreadyCancelled):
		writeError(w, http.StatusUnauthorized, "already_cancelled", err.Error())
	case errors.Is(err, booking.ErrSlotNotHourAligned):
		writeError(w, http.StatusBadRequest, "invalid_slot", err.Error())
	case errors.Is(err, booking.ErrPastDate):
		writeError(w, http.StatusBadRequest, "past_date", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusBadRequest, "slot_taken", err.Error())
	case errors.Is(err, booking.ErrCancelWindowClosed):
		writeError(w, http.StatusBadRequest, "cancel_window_closed", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleNotificationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notification.ErrNotAProvider):
		writeError(w, http.StatusUnauthorized, "not_a_provider", err.Error())
	case errors.Is(err, notification.ErrNotFound):
		writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
