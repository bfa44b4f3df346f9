package api

import (
	"time"

	"github.com/agendaapp/agenda-api/internal/booking"
	"github.com/agendaapp/agenda-api/internal/notification"
)

type CreateAppointmentRequest struct {
	ProviderID int64  `json:"provider_id"`
	Date       string `json:"date"`
}

type AvatarResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

type UserResponse struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Avatar *AvatarResponse `json:"avatar,omitempty"`
}

type AppointmentResponse struct {
	ID          int64         `json:"id"`
	Date        time.Time     `json:"date"`
	Past        bool          `json:"past"`
	Cancelable  bool          `json:"cancelable"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	User        *UserResponse `json:"user,omitempty"`
	Provider    *UserResponse `json:"provider,omitempty"`
}

type NotificationResponse struct {
	ID        string    `json:"_id"`
	User      int64     `json:"user"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toUserResponse(u *booking.User, appURL string) *UserResponse {
	if u == nil {
		return nil
	}

	resp := &UserResponse{ID: u.ID, Name: u.Name}
	if u.AvatarPath != nil {
		resp.Avatar = &AvatarResponse{
			Path: *u.AvatarPath,
			URL:  appURL + "/files/" + *u.AvatarPath,
		}
	}
	return resp
}

func toAppointmentResponse(a *booking.Appointment, now time.Time, appURL string) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		Date:        a.Date,
		Past:        a.Past(now),
		Cancelable:  a.CancelledAt == nil && a.Cancelable(now),
		CancelledAt: a.CancelledAt,
		User:        toUserResponse(a.Requester, appURL),
		Provider:    toUserResponse(a.Provider, appURL),
	}
}

func toNotificationResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		User:      n.UserID,
		Content:   n.Content,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
