package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/agendaapp/agenda-api/internal/booking"
)

const listPageSize = 10

var ErrNotAProvider = errors.New("only providers can read notifications")

// Directory is the slice of the user directory the service needs.
type Directory interface {
	GetProviderByID(ctx context.Context, id int64) (*booking.User, error)
}

type Service struct {
	store     Store
	directory Directory
}

func NewService(store Store, directory Directory) *Service {
	return &Service{store: store, directory: directory}
}

// Notify records an in-app notification for a recipient. It satisfies the
// booking service's Notifier.
func (s *Service) Notify(ctx context.Context, recipientID int64, content string) error {
	_, err := s.store.Create(ctx, recipientID, content)
	return err
}

// List returns one page of the caller's notifications, 10 per page, newest
// first. Only providers receive notifications, so only providers may list them.
func (s *Service) List(ctx context.Context, callerID int64, page int) ([]Notification, error) {
	if err := s.requireProvider(ctx, callerID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}

	return s.store.ListByRecipient(ctx, callerID, listPageSize, (page-1)*listPageSize)
}

// MarkRead flags a notification as read and returns the updated document.
func (s *Service) MarkRead(ctx context.Context, callerID int64, id string) (*Notification, error) {
	if err := s.requireProvider(ctx, callerID); err != nil {
		return nil, err
	}

	return s.store.MarkRead(ctx, id)
}

func (s *Service) requireProvider(ctx context.Context, callerID int64) error {
	if _, err := s.directory.GetProviderByID(ctx, callerID); err != nil {
		if errors.Is(err, booking.ErrUserNotFound) {
			return ErrNotAProvider
		}
		return fmt.Errorf("load provider: %w", err)
	}
	return nil
}
