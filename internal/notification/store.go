// Package notification keeps in-app notifications in Redis, outside the
// relational schema: one hash per notification plus a per-recipient sorted
// set indexed by creation time, so listing newest-first is a range read.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string    `json:"_id"`
	UserID    int64     `json:"user"`
	Content   string    `json:"content"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence boundary for notifications.
type Store interface {
	Create(ctx context.Context, recipientID int64, content string) (*Notification, error)
	ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, id string) (*Notification, error)
}

type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func notificationKey(id string) string {
	return "notification:" + id
}

func recipientKey(recipientID int64) string {
	return fmt.Sprintf("user:%d:notifications", recipientID)
}

func (s *RedisStore) Create(ctx context.Context, recipientID int64, content string) (*Notification, error) {
	n := &Notification{
		ID:        uuid.NewString(),
		UserID:    recipientID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, notificationKey(n.ID), map[string]any{
		"user_id":    n.UserID,
		"content":    n.Content,
		"read":       0,
		"created_at": n.CreatedAt.Format(time.RFC3339Nano),
	})
	pipe.ZAdd(ctx, recipientKey(recipientID), redis.Z{
		Score:  float64(n.CreatedAt.UnixNano()),
		Member: n.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}

	return n, nil
}

func (s *RedisStore) ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]Notification, error) {
	// Newest first.
	ids, err := s.client.ZRevRange(ctx, recipientKey(recipientID), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list notification ids: %w", err)
	}

	result := make([]Notification, 0, len(ids))
	for _, id := range ids {
		n, err := s.load(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Index entry outlived the hash; skip it.
				continue
			}
			return nil, err
		}
		result = append(result, *n)
	}

	return result, nil
}

func (s *RedisStore) MarkRead(ctx context.Context, id string) (*Notification, error) {
	n, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.client.HSet(ctx, notificationKey(id), "read", 1).Err(); err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}

	n.Read = true
	return n, nil
}

func (s *RedisStore) load(ctx context.Context, id string) (*Notification, error) {
	fields, err := s.client.HGetAll(ctx, notificationKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load notification %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	userID, err := strconv.ParseInt(fields["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode notification %s user id: %w", id, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("decode notification %s created at: %w", id, err)
	}

	return &Notification{
		ID:        id,
		UserID:    userID,
		Content:   fields["content"],
		Read:      fields["read"] == "1",
		CreatedAt: createdAt,
	}, nil
}
