// Package mailqueue is a small Redis-list job queue shared by the API server
// (producer) and the mail worker (consumer). Jobs are JSON envelopes pushed
// with LPUSH and popped with BRPOP, so delivery is at-least-once from the
// moment the enqueue succeeds.
package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const KindCancellationMail = "CancellationMail"

// ErrEmpty is returned by Dequeue when the blocking pop times out with no job.
var ErrEmpty = errors.New("mail queue is empty")

type Job struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// CancellationMail is the payload carried by KindCancellationMail jobs.
type CancellationMail struct {
	AppointmentID int64     `json:"appointment_id"`
	Date          time.Time `json:"date"`
	RequesterName string    `json:"requester_name"`
	ProviderName  string    `json:"provider_name"`
	ProviderEmail string    `json:"provider_email"`
}

type Queue struct {
	client *redis.Client
	key    string
}

func NewQueue(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

func (q *Queue) Enqueue(ctx context.Context, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}

	job, err := json.Marshal(Job{Kind: kind, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal %s job: %w", kind, err)
	}

	if err := q.client.LPush(ctx, q.key, job).Err(); err != nil {
		return fmt.Errorf("push %s job: %w", kind, err)
	}
	return nil
}

// Dequeue blocks up to timeout waiting for the next job.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	res, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("pop mail job: %w", err)
	}

	// BRPOP returns [key, value].
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("decode mail job: %w", err)
	}
	return &job, nil
}
