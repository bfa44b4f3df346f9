package booking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var avatarPath *string

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Provider,
		&avatarPath,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	u.AvatarPath = avatarPath
	return &u, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var cancelledAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.RequesterID,
		&a.ProviderID,
		&a.Date,
		&cancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CancelledAt = cancelledAt
	return &a, nil
}

// appointmentWithUsersCols selects the appointment plus both joined users.
const appointmentWithUsersCols = `
	a.id, a.user_id, a.provider_id, a.date, a.cancelled_at, a.created_at, a.updated_at,
	u.id, u.name, u.email, u.provider, u.avatar_path, u.created_at, u.updated_at,
	p.id, p.name, p.email, p.provider, p.avatar_path, p.created_at, p.updated_at`

func scanAppointmentWithUsers(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var requester, provider User

	err := row.Scan(
		&a.ID,
		&a.RequesterID,
		&a.ProviderID,
		&a.Date,
		&a.CancelledAt,
		&a.CreatedAt,
		&a.UpdatedAt,
		&requester.ID,
		&requester.Name,
		&requester.Email,
		&requester.Provider,
		&requester.AvatarPath,
		&requester.CreatedAt,
		&requester.UpdatedAt,
		&provider.ID,
		&provider.Name,
		&provider.Email,
		&provider.Provider,
		&provider.AvatarPath,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Requester = &requester
	a.Provider = &provider
	return &a, nil
}

// Interface methods

func (r *PgRepository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, provider, avatar_path, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetProviderByID(ctx context.Context, id int64) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, provider, avatar_path, created_at, updated_at
		FROM users
		WHERE id = $1 AND provider = true
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentWithUsersCols+`
		FROM appointments a
		JOIN users u ON u.id = a.user_id
		JOIN users p ON p.id = a.provider_id
		WHERE a.id = $1
	`, id)
	return scanAppointmentWithUsers(row)
}

func (r *PgRepository) HasConflicting(ctx context.Context, providerID int64, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE provider_id = $1 AND date = $2 AND cancelled_at IS NULL
		)
	`, providerID, date).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, requesterID, providerID int64, date time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (user_id, provider_id, date, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, user_id, provider_id, date, cancelled_at, created_at, updated_at
	`, requesterID, providerID, date)

	appt, err := scanAppointment(row)
	if err != nil {
		// The partial unique index on (provider_id, date) WHERE cancelled_at
		// IS NULL closes the race between the advisory check and the insert.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id int64, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET cancelled_at = $2,
		    updated_at = now()
		WHERE id = $1
		  AND cancelled_at IS NULL
		RETURNING id, user_id, provider_id, date, cancelled_at, created_at, updated_at
	`, id, at)
	return scanAppointment(row)
}

func (r *PgRepository) ListByRequester(ctx context.Context, requesterID int64, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentWithUsersCols+`
		FROM appointments a
		JOIN users u ON u.id = a.user_id
		JOIN users p ON p.id = a.provider_id
		WHERE a.user_id = $1 AND a.cancelled_at IS NULL
		ORDER BY a.date
		LIMIT $2 OFFSET $3
	`, requesterID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListProviderDay(ctx context.Context, providerID int64, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentWithUsersCols+`
		FROM appointments a
		JOIN users u ON u.id = a.user_id
		JOIN users p ON p.id = a.provider_id
		WHERE a.provider_id = $1
		  AND a.cancelled_at IS NULL
		  AND a.date >= $2
		  AND a.date < $3
		ORDER BY a.date
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointmentWithUsers(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
