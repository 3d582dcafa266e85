package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/event-service/internal/domain"
)

const registrationColumns = `r.id, r.user_id, r.event_id, r.status, r.payment_status, r.notes, r.created_at, r.updated_at`

type registrationRepository struct {
	q querier
}

func (r *registrationRepository) Create(ctx context.Context, reg *domain.Registration) error {
	const query = `
        INSERT INTO registrations (id, user_id, event_id, status, payment_status, notes, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	reg.CreatedAt, reg.UpdatedAt = now, now

	_, err := r.q.exec(ctx, query,
		reg.ID,
		reg.UserID,
		reg.EventID,
		string(reg.Status),
		string(reg.PaymentStatus),
		reg.Notes,
		reg.CreatedAt,
		reg.UpdatedAt,
	)
	return err
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r WHERE r.id=$1`
	return scanRegistration(r.q.queryRow(ctx, query, id))
}

func (r *registrationRepository) GetLive(ctx context.Context, userID, eventID string) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r
        WHERE r.user_id=$1 AND r.event_id=$2 AND r.status <> $3`
	return scanRegistration(r.q.queryRow(ctx, query, userID, eventID, string(domain.RegistrationCancelled)))
}

func (r *registrationRepository) TransitionStatus(ctx context.Context, id string, from, to domain.RegistrationStatus) (bool, error) {
	const query = `UPDATE registrations SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`
	n, err := r.q.exec(ctx, query, string(to), time.Now().UTC(), id, string(from))
	return n == 1, err
}

func (r *registrationRepository) TransitionPayment(ctx context.Context, id string, from, to domain.PaymentStatus) (bool, error) {
	const query = `UPDATE registrations SET payment_status=$1, updated_at=$2 WHERE id=$3 AND payment_status=$4`
	n, err := r.q.exec(ctx, query, string(to), time.Now().UTC(), id, string(from))
	return n == 1, err
}

func (r *registrationRepository) CountLive(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE event_id=$1 AND status <> $2`
	var count int
	err := r.q.queryRow(ctx, query, eventID, string(domain.RegistrationCancelled)).Scan(&count)
	return count, err
}

// ListByUser returns the user's registrations with their events, newest first.
func (r *registrationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Registration, error) {
	query := `
        SELECT ` + registrationColumns + `, ` + eventColumns + `
        FROM registrations r JOIN events e ON e.id = r.event_id
        WHERE r.user_id=$1
        ORDER BY r.created_at DESC`

	rows, err := r.q.query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		var (
			reg         domain.Registration
			status      string
			payment     string
			event       domain.Event
			eventStatus string
		)
		if err := rows.Scan(
			&reg.ID, &reg.UserID, &reg.EventID, &status, &payment, &reg.Notes, &reg.CreatedAt, &reg.UpdatedAt,
			&event.ID, &event.Name, &event.Description, &event.Date, &event.Time, &event.Location,
			&event.Capacity, &event.AvailableSlots, &event.Price, &event.Category, &eventStatus,
			&event.CreatedBy, &event.CreatedAt, &event.UpdatedAt,
		); err != nil {
			return nil, err
		}
		reg.Status = domain.RegistrationStatus(status)
		reg.PaymentStatus = domain.PaymentStatus(payment)
		event.Status = domain.EventStatus(eventStatus)
		reg.Event = &event
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// ListByEvent returns an event's registrations with their users, oldest first.
func (r *registrationRepository) ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error) {
	query := `
        SELECT ` + registrationColumns + `, u.name, u.email
        FROM registrations r JOIN users u ON u.id = r.user_id
        WHERE r.event_id=$1
        ORDER BY r.created_at ASC`

	rows, err := r.q.query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		var (
			reg     domain.Registration
			status  string
			payment string
			user    domain.UserSummary
		)
		if err := rows.Scan(
			&reg.ID, &reg.UserID, &reg.EventID, &status, &payment, &reg.Notes, &reg.CreatedAt, &reg.UpdatedAt,
			&user.Name, &user.Email,
		); err != nil {
			return nil, err
		}
		reg.Status = domain.RegistrationStatus(status)
		reg.PaymentStatus = domain.PaymentStatus(payment)
		user.ID = reg.UserID
		reg.User = &user
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *registrationRepository) ListLiveByUser(ctx context.Context, userID string) ([]domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations r
        WHERE r.user_id=$1 AND r.status <> $2`

	rows, err := r.q.query(ctx, query, userID, string(domain.RegistrationCancelled))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []domain.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

func (r *registrationRepository) DeleteByEvent(ctx context.Context, eventID string) (int64, error) {
	return r.q.exec(ctx, `DELETE FROM registrations WHERE event_id=$1`, eventID)
}

func (r *registrationRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return r.q.exec(ctx, `DELETE FROM registrations WHERE user_id=$1`, userID)
}

func (r *registrationRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.q.queryRow(ctx, `SELECT COUNT(*) FROM registrations WHERE created_at >= $1`, since.UTC()).Scan(&count)
	return count, err
}

func scanRegistration(row row) (*domain.Registration, error) {
	var (
		reg     domain.Registration
		status  string
		payment string
	)
	if err := row.Scan(
		&reg.ID,
		&reg.UserID,
		&reg.EventID,
		&status,
		&payment,
		&reg.Notes,
		&reg.CreatedAt,
		&reg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	reg.Status = domain.RegistrationStatus(status)
	reg.PaymentStatus = domain.PaymentStatus(payment)
	return &reg, nil
}
