package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/event-service/internal/domain"
)

const eventColumns = `e.id, e.name, e.description, e.event_date, e.start_time, e.location, e.capacity,
               e.available_slots, e.price, e.category, e.status, e.created_by, e.created_at, e.updated_at`

type eventRepository struct {
	q querier
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	const query = `
        INSERT INTO events (id, name, description, event_date, start_time, location, capacity,
            available_slots, price, category, status, created_by, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt, event.UpdatedAt = now, now

	_, err := r.q.exec(ctx, query,
		event.ID,
		event.Name,
		event.Description,
		event.Date.UTC(),
		event.Time,
		event.Location,
		event.Capacity,
		event.AvailableSlots,
		event.Price,
		event.Category,
		string(event.Status),
		event.CreatedBy,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return err
}

// Update writes the descriptive fields and status. Capacity and slots only
// change through SetAvailableSlots and the slot operations.
func (r *eventRepository) Update(ctx context.Context, event *domain.Event) error {
	const query = `
        UPDATE events SET name=$1, description=$2, event_date=$3, start_time=$4, location=$5,
            price=$6, category=$7, status=$8, updated_at=$9
        WHERE id=$10`

	event.UpdatedAt = time.Now().UTC()
	n, err := r.q.exec(ctx, query,
		event.Name,
		event.Description,
		event.Date.UTC(),
		event.Time,
		event.Location,
		event.Price,
		event.Category,
		string(event.Status),
		event.UpdatedAt,
		event.ID,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	n, err := r.q.exec(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
        SELECT ` + eventColumns + `, u.name, u.email
        FROM events e LEFT JOIN users u ON u.id = e.created_by
        WHERE e.id=$1`
	return scanEvent(r.q.queryRow(ctx, query, id), true)
}

func (r *eventRepository) GetForUpdate(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id=$1` + r.q.dialect().lockClause
	return scanEvent(r.q.queryRow(ctx, query, id), false)
}

func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]domain.Event, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("e.status=$%d", len(args)))
	}
	if filter.Category != nil && strings.TrimSpace(*filter.Category) != "" {
		args = append(args, strings.TrimSpace(*filter.Category))
		clauses = append(clauses, fmt.Sprintf("e.category=$%d", len(args)))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int
	if err := r.q.queryRow(ctx, `SELECT COUNT(*) FROM events e`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + `, u.name, u.email
        FROM events e LEFT JOIN users u ON u.id = e.created_by` + where + ` ORDER BY e.event_date ASC, e.id ASC`
	query, args = paginate(query, args, filter.Limit, filter.Offset)

	rows, err := r.q.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows, true)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, *event)
	}
	return events, total, rows.Err()
}

func (r *eventRepository) ReserveSlot(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE events SET available_slots = available_slots - 1, updated_at=$1
        WHERE id=$2 AND available_slots > 0`
	n, err := r.q.exec(ctx, query, time.Now().UTC(), id)
	return n == 1, err
}

func (r *eventRepository) ReleaseSlot(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE events SET available_slots = available_slots + 1, updated_at=$1
        WHERE id=$2 AND available_slots < capacity`
	n, err := r.q.exec(ctx, query, time.Now().UTC(), id)
	return n == 1, err
}

func (r *eventRepository) SetAvailableSlots(ctx context.Context, id string, capacity, available int) error {
	const query = `UPDATE events SET capacity=$1, available_slots=$2, updated_at=$3 WHERE id=$4`
	n, err := r.q.exec(ctx, query, capacity, available, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *eventRepository) ReassignCreator(ctx context.Context, fromUserID, toUserID string) (int64, error) {
	const query = `UPDATE events SET created_by=$1, updated_at=$2 WHERE created_by=$3`
	return r.q.exec(ctx, query, toUserID, time.Now().UTC(), fromUserID)
}

func (r *eventRepository) CompletePast(ctx context.Context, before time.Time) (int64, error) {
	const query = `UPDATE events SET status=$1, updated_at=$2 WHERE status=$3 AND event_date < $4`
	return r.q.exec(ctx, query,
		string(domain.EventStatusCompleted),
		time.Now().UTC(),
		string(domain.EventStatusActive),
		before.UTC(),
	)
}

func scanEvent(row row, withCreator bool) (*domain.Event, error) {
	var (
		event        domain.Event
		status       string
		creatorName  *string
		creatorEmail *string
	)
	dest := []any{
		&event.ID,
		&event.Name,
		&event.Description,
		&event.Date,
		&event.Time,
		&event.Location,
		&event.Capacity,
		&event.AvailableSlots,
		&event.Price,
		&event.Category,
		&status,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.UpdatedAt,
	}
	if withCreator {
		dest = append(dest, &creatorName, &creatorEmail)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	event.Status = domain.EventStatus(status)
	if creatorName != nil && creatorEmail != nil {
		event.Creator = &domain.UserSummary{ID: event.CreatedBy, Name: *creatorName, Email: *creatorEmail}
	}
	return &event, nil
}
