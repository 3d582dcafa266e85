package ingest

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/spec-kit/event-service/internal/domain"
)

// Event fields and the normalized headers accepted for each, in priority order.
var eventAliases = map[string][]string{
	"name":        {"name", "title", "nombre", "titulo", "evento"},
	"description": {"description", "details", "descripcion", "detalle"},
	"date":        {"date", "fecha", "when", "cuando"},
	"time":        {"time", "hora"},
	"location":    {"location", "address", "ubicacion", "lugar", "direccion"},
	"capacity":    {"capacity", "capacidad", "cupos"},
	"price":       {"price", "cost", "precio", "costo"},
	"category":    {"category", "type", "categoria", "tipo"},
}

// EventDraft is a spreadsheet row that passed event validation.
type EventDraft struct {
	Row         int
	Name        string
	Description *string
	Date        time.Time
	Time        *string
	Location    *string
	Capacity    int
	Price       float64
	Category    *string
}

// Event builds the event owned by creator, with every slot available.
func (d EventDraft) Event(creator string) *domain.Event {
	return &domain.Event{
		Name:           d.Name,
		Description:    d.Description,
		Date:           d.Date,
		Time:           d.Time,
		Location:       d.Location,
		Capacity:       d.Capacity,
		AvailableSlots: d.Capacity,
		Price:          d.Price,
		Category:       d.Category,
		Status:         domain.EventStatusActive,
		CreatedBy:      creator,
	}
}

// RowSkip records why a data row did not produce an event. Row is 1-based
// and counts data rows only.
type RowSkip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// MapEvents resolves aliased columns and validates every row against the
// event rules. Rows dated at or before now are skipped.
func MapEvents(d *Dataset, now time.Time) ([]EventDraft, []RowSkip) {
	index := make(map[string][]int, len(eventAliases))
	for field, aliases := range eventAliases {
		for _, alias := range aliases {
			if i := d.Index(alias); i >= 0 {
				index[field] = append(index[field], i)
			}
		}
	}

	var (
		drafts []EventDraft
		skips  []RowSkip
	)
	for r, row := range d.Rows {
		lookup := func(field string) Value {
			for _, i := range index[field] {
				if !row[i].IsNull() {
					return row[i]
				}
			}
			return Value{Kind: KindNull}
		}
		draft, reason := mapEventRow(lookup, now)
		if reason != "" {
			skips = append(skips, RowSkip{Row: r + 1, Reason: reason})
			continue
		}
		draft.Row = r + 1
		drafts = append(drafts, draft)
	}
	return drafts, skips
}

func mapEventRow(lookup func(string) Value, now time.Time) (EventDraft, string) {
	var draft EventDraft

	name := lookup("name")
	if name.IsNull() {
		return draft, "missing name"
	}
	if n := utf8.RuneCountInString(name.Raw); n < domain.EventNameMinLen || n > domain.EventNameMaxLen {
		return draft, fmt.Sprintf("name must be %d-%d characters", domain.EventNameMinLen, domain.EventNameMaxLen)
	}
	draft.Name = name.Raw

	date := lookup("date")
	switch {
	case date.IsNull():
		return draft, "missing date"
	case date.Kind != KindTimestamp:
		return draft, fmt.Sprintf("unparseable date %q", date.Raw)
	case !date.Time.After(now):
		return draft, "date is not in the future"
	}
	draft.Date = date.Time

	capacity := lookup("capacity")
	switch {
	case capacity.IsNull():
		return draft, "missing capacity"
	case capacity.Kind != KindInteger:
		return draft, fmt.Sprintf("invalid capacity %q", capacity.Raw)
	case !domain.CapacityInRange(int(capacity.Int)):
		return draft, fmt.Sprintf("capacity must be between %d and %d", domain.MinCapacity, domain.MaxCapacity)
	}
	draft.Capacity = int(capacity.Int)

	price := lookup("price")
	switch price.Kind {
	case KindNull:
	case KindInteger, KindDecimal:
		if price.Float < 0 {
			return draft, "price must not be negative"
		}
		draft.Price = price.Float
	default:
		return draft, fmt.Sprintf("invalid price %q", price.Raw)
	}

	draft.Description = optionalText(lookup("description"))
	draft.Time = optionalText(lookup("time"))
	draft.Location = optionalText(lookup("location"))
	draft.Category = optionalText(lookup("category"))
	return draft, ""
}

func optionalText(v Value) *string {
	if v.IsNull() {
		return nil
	}
	s := v.Raw
	return &s
}
