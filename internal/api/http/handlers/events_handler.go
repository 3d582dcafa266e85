package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/event-service/internal/api/dto"
	"github.com/spec-kit/event-service/internal/auth"
	"github.com/spec-kit/event-service/internal/service"
)

// EventsHandler serves the event catalogue and sign-ups.
type EventsHandler struct {
	events        *service.EventService
	registrations *service.RegistrationService
}

// NewEventsHandler constructs handler.
func NewEventsHandler(eventService *service.EventService, registrationService *service.RegistrationService) *EventsHandler {
	return &EventsHandler{events: eventService, registrations: registrationService}
}

// List handles GET /api/events.
func (h *EventsHandler) List(c *fiber.Ctx) error {
	filter := service.EventListFilter{
		Status: c.Query("status"),
		Page:   parsePage(c),
	}
	if category := c.Query("category"); category != "" {
		filter.Category = &category
	}
	list, page, err := h.events.ListEvents(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return respondPage(c, dto.NewEventResponses(list), page)
}

// Get handles GET /api/events/:id.
func (h *EventsHandler) Get(c *fiber.Ctx) error {
	event, registrations, err := h.events.GetEvent(c.UserContext(), auth.PrincipalFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.EventDetailResponse{EventResponse: dto.NewEventResponse(event)}
	if registrations != nil {
		resp.Registrations = dto.NewRegistrationResponses(registrations)
	}
	return respond(c, fiber.StatusOK, "", resp)
}

// Create handles POST /api/events.
func (h *EventsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateEventRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return err
	}
	event, err := h.events.CreateEvent(c.UserContext(), auth.PrincipalFromContext(c), service.EventInput{
		Name:        req.Name,
		Description: req.Description,
		Date:        date,
		Time:        req.Time,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Price:       req.Price,
		Category:    req.Category,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "event created", dto.NewEventResponse(event))
}

// Update handles PUT /api/events/:id.
func (h *EventsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateEventRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	update := service.EventUpdate{
		Name:        req.Name,
		Description: req.Description,
		Time:        req.Time,
		Location:    req.Location,
		Capacity:    req.Capacity,
		Price:       req.Price,
		Category:    req.Category,
		Status:      req.Status,
	}
	if req.Date != nil {
		date, err := parseDate("date", *req.Date)
		if err != nil {
			return err
		}
		update.Date = &date
	}

	event, err := h.events.UpdateEvent(c.UserContext(), auth.PrincipalFromContext(c), c.Params("id"), update)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "event updated", dto.NewEventResponse(event))
}

// Delete handles DELETE /api/events/:id.
func (h *EventsHandler) Delete(c *fiber.Ctx) error {
	if err := h.events.DeleteEvent(c.UserContext(), auth.PrincipalFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "event deleted", nil)
}

// Register handles POST /api/events/:id/register.
func (h *EventsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	reg, err := h.registrations.Register(c.UserContext(), auth.PrincipalFromContext(c), c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "registered for event", dto.NewRegistrationResponse(reg))
}

// Unregister handles DELETE /api/events/:id/register.
func (h *EventsHandler) Unregister(c *fiber.Ctx) error {
	if err := h.registrations.Unregister(c.UserContext(), auth.PrincipalFromContext(c), c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "registration cancelled", nil)
}

// Registrations handles GET /api/events/:id/registrations.
func (h *EventsHandler) Registrations(c *fiber.Ctx) error {
	list, err := h.registrations.ListForEvent(c.UserContext(), auth.PrincipalFromContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", dto.NewRegistrationResponses(list))
}

// MyRegistrations handles GET /api/events/user/registrations.
func (h *EventsHandler) MyRegistrations(c *fiber.Ctx) error {
	list, err := h.registrations.ListMine(c.UserContext(), auth.PrincipalFromContext(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", dto.NewRegistrationResponses(list))
}

// UpdateStatus handles PATCH /api/registrations/:id/status.
func (h *EventsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.RegistrationStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reg, err := h.registrations.UpdateStatus(c.UserContext(), auth.PrincipalFromContext(c), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "registration status updated", dto.NewRegistrationResponse(reg))
}

// UpdatePayment handles PATCH /api/registrations/:id/payment.
func (h *EventsHandler) UpdatePayment(c *fiber.Ctx) error {
	var req dto.PaymentStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reg, err := h.registrations.UpdatePayment(c.UserContext(), auth.PrincipalFromContext(c), c.Params("id"), req.PaymentStatus)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "payment status updated", dto.NewRegistrationResponse(reg))
}

// CompletePast handles POST /api/events/complete-past, running the sweep on demand.
func (h *EventsHandler) CompletePast(c *fiber.Ctx) error {
	n, err := h.events.CompletePastEvents(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{"completed": n, "at": time.Now().UTC()})
}
