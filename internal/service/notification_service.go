package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/event-service/internal/config"
	"github.com/spec-kit/event-service/internal/events"
)

// Notification channels.
const (
	ChannelEmail   = "email"
	ChannelWebhook = "webhook"
)

// NotificationService turns committed domain events into attendee emails and
// webhook calls. Delivery is logged only; no mail or HTTP client is wired.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("notifications"),
		cfg:        cfg,
	}
}

// emailSubjects lists the events attendees hear about directly.
var emailSubjects = map[events.EventType]string{
	events.RegistrationCreated:        "You're registered",
	events.RegistrationCancelled:      "Your registration was cancelled",
	events.RegistrationPaymentChanged: "Payment update for your registration",
	events.UserRegistered:             "Welcome aboard",
}

// RegisterHandlers subscribes to every domain event. All of them reach the
// webhook; the ones in emailSubjects also produce an email.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, t := range []events.EventType{
		events.EventCreated,
		events.EventUpdated,
		events.EventDeleted,
		events.EventsImported,
		events.RegistrationCreated,
		events.RegistrationCancelled,
		events.RegistrationStatusChanged,
		events.RegistrationPaymentChanged,
		events.UserRegistered,
		events.UserDeleted,
		events.TableIngested,
		events.TableDropped,
	} {
		n.dispatcher.Subscribe(t, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	if subject, ok := emailSubjects[event.Type]; ok {
		n.email(ctx, recipientOf(event), subject, event)
	}
	n.webhook(ctx, event)
	return nil
}

// recipientOf picks the account an email is addressed to.
func recipientOf(event events.Event) string {
	if p, ok := event.Payload.(events.RegistrationPayload); ok && p.UserID != "" {
		return p.UserID
	}
	if event.Type == events.UserRegistered {
		return event.Subject
	}
	return event.ActorID
}

func (n *NotificationService) email(_ context.Context, userID, subject string, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || userID == "" {
		return
	}
	n.logger.Info("notification sent",
		zap.String("channel", ChannelEmail),
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to_user", userID),
		zap.String("subject", subject),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) webhook(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Info("notification sent",
		zap.String("channel", ChannelWebhook),
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("subject", event.Subject),
		zap.Any("payload", event.Payload))
}
