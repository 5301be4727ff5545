// Package queue carries booking notifications over RabbitMQ: a publisher
// used by the reservation engine and a consumer that records deliveries.
package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmars319/Bow-Wows-Dog-Spa/internal/model"
)

// NotificationMessage is the JSON body published for each notification.
type NotificationMessage struct {
	MessageID  string    `json:"message_id"`
	OccurredAt time.Time `json:"occurred_at"`
	model.Notification
}

// NewMessage wraps n with a fresh id.
func NewMessage(n model.Notification, at time.Time) NotificationMessage {
	return NotificationMessage{
		MessageID:    uuid.NewString(),
		OccurredAt:   at.UTC(),
		Notification: n,
	}
}

// Line renders the message as one human-readable log line.
func (m NotificationMessage) Line() string {
	b := m.Booking
	services := "[]"
	if len(b.Services) > 0 {
		services = "[" + strings.Join(b.Services, ",") + "]"
	}
	recipient := m.RecipientEmail
	if recipient == "" {
		recipient = "staff"
	}
	return fmt.Sprintf("[%s] %s | audience=%s | to=%s | subject=%q | booking_id=%d | date=%s | time=%s | status=%s | customer=%q | services=%s\n",
		m.OccurredAt.Format(time.RFC3339), m.Event, m.Audience, recipient, m.Subject,
		b.ID, b.Date, b.Time.Label(), b.Status, b.CustomerName, services)
}
