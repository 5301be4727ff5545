package model

// Notification events.
const (
	EventBookingRequested = "booking.requested"
	EventBookingConfirmed = "booking.confirmed"
)

// Notification audiences.
const (
	AudienceCustomer = "customer"
	AudienceStaff    = "staff"
)

// Notification is one outbound message about a booking.  Delivery is the
// consumer's concern; the booking engine only describes what happened.
type Notification struct {
	Event          string  `json:"event"`
	Audience       string  `json:"audience"`
	RecipientEmail string  `json:"recipient_email,omitempty"`
	RecipientName  string  `json:"recipient_name,omitempty"`
	Subject        string  `json:"subject"`
	Booking        Booking `json:"booking"`
}
