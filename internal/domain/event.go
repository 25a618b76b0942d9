package domain

import "time"

const (
	EventOrderCreated   = "order.created"
	EventOrderSent      = "order.sent"
	EventOrderDelivered = "order.delivered"
)

// OrderEvent is the lifecycle notification published after a successful
// create or advance. The order snapshot is the post-transition state.
type OrderEvent struct {
	Event string    `json:"event"`
	Order Order     `json:"order"`
	At    time.Time `json:"at"`
}
