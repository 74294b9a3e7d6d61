package notification

import "context"

// PushMessage is one out-of-band delivery to one device token
type PushMessage struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushSender delivers push messages. Delivery is best-effort: a failure is
// logged and reported in the fanout result but never rolls back the in-app
// notification.
type PushSender interface {
	// Send delivers one message to one token
	Send(ctx context.Context, msg PushMessage) error
}
