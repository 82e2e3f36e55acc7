package realtime

import "time"

// Notification is the payload of a "notification" message.
type Notification struct {
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier pushes notifications through a Hub.
type Notifier struct {
	hub *Hub
}

func NewNotifier(h *Hub) *Notifier { return &Notifier{hub: h} }

// Build wraps a notification in the message envelope. kind defaults to "info".
func (n *Notifier) Build(title, message, kind string) Message {
	if kind == "" {
		kind = "info"
	}
	now := n.hub.now().UTC()
	return Message{
		Type:      "notification",
		Data:      Notification{Title: title, Message: message, Type: kind, Timestamp: now},
		Timestamp: now,
	}
}

// NotifyUser reports how many of the user's connections were reached.
func (n *Notifier) NotifyUser(userID, title, message, kind string) int {
	return n.hub.SendToUser(userID, n.Build(title, message, kind))
}

func (n *Notifier) NotifyAll(title, message, kind string) int {
	return n.hub.Broadcast(n.Build(title, message, kind))
}
