package live

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
)

const (
	EventConnect      = "connect"
	EventNotification = "notification"
)

// Event is one named message written to a live stream.
// ID doubles as the resumption cursor for notification events.
type Event struct {
	ID   string          `json:"id,omitempty"`
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type connectPayload struct {
	StreamID     string `json:"streamId"`
	SubscriberID int64  `json:"subscriberId"`
	Message      string `json:"message"`
}

type notificationPayload struct {
	ID               int64                   `json:"id"`
	Category         domain.Category         `json:"category"`
	Type             domain.NotificationType `json:"type"`
	DisplayType      domain.DisplayType      `json:"displayType,omitempty"`
	Title            string                  `json:"title"`
	Content          string                  `json:"content"`
	TargetDomainType domain.TargetDomainType `json:"targetDomainType"`
	TargetDomainID   int64                   `json:"targetDomainId"`
	IsRead           bool                    `json:"isRead"`
	CreatedAt        time.Time               `json:"createdAt"`
}

// NotificationEvent serialises n into the live wire format.
func NotificationEvent(n *domain.Notification) (Event, error) {
	payload := notificationPayload{
		ID:               n.ID,
		Type:             n.Type,
		Title:            n.Title,
		Content:          n.Body,
		TargetDomainType: n.TargetDomainType,
		TargetDomainID:   n.TargetDomainID,
		IsRead:           n.IsRead,
		CreatedAt:        n.CreatedAt,
	}
	if spec, ok := n.Type.Spec(); ok {
		payload.Category = spec.Category
		payload.DisplayType = spec.Display
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: strconv.FormatInt(n.ID, 10), Name: EventNotification, Data: data}, nil
}

func connectEvent(s *Stream) Event {
	data, _ := json.Marshal(connectPayload{
		StreamID:     s.ID(),
		SubscriberID: s.SubscriberID(),
		Message:      "connected",
	})
	return Event{Name: EventConnect, Data: data}
}
