package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubscriberRef identifies a notification recipient.
type SubscriberRef struct {
	ID int64 `json:"id"`
}

// NotificationEvent is raised by business collaborators inside their transaction
// and consumed by the notification service once that transaction commits.
type NotificationEvent struct {
	ID               uuid.UUID         `json:"id"`
	Initiator        SubscriberRef     `json:"initiator"`
	Type             NotificationType  `json:"type"`
	Arguments        map[string]string `json:"arguments"`
	TargetDomainType TargetDomainType  `json:"targetDomainType"`
	TargetDomainID   int64             `json:"targetDomainId"`
	OccurredAt       time.Time         `json:"occurredAt"`
}

// NewNotificationEvent stamps an event with an id and occurrence time.
func NewNotificationEvent(initiatorID int64, t NotificationType, args map[string]string, targetType TargetDomainType, targetID int64) NotificationEvent {
	return NotificationEvent{
		ID:               uuid.New(),
		Initiator:        SubscriberRef{ID: initiatorID},
		Type:             t,
		Arguments:        args,
		TargetDomainType: targetType,
		TargetDomainID:   targetID,
		OccurredAt:       time.Now(),
	}
}

// Validate checks the fields every producer must set.
func (e NotificationEvent) Validate() error {
	if e.Initiator.ID <= 0 {
		return fmt.Errorf("initiator is required")
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownNotificationType, e.Type)
	}
	return nil
}

// BroadcastRequest asks for one notification per recipient in the whole population.
type BroadcastRequest struct {
	Key              string            `json:"key"`
	Type             NotificationType  `json:"type"`
	Arguments        map[string]string `json:"arguments"`
	TargetDomainType TargetDomainType  `json:"targetDomainType"`
	TargetDomainID   int64             `json:"targetDomainId"`
}

// BroadcastResult summarises a finished broadcast.
type BroadcastResult struct {
	Key        string
	Pages      int
	Created    int
	Dispatched int
}

func encodeArguments(args map[string]string) ([]byte, error) {
	if args == nil {
		args = map[string]string{}
	}
	return json.Marshal(args)
}
