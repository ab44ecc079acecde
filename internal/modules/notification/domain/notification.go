package domain

import (
	"errors"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TargetDomainType names the business resource a notification deep-links to.
type TargetDomainType string

const (
	TargetReservation TargetDomainType = "RESERVATION"
	TargetContract    TargetDomainType = "CONTRACT"
	TargetCalendar    TargetDomainType = "CALENDAR"
	TargetVendor      TargetDomainType = "VENDOR"
	TargetReview      TargetDomainType = "REVIEW"
	TargetMember      TargetDomainType = "MEMBER"
	TargetNotice      TargetDomainType = "NOTICE"
)

// Notification is one persisted (event, recipient) record.
type Notification struct {
	ID               int64            `json:"id" db:"id"`
	RecipientID      int64            `json:"recipient_id" db:"recipient_id"`
	Type             NotificationType `json:"type" db:"type"`
	Title            string           `json:"title" db:"title"`
	Body             string           `json:"body" db:"body"`
	Arguments        types.JSONText   `json:"arguments" db:"arguments_json"`
	TargetDomainType TargetDomainType `json:"target_domain_type" db:"target_domain_type"`
	TargetDomainID   int64            `json:"target_domain_id" db:"target_domain_id"`
	IsRead           bool             `json:"is_read" db:"is_read"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// Channel returns the delivery policy of the notification's type.
func (n *Notification) Channel() (ChannelPolicy, bool) {
	spec, ok := n.Type.Spec()
	if !ok {
		return "", false
	}
	return spec.Channel, true
}

// Page is a slice of a recipient's notifications.
type Page struct {
	Items         []Notification
	Page          int
	Size          int
	TotalElements int
}

// HasNext reports whether another page follows.
func (p Page) HasNext() bool {
	if p.Size <= 0 {
		return false
	}
	return (p.Page+1)*p.Size < p.TotalElements
}

var (
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrForbidden               = errors.New("notification belongs to another recipient")
	ErrNotBroadcastable        = errors.New("notification type is not broadcast eligible")
	ErrDuplicateBroadcast      = errors.New("broadcast already issued")
	ErrUnknownNotificationType = errors.New("unknown notification type")
	ErrDeviceNotFound          = errors.New("no active push device")
	ErrPartnerNotFound         = errors.New("no linked partner")
)
