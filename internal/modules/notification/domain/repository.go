package domain

import (
	"context"
)

// NotificationRepository is the durable notification store.
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	CreateBatch(ctx context.Context, batch []*Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListByRecipient(ctx context.Context, recipientID int64, types []NotificationType, limit, offset int) ([]Notification, error)
	CountByRecipient(ctx context.Context, recipientID int64, types []NotificationType) (int, error)
	UnreadCount(ctx context.Context, recipientID int64) (int, error)
	MarkAsRead(ctx context.Context, id int64) error
	MarkAllAsRead(ctx context.Context, recipientID int64) (int64, error)
}

// RecipientDirectory resolves partner links, device tokens and the recipient population.
type RecipientDirectory interface {
	// PartnerOf returns ErrPartnerNotFound when the member has no linked partner.
	PartnerOf(ctx context.Context, memberID int64) (int64, error)
	// ActiveDeviceToken returns ErrDeviceNotFound when the member has no active device.
	ActiveDeviceToken(ctx context.Context, memberID int64) (string, error)
	DeactivateDeviceToken(ctx context.Context, token string) error
	// RecipientPage returns up to limit member ids greater than afterID in ascending order.
	RecipientPage(ctx context.Context, afterID int64, limit int) ([]int64, error)
}
