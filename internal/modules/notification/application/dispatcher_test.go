package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
)

type panickingChannel struct{}

func (panickingChannel) Send(context.Context, *domain.Notification) { panic("gateway exploded") }

func TestDispatcher_RoutesByPolicy(t *testing.T) {
	push, live := &channelSpy{}, &channelSpy{}
	channels := map[domain.ChannelPolicy]Channel{
		domain.ChannelPushOnly:  push,
		domain.ChannelInAppOnly: live,
	}
	d := NewDispatcher(channels, discard)

	// The table is copied at construction.
	delete(channels, domain.ChannelPushOnly)

	ctx := context.Background()
	d.Dispatch(ctx, &domain.Notification{ID: 1, RecipientID: 7, Type: domain.TypeReservationConfirmed})
	d.Dispatch(ctx, &domain.Notification{ID: 2, RecipientID: 7, Type: domain.TypeServiceNotice})
	d.Dispatch(ctx, &domain.Notification{ID: 3, RecipientID: 7, Type: domain.TypePartnerConnected})

	assert.Len(t, push.sent, 2)
	assert.Len(t, live.sent, 1)
	assert.Equal(t, int64(2), live.sent[0].ID)
}

func TestDispatcher_DropsUnroutable(t *testing.T) {
	live := &channelSpy{}
	d := NewDispatcher(map[domain.ChannelPolicy]Channel{domain.ChannelInAppOnly: live}, discard)

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), &domain.Notification{ID: 1, Type: "RETIRED_TYPE"})
		d.Dispatch(context.Background(), &domain.Notification{ID: 2, Type: domain.TypeReservationConfirmed})
	})
	assert.Empty(t, live.sent)
}

func TestDispatcher_ContainsChannelPanic(t *testing.T) {
	d := NewDispatcher(map[domain.ChannelPolicy]Channel{domain.ChannelPushOnly: panickingChannel{}}, nil)
	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), &domain.Notification{ID: 1, Type: domain.TypeReservationConfirmed})
	})
}
