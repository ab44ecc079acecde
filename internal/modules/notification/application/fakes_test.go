package application

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// memStore is an in-memory notification store and recipient directory.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	rows     map[int64]*domain.Notification
	partners map[int64]int64
	members  []int64
	devices  map[int64]string

	batchSizes     []int
	partnerCalls   int
	markCalls      int
	listCalls      int
	createErr      error
	partnerErr     error
	pageErr        error
	createBatchErr error
}

func newMemStore() *memStore {
	return &memStore{
		rows:     map[int64]*domain.Notification{},
		partners: map[int64]int64{},
		devices:  map[int64]string{},
	}
}

func (m *memStore) withMembers(n int) *memStore {
	for i := 1; i <= n; i++ {
		m.members = append(m.members, int64(i))
	}
	return m
}

func (m *memStore) Create(ctx context.Context, n *domain.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	return m.CreateBatch(ctx, []*domain.Notification{n})
}

func (m *memStore) CreateBatch(_ context.Context, batch []*domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createBatchErr != nil {
		return m.createBatchErr
	}
	m.batchSizes = append(m.batchSizes, len(batch))
	for _, n := range batch {
		m.nextID++
		n.ID = m.nextID
		stored := *n
		m.rows[n.ID] = &stored
	}
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotificationNotFound
	}
	c := *n
	return &c, nil
}

func (m *memStore) filter(recipientID int64, types []domain.NotificationType) []domain.Notification {
	var out []domain.Notification
	for _, n := range m.rows {
		if n.RecipientID != recipientID {
			continue
		}
		if types != nil && !slices.Contains(types, n.Type) {
			continue
		}
		out = append(out, *n)
	}
	slices.SortFunc(out, func(a, b domain.Notification) int { return int(b.ID - a.ID) })
	return out
}

func (m *memStore) ListByRecipient(_ context.Context, recipientID int64, types []domain.NotificationType, limit, offset int) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	all := m.filter(recipientID, types)
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (m *memStore) CountByRecipient(_ context.Context, recipientID int64, types []domain.NotificationType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filter(recipientID, types)), nil
}

func (m *memStore) UnreadCount(_ context.Context, recipientID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.filter(recipientID, nil) {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkAsRead(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCalls++
	n, ok := m.rows[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (m *memStore) MarkAllAsRead(_ context.Context, recipientID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	for _, n := range m.rows {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (m *memStore) PartnerOf(_ context.Context, memberID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partnerCalls++
	if m.partnerErr != nil {
		return 0, m.partnerErr
	}
	partner, ok := m.partners[memberID]
	if !ok {
		return 0, domain.ErrPartnerNotFound
	}
	return partner, nil
}

func (m *memStore) ActiveDeviceToken(_ context.Context, memberID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.devices[memberID]
	if !ok {
		return "", domain.ErrDeviceNotFound
	}
	return token, nil
}

func (m *memStore) DeactivateDeviceToken(context.Context, string) error { return nil }

func (m *memStore) RecipientPage(_ context.Context, afterID int64, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pageErr != nil {
		return nil, m.pageErr
	}
	var ids []int64
	for _, id := range m.members {
		if id > afterID && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// passThroughTx runs fn without a transaction.
type passThroughTx struct{}

func (passThroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// channelSpy records what reached a channel.
type channelSpy struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (c *channelSpy) Send(_ context.Context, n *domain.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, *n)
}

func (c *channelSpy) Dispatch(ctx context.Context, n *domain.Notification) { c.Send(ctx, n) }

func (c *channelSpy) recipients() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, len(c.sent))
	for i, n := range c.sent {
		ids[i] = n.RecipientID
	}
	return ids
}

type guardStub struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func newGuardStub() *guardStub { return &guardStub{claimed: map[string]bool{}} }

func (g *guardStub) Claim(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	if g.claimed[key] {
		return domain.ErrDuplicateBroadcast
	}
	g.claimed[key] = true
	return nil
}

func (g *guardStub) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, key)
	return nil
}

func (g *guardStub) isClaimed(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.claimed[key]
}
