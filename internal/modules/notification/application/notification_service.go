package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/metrics"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/database"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

const (
	DefaultBroadcastPageSize = 100
	// MaxBroadcastPageSize keeps one page's multi-row insert under the
	// Postgres limit of 65535 bind parameters.
	MaxBroadcastPageSize = 5000
)

// Transactor runs fn inside one database transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NotificationDispatcher hands a persisted notification to its channel.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n *domain.Notification)
}

// BroadcastGuard rejects a broadcast key that was already issued.
type BroadcastGuard interface {
	Claim(ctx context.Context, key string) error
	Release(ctx context.Context, key string) error
}

type NotificationService struct {
	repo       domain.NotificationRepository
	directory  domain.RecipientDirectory
	tx         Transactor
	dispatcher NotificationDispatcher
	guard      BroadcastGuard
	pageSize   int
	logger     *slog.Logger
}

func NewNotificationService(
	repo domain.NotificationRepository,
	directory domain.RecipientDirectory,
	tx Transactor,
	dispatcher NotificationDispatcher,
	guard BroadcastGuard,
	pageSize int,
	logger *slog.Logger,
) *NotificationService {
	switch {
	case pageSize <= 0:
		pageSize = DefaultBroadcastPageSize
	case pageSize > MaxBroadcastPageSize:
		pageSize = MaxBroadcastPageSize
	}
	return &NotificationService{
		repo:       repo,
		directory:  directory,
		tx:         tx,
		dispatcher: dispatcher,
		guard:      guard,
		pageSize:   pageSize,
		logger:     logging.OrDefault(logger),
	}
}

// afterCommit defers fn until the transaction carried by ctx commits, or runs
// it now when there is none. fn gets a context without the transaction.
func afterCommit(ctx context.Context, fn func(ctx context.Context)) {
	detached := database.WithoutTx(ctx)
	if !database.AfterCommit(ctx, func() { fn(detached) }) {
		fn(detached)
	}
}

// HandleEvent is the event bus handler.
func (s *NotificationService) HandleEvent(ctx context.Context, evt domain.NotificationEvent) error {
	_, err := s.CreateForAction(ctx, evt)
	return err
}

// CreateForAction persists the initiator's notification and, for couple-shared
// types, an independent copy for the linked partner. Each row is dispatched
// once the rows are committed, initiator first.
func (s *NotificationService) CreateForAction(ctx context.Context, evt domain.NotificationEvent) ([]*domain.Notification, error) {
	if err := evt.Validate(); err != nil {
		return nil, err
	}
	n, err := domain.NewNotification(evt.Initiator.ID, evt.Type, evt.Arguments, evt.TargetDomainType, evt.TargetDomainID)
	if err != nil {
		return nil, err
	}
	created := []*domain.Notification{n}

	if spec, _ := evt.Type.Spec(); spec.CoupleShared {
		if partnerID, ok := s.partnerOf(ctx, evt); ok {
			created = append(created, n.ForRecipient(partnerID))
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, row := range created {
			if err := s.repo.Create(ctx, row); err != nil {
				return fmt.Errorf("persist notification for %d: %w", row.RecipientID, err)
			}
		}
		afterCommit(ctx, func(ctx context.Context) {
			for _, row := range created {
				metrics.NotificationsCreated.WithLabelValues(string(row.Type)).Inc()
				s.dispatcher.Dispatch(ctx, row)
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// partnerOf reports the initiator's partner. Missing links and lookup
// failures both mean no partner copy.
func (s *NotificationService) partnerOf(ctx context.Context, evt domain.NotificationEvent) (int64, bool) {
	partnerID, err := s.directory.PartnerOf(ctx, evt.Initiator.ID)
	switch {
	case errors.Is(err, domain.ErrPartnerNotFound):
		return 0, false
	case err != nil:
		s.logger.Warn("partner lookup failed, partner copy skipped",
			"event_id", evt.ID, "initiator_id", evt.Initiator.ID, "error", err)
		return 0, false
	case partnerID <= 0 || partnerID == evt.Initiator.ID:
		return 0, false
	}
	return partnerID, true
}

// PrepareBroadcast validates req and claims its key. An empty key is replaced
// by a generated one.
func (s *NotificationService) PrepareBroadcast(ctx context.Context, req domain.BroadcastRequest) (domain.BroadcastRequest, error) {
	spec, ok := req.Type.Spec()
	if !ok {
		return req, fmt.Errorf("%w: %q", domain.ErrUnknownNotificationType, req.Type)
	}
	if !spec.BroadcastEligible {
		return req, fmt.Errorf("%w: %s", domain.ErrNotBroadcastable, req.Type)
	}
	if req.Key == "" {
		req.Key = uuid.NewString()
	}
	if err := s.guard.Claim(ctx, req.Key); err != nil {
		return req, err
	}
	return req, nil
}

// CreateBroadcast validates, claims and runs a broadcast in the caller's goroutine.
func (s *NotificationService) CreateBroadcast(ctx context.Context, req domain.BroadcastRequest) (domain.BroadcastResult, error) {
	req, err := s.PrepareBroadcast(ctx, req)
	if err != nil {
		return domain.BroadcastResult{Key: req.Key}, err
	}
	return s.RunBroadcast(ctx, req)
}

// RunBroadcast creates one notification per recipient, a page at a time.
// Each page is persisted in its own transaction and dispatched in page order
// before the next page is read; the page buffer is reused so memory stays
// bounded by the page size. A transaction carried by ctx is not joined.
func (s *NotificationService) RunBroadcast(ctx context.Context, req domain.BroadcastRequest) (domain.BroadcastResult, error) {
	ctx = database.WithoutTx(ctx)
	result := domain.BroadcastResult{Key: req.Key}
	log := s.logger.With("broadcast_key", req.Key, "type", req.Type)

	template, err := domain.NewNotification(0, req.Type, req.Arguments, req.TargetDomainType, req.TargetDomainID)
	if err != nil {
		return result, err
	}

	batch := make([]*domain.Notification, 0, s.pageSize)
	var afterID int64
	for {
		if err := ctx.Err(); err != nil {
			return result, s.abortBroadcast(req.Key, result, err)
		}

		ids, err := s.directory.RecipientPage(ctx, afterID, s.pageSize)
		if err != nil {
			return result, s.abortBroadcast(req.Key, result, fmt.Errorf("read recipient page %d: %w", result.Pages+1, err))
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			batch = append(batch, template.ForRecipient(id))
		}
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			return s.repo.CreateBatch(ctx, batch)
		})
		if err != nil {
			return result, s.abortBroadcast(req.Key, result, fmt.Errorf("persist broadcast page %d: %w", result.Pages+1, err))
		}

		// The page transaction is committed here, so its rows are dispatched
		// before the buffer is reused.
		metrics.NotificationsCreated.WithLabelValues(string(req.Type)).Add(float64(len(batch)))
		for _, n := range batch {
			s.dispatcher.Dispatch(ctx, n)
			result.Dispatched++
		}

		result.Pages++
		result.Created += len(batch)
		metrics.BroadcastPages.Inc()
		log.Debug("broadcast page delivered", "page", result.Pages, "size", len(batch))

		afterID = ids[len(ids)-1]
		clear(batch)
		batch = batch[:0]
		if len(ids) < s.pageSize {
			break
		}
	}

	log.Info("broadcast finished", "pages", result.Pages, "created", result.Created, "dispatched", result.Dispatched)
	return result, nil
}

// abortBroadcast frees the key when nothing was written yet, so the same
// broadcast may be retried.
func (s *NotificationService) abortBroadcast(key string, result domain.BroadcastResult, err error) error {
	if result.Created == 0 {
		if rerr := s.guard.Release(context.Background(), key); rerr != nil {
			s.logger.Warn("broadcast key release failed", "broadcast_key", key, "error", rerr)
		}
	}
	s.logger.Error("broadcast aborted", "broadcast_key", key, "pages", result.Pages, "created", result.Created, "error", err)
	return err
}

// ListForRecipient returns one page of the recipient's notifications, newest
// first. A category matching no type yields an empty page.
func (s *NotificationService) ListForRecipient(ctx context.Context, recipientID int64, category string, page, size int) (domain.Page, error) {
	result := domain.Page{Items: []domain.Notification{}, Page: page, Size: size}

	types, filtered := domain.TypesInCategory(category)
	if filtered && len(types) == 0 {
		return result, nil
	}

	total, err := s.repo.CountByRecipient(ctx, recipientID, types)
	if err != nil {
		return result, err
	}
	result.TotalElements = total
	if total == 0 || page*size >= total {
		return result, nil
	}

	items, err := s.repo.ListByRecipient(ctx, recipientID, types, size, page*size)
	if err != nil {
		return result, err
	}
	if items != nil {
		result.Items = items
	}
	return result, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

// MarkRead flips a notification to read. Only its recipient may do so;
// marking an already read notification succeeds without a write.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, requesterID int64) error {
	n, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.RecipientID != requesterID {
		return domain.ErrForbidden
	}
	if n.IsRead {
		return nil
	}
	return s.repo.MarkAsRead(ctx, notificationID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, recipientID)
}
