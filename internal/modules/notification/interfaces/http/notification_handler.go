package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/weddly/wedding-planner/internal/gateway/middleware"
	"github.com/weddly/wedding-planner/internal/modules/notification/application"
	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/eventbus"
	"github.com/weddly/wedding-planner/internal/modules/notification/infrastructure/live"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/logging"
)

// BroadcastSubmitter queues a validated broadcast and returns it with its effective key.
type BroadcastSubmitter interface {
	Submit(ctx context.Context, req domain.BroadcastRequest) (domain.BroadcastRequest, error)
}

// EventPublisher accepts notification events from other processes.
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.NotificationEvent) error
}

type NotificationHandler struct {
	service    *application.NotificationService
	registry   *live.Registry
	broadcasts BroadcastSubmitter
	events     EventPublisher
	logger     *slog.Logger
}

func NewNotificationHandler(
	service *application.NotificationService,
	registry *live.Registry,
	broadcasts BroadcastSubmitter,
	events EventPublisher,
	logger *slog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		service:    service,
		registry:   registry,
		broadcasts: broadcasts,
		events:     events,
		logger:     logging.OrDefault(logger),
	}
}

// Subscribe opens the SSE live stream for the caller.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.MemberIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	live.ServeSSE(h.registry, w, r, memberID)
}

// SubscribeWs opens the WebSocket live stream for the caller.
func (h *NotificationHandler) SubscribeWs(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.MemberIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	live.ServeWs(h.registry, w, r, memberID)
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.MemberIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	page := 0
	size := defaultPageSize
	if p := q.Get("page"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = v
	}
	if s := q.Get("size"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "invalid size")
			return
		}
		size = min(v, maxPageSize)
	}

	result, err := h.service.ListForRecipient(r.Context(), memberID, q.Get("category"), page, size)
	if err != nil {
		h.fail(w, r, "list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(result))
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.MemberIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := h.service.UnreadCount(r.Context(), memberID)
	if err != nil {
		h.fail(w, r, "unread count", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.MemberIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	notificationID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || notificationID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.service.MarkRead(r.Context(), notificationID, memberID); err != nil {
		h.fail(w, r, "mark read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	memberID, ok := middleware.MemberIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	updated, err := h.service.MarkAllRead(r.Context(), memberID)
	if err != nil {
		h.fail(w, r, "mark all read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// Broadcast validates the request synchronously and runs it in the background.
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var body BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := domain.ParseNotificationType(body.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := h.broadcasts.Submit(r.Context(), domain.BroadcastRequest{
		Key:              body.Key,
		Type:             t,
		Arguments:        body.Arguments,
		TargetDomainType: domain.TargetDomainType(body.TargetDomainType),
		TargetDomainID:   body.TargetDomainID,
	})
	if err != nil {
		h.fail(w, r, "broadcast", err)
		return
	}
	writeJSON(w, http.StatusAccepted, BroadcastAccepted{Key: req.Key})
}

// PublishEvent ingests an event raised by a collaborator in another process.
// There is no caller transaction, so dispatch is scheduled immediately.
func (h *NotificationHandler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	var evt domain.NotificationEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if evt.OccurredAt.IsZero() {
		fresh := domain.NewNotificationEvent(evt.Initiator.ID, evt.Type, evt.Arguments, evt.TargetDomainType, evt.TargetDomainID)
		if evt.ID != uuid.Nil {
			fresh.ID = evt.ID
		}
		evt = fresh
	}

	if err := h.events.Publish(r.Context(), evt); err != nil {
		if errors.Is(err, eventbus.ErrStopped) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": evt.ID.String()})
}

func (h *NotificationHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotificationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotBroadcastable), errors.Is(err, domain.ErrUnknownNotificationType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicateBroadcast):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrBroadcastQueueFull), errors.Is(err, application.ErrBroadcastWorkerStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
