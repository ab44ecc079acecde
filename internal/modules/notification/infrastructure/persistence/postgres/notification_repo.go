package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/database"
)

const notificationColumns = `id, recipient_id, type, title, body, arguments_json, target_domain_type, target_domain_id, is_read, created_at`

const insertNotification = `
	INSERT INTO notifications (recipient_id, type, title, body, arguments_json, target_domain_type, target_domain_id, is_read, created_at)
	VALUES (:recipient_id, :type, :title, :body, :arguments_json, :target_domain_type, :target_domain_id, :is_read, :created_at)
	RETURNING id, recipient_id
`

type PgNotificationRepository struct {
	db *sqlx.DB
}

func NewPgNotificationRepository(db *sqlx.DB) *PgNotificationRepository {
	return &PgNotificationRepository{db: db}
}

func (r *PgNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.CreateBatch(ctx, []*domain.Notification{n})
}

// CreateBatch inserts every row with a single multi-row INSERT and assigns
// the generated ids back onto the batch.
func (r *PgNotificationRepository) CreateBatch(ctx context.Context, batch []*domain.Notification) error {
	if len(batch) == 0 {
		return nil
	}
	now := time.Now()
	for _, n := range batch {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		if len(n.Arguments) == 0 {
			n.Arguments = []byte(`{}`)
		}
	}

	rows, err := sqlx.NamedQueryContext(ctx, database.ExecutorFrom(ctx, r.db), insertNotification, batch)
	if err != nil {
		return err
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var id, recipientID int64
		if err := rows.Scan(&id, &recipientID); err != nil {
			return err
		}
		if i >= len(batch) || batch[i].RecipientID != recipientID {
			return fmt.Errorf("insert notifications: returned row %d does not match batch order", i)
		}
		batch[i].ID = id
		i++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if i != len(batch) {
		return fmt.Errorf("insert notifications: expected %d ids, got %d", len(batch), i)
	}
	return nil
}

func (r *PgNotificationRepository) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	var n domain.Notification
	err := sqlx.GetContext(ctx, database.ExecutorFrom(ctx, r.db), &n, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByRecipient returns newest first. A nil types slice disables type filtering.
func (r *PgNotificationRepository) ListByRecipient(ctx context.Context, recipientID int64, types []domain.NotificationType, limit, offset int) ([]domain.Notification, error) {
	var (
		query string
		args  []interface{}
	)
	if types == nil {
		query = `
			SELECT ` + notificationColumns + ` FROM notifications
			WHERE recipient_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3
		`
		args = []interface{}{recipientID, limit, offset}
	} else {
		query = `
			SELECT ` + notificationColumns + ` FROM notifications
			WHERE recipient_id = $1 AND type = ANY($2)
			ORDER BY created_at DESC, id DESC
			LIMIT $3 OFFSET $4
		`
		args = []interface{}{recipientID, pq.Array(typeNames(types)), limit, offset}
	}

	var notifications []domain.Notification
	if err := sqlx.SelectContext(ctx, database.ExecutorFrom(ctx, r.db), &notifications, query, args...); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *PgNotificationRepository) CountByRecipient(ctx context.Context, recipientID int64, types []domain.NotificationType) (int, error) {
	var count int
	var err error
	if types == nil {
		err = sqlx.GetContext(ctx, database.ExecutorFrom(ctx, r.db), &count,
			`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`, recipientID)
	} else {
		err = sqlx.GetContext(ctx, database.ExecutorFrom(ctx, r.db), &count,
			`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND type = ANY($2)`, recipientID, pq.Array(typeNames(types)))
	}
	return count, err
}

func (r *PgNotificationRepository) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE recipient_id = $1 AND is_read = FALSE
	`
	var count int
	err := sqlx.GetContext(ctx, database.ExecutorFrom(ctx, r.db), &count, query, recipientID)
	return count, err
}

func (r *PgNotificationRepository) MarkAsRead(ctx context.Context, id int64) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1
	`
	result, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (r *PgNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID int64) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE recipient_id = $1 AND is_read = FALSE
	`
	result, err := database.ExecutorFrom(ctx, r.db).ExecContext(ctx, query, recipientID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func typeNames(types []domain.NotificationType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return names
}
