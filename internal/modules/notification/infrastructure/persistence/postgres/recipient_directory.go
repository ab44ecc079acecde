package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/weddly/wedding-planner/internal/modules/notification/domain"
	"github.com/weddly/wedding-planner/internal/shared/infrastructure/database"
)

// PgRecipientDirectory reads the member and push device tables owned by the
// member module.
type PgRecipientDirectory struct {
	db *sqlx.DB
}

func NewPgRecipientDirectory(db *sqlx.DB) *PgRecipientDirectory {
	return &PgRecipientDirectory{db: db}
}

func (d *PgRecipientDirectory) PartnerOf(ctx context.Context, memberID int64) (int64, error) {
	query := `
		SELECT partner_id FROM members
		WHERE id = $1 AND deleted_at IS NULL
	`
	var partnerID sql.NullInt64
	err := sqlx.GetContext(ctx, database.ExecutorFrom(ctx, d.db), &partnerID, query, memberID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !partnerID.Valid) {
		return 0, domain.ErrPartnerNotFound
	}
	if err != nil {
		return 0, err
	}
	return partnerID.Int64, nil
}

func (d *PgRecipientDirectory) ActiveDeviceToken(ctx context.Context, memberID int64) (string, error) {
	query := `
		SELECT token FROM push_devices
		WHERE member_id = $1 AND active = TRUE
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var token string
	err := sqlx.GetContext(ctx, database.ExecutorFrom(ctx, d.db), &token, query, memberID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrDeviceNotFound
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (d *PgRecipientDirectory) DeactivateDeviceToken(ctx context.Context, token string) error {
	query := `
		UPDATE push_devices
		SET active = FALSE, updated_at = NOW()
		WHERE token = $1
	`
	_, err := database.ExecutorFrom(ctx, d.db).ExecContext(ctx, query, token)
	return err
}

func (d *PgRecipientDirectory) RecipientPage(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	query := `
		SELECT id FROM members
		WHERE id > $1 AND deleted_at IS NULL
		ORDER BY id
		LIMIT $2
	`
	ids := make([]int64, 0, limit)
	if err := sqlx.SelectContext(ctx, database.ExecutorFrom(ctx, d.db), &ids, query, afterID, limit); err != nil {
		return nil, err
	}
	return ids, nil
}
