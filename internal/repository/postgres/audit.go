package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
	"github.com/jwalitptl/vaccine-clinic-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
        INSERT INTO audit_logs (
            id, actor_id, actor_role, action, entity_type, entity_id,
            result, reason, metadata, request_id, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.ActorID,
		log.ActorRole,
		log.Action,
		log.EntityType,
		log.EntityID,
		log.Result,
		log.Reason,
		log.Metadata,
		log.RequestID,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, error) {
	query := `
        SELECT id, actor_id, actor_role, action, entity_type, entity_id,
               result, reason, metadata, request_id, created_at
        FROM audit_logs WHERE 1=1
    `
	var args []interface{}

	if filters == nil {
		filters = &model.AuditFilters{}
	}
	if filters.ActorID != uuid.Nil {
		args = append(args, filters.ActorID)
		query += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	if filters.EntityType != "" {
		args = append(args, filters.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filters.EntityID != uuid.Nil {
		args = append(args, filters.EntityID)
		query += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	if !filters.Since.IsZero() {
		args = append(args, filters.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}

	p := filters.Pagination.Normalize()
	args = append(args, p.PageSize, filters.Pagination.Offset())
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var logs []*model.AuditLog
	if err := r.GetDB().SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}

	return logs, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM audit_logs WHERE created_at < $1`

	result, err := r.GetDB().ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}

	return result.RowsAffected()
}
