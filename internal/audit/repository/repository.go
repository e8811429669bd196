package repository

import (
	"context"

	"social-auth/backend/internal/audit/domain"
)

// Repository persists the audit trail. Entries are append-only.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.AuditLog, error)
	// List returns entries matching filter, newest first.
	List(ctx context.Context, filter domain.Filter, limit, offset int32) ([]*domain.AuditLog, error)
	Create(ctx context.Context, a *domain.AuditLog) error
}
