package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vivero/internal/models"
)

// Actions recorded in the append-only log.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionLogin  = "LOGIN"
	ActionLogout = "LOGOUT"
	ActionAccess = "ACCESS"
)

type Store interface {
	AppendAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogsByUser(ctx context.Context, userID string, limit int) ([]models.AuditLog, error)
	ListAuditLogsByTenant(ctx context.Context, tenantID string, limit int) ([]models.AuditLog, error)
}

// Entry is one auditable event.
type Entry struct {
	TenantID   string
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	IPAddress  string
	UserAgent  string
}

// Recorder appends audit entries. Recording is best-effort: a failed append
// is logged and never fails the request that produced it.
type Recorder struct {
	store Store
	lg    *zap.SugaredLogger
}

func NewRecorder(store Store, lg *zap.SugaredLogger) *Recorder {
	return &Recorder{store: store, lg: lg}
}

func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.store == nil {
		return
	}
	entry := &models.AuditLog{
		TenantID:   e.TenantID,
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		CreatedAt:  time.Now(),
	}
	if err := r.store.AppendAuditLog(ctx, entry); err != nil {
		r.lg.Warnw("audit append failed", "action", e.Action, "error", err)
	}
}

func (r *Recorder) ListByUser(ctx context.Context, userID string, limit int) ([]models.AuditLog, error) {
	return r.store.ListAuditLogsByUser(ctx, userID, limit)
}

func (r *Recorder) ListByTenant(ctx context.Context, tenantID string, limit int) ([]models.AuditLog, error) {
	return r.store.ListAuditLogsByTenant(ctx, tenantID, limit)
}
