package permissions

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"vivero/internal/models"
)

const cacheSize = 4096

// Store is the persistence surface for the capability matrix.
type Store interface {
	PermissionsForUser(ctx context.Context, userID string) ([]models.UserPermission, error)
	// UpsertPermission creates or replaces the (user, table) row.
	UpsertPermission(ctx context.Context, p *models.UserPermission) error
	// DeletePermission removes the (user, table) row, ErrNotFound if absent.
	DeletePermission(ctx context.Context, userID, tableName string) error
}

// Service answers "can user U perform action A on table T at scope S" over a
// short-TTL cached permission map. Grants and revokes invalidate the cached
// map immediately, so a local grant/revoke is observed by the next check.
type Service struct {
	store Store
	cache *expirable.LRU[string, Map]
	lg    *zap.SugaredLogger
}

func NewService(store Store, cacheTTL time.Duration, lg *zap.SugaredLogger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("permissions: store is required")
	}
	var cache *expirable.LRU[string, Map]
	if cacheTTL > 0 {
		cache = expirable.NewLRU[string, Map](cacheSize, nil, cacheTTL)
	}
	return &Service{store: store, cache: cache, lg: lg}, nil
}

// UserPermissions loads the user's full permission map, from cache when warm.
func (s *Service) UserPermissions(ctx context.Context, userID string) (Map, error) {
	if s.cache != nil {
		if m, ok := s.cache.Get(userID); ok {
			return m, nil
		}
	}
	rows, err := s.store.PermissionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	m := make(Map, len(rows))
	for _, r := range rows {
		m[r.TableName] = Permission{
			CanCreate: r.CanCreate,
			CanRead:   r.CanRead,
			CanUpdate: r.CanUpdate,
			CanDelete: r.CanDelete,
			Scope:     Scope(r.Scope),
		}
	}
	if s.cache != nil {
		s.cache.Add(userID, m)
	}
	return m, nil
}

// CanPerform decides the table-level check. A missing row denies; the action
// flag must be set; a required scope must be satisfied by the stored one.
func (s *Service) CanPerform(ctx context.Context, userID string, req Requirement) (bool, error) {
	if !validTable(req.Table) {
		return false, fmt.Errorf("%w: %s", ErrInvalidTable, req.Table)
	}
	perms, err := s.UserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	p, ok := perms[req.Table]
	if !ok {
		return false, nil
	}
	if !p.allows(req.Action) {
		return false, nil
	}
	return p.Scope.satisfies(req.Scope), nil
}

// CanAccessRecord is the row-level variant: ALL reaches any record, OWN only
// the caller's own, NONE nothing. The action flag is checked first, so a
// cleared flag denies even at ALL scope.
func (s *Service) CanAccessRecord(ctx context.Context, userID, tableName string, action Action, recordOwnerID string) (bool, error) {
	if !validTable(tableName) {
		return false, fmt.Errorf("%w: %s", ErrInvalidTable, tableName)
	}
	perms, err := s.UserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	p, ok := perms[tableName]
	if !ok || !p.allows(action) {
		return false, nil
	}
	switch p.Scope {
	case ScopeAll:
		return true, nil
	case ScopeOwn:
		return recordOwnerID == userID, nil
	default:
		return false, nil
	}
}

// Grant upserts the (user, table) capability row and drops the user's cached
// map so the grant is visible to the next check.
func (s *Service) Grant(ctx context.Context, userID, tableName string, p Permission) error {
	if !validTable(tableName) {
		return fmt.Errorf("%w: %s", ErrInvalidTable, tableName)
	}
	if p.Scope == "" {
		p.Scope = ScopeNone
	}
	if !ValidScope(p.Scope) {
		return fmt.Errorf("%w: %s", ErrInvalidScope, p.Scope)
	}
	now := time.Now()
	row := &models.UserPermission{
		UserID:    userID,
		TableName: tableName,
		CanCreate: p.CanCreate,
		CanRead:   p.CanRead,
		CanUpdate: p.CanUpdate,
		CanDelete: p.CanDelete,
		Scope:     string(p.Scope),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.UpsertPermission(ctx, row); err != nil {
		return err
	}
	s.Invalidate(userID)
	s.lg.Debugw("permission granted", "user_id", userID, "table", tableName, "scope", p.Scope)
	return nil
}

// Revoke deletes the (user, table) row and invalidates the cached map.
func (s *Service) Revoke(ctx context.Context, userID, tableName string) error {
	if !validTable(tableName) {
		return fmt.Errorf("%w: %s", ErrInvalidTable, tableName)
	}
	if err := s.store.DeletePermission(ctx, userID, tableName); err != nil {
		return err
	}
	s.Invalidate(userID)
	s.lg.Debugw("permission revoked", "user_id", userID, "table", tableName)
	return nil
}

// Invalidate drops the cached permission map for a user.
func (s *Service) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.Remove(userID)
	}
}
