package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vivero/internal/auth"
	"vivero/internal/models"
	"vivero/internal/permissions"
)

// Store implements the auth, permissions and audit persistence interfaces
// over a single gorm connection.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the schema for every model the store owns.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Tenant{},
		&models.Role{},
		&models.User{},
		&models.UserPermission{},
		&models.RefreshToken{},
		&models.AuditLog{},
	)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User, seed *models.UserPermission) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return translate(err)
		}
		if seed != nil {
			seed.UserID = u.ID
			if err := tx.Create(seed).Error; err != nil {
				return translate(err)
			}
		}
		return nil
	})
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Save(u).Error)
}

func (s *Store) ListUsersByTenant(ctx context.Context, tenantID string) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at desc").Find(&users).Error
	return users, translate(err)
}

func (s *Store) FindTenantByID(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *Store) FindRoleByID(ctx context.Context, id string) (*models.Role, error) {
	var r models.Role
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var r models.Role
	if err := s.db.WithContext(ctx).First(&r, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (s *Store) CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	return translate(s.db.WithContext(ctx).Create(rt).Error)
}

func (s *Store) FindRefreshToken(ctx context.Context, jti string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := s.db.WithContext(ctx).First(&rt, "jti = ?", jti).Error; err != nil {
		return nil, translate(err)
	}
	return &rt, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, jti string) error {
	now := time.Now()
	return translate(s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked_at IS NULL", jti).
		Update("revoked_at", &now).Error)
}

func (s *Store) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	now := time.Now()
	return translate(s.db.WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", &now).Error)
}

func (s *Store) PermissionsForUser(ctx context.Context, userID string) ([]models.UserPermission, error) {
	var rows []models.UserPermission
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error
	return rows, translate(err)
}

func (s *Store) UpsertPermission(ctx context.Context, p *models.UserPermission) error {
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "table_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"can_create", "can_read", "can_update", "can_delete", "scope", "updated_at",
		}),
	}).Create(p).Error)
}

func (s *Store) DeletePermission(ctx context.Context, userID, tableName string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND table_name = ?", userID, tableName).
		Delete(&models.UserPermission{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return permissions.ErrNotFound
	}
	return nil
}

func (s *Store) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *Store) ListAuditLogsByUser(ctx context.Context, userID string, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").Limit(limit).Find(&logs).Error
	return logs, translate(err)
}

func (s *Store) ListAuditLogsByTenant(ctx context.Context, tenantID string, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at desc").Limit(limit).Find(&logs).Error
	return logs, translate(err)
}

// translate maps gorm errors to the domain sentinels. Requires the
// connection to be opened with TranslateError so unique violations surface
// as gorm.ErrDuplicatedKey.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return auth.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: duplicate key", auth.ErrConflict)
	default:
		return err
	}
}
