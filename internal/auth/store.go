package auth

import (
	"context"

	"vivero/internal/models"
)

// UserStore is the persistence surface the authentication flow needs.
// Implementations return ErrNotFound for missing rows and ErrConflict for
// unique violations.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	// CreateUser persists the user and, when seed is non-nil, the seed
	// permission in the same transaction. If seeding fails the user
	// creation fails with it.
	CreateUser(ctx context.Context, u *models.User, seed *models.UserPermission) error
	UpdateUser(ctx context.Context, u *models.User) error
	ListUsersByTenant(ctx context.Context, tenantID string) ([]models.User, error)
}

type TenantStore interface {
	FindTenantByID(ctx context.Context, id string) (*models.Tenant, error)
}

type RoleStore interface {
	FindRoleByID(ctx context.Context, id string) (*models.Role, error)
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
}

// RefreshTokenStore is the persisted refresh-token registry used for
// rotation and logout.
type RefreshTokenStore interface {
	CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, jti string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, jti string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// Store bundles everything the auth service persists through.
type Store interface {
	UserStore
	TenantStore
	RoleStore
	RefreshTokenStore
}
