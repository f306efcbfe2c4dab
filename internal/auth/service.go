package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vivero/internal/models"
)

const defaultRoleName = "User"

// SeedPermissionTable is the table a freshly registered user gets read/OWN
// access to, created atomically with the user row.
const SeedPermissionTable = "users"

// Service orchestrates registration, login, token refresh and logout.
type Service struct {
	store      Store
	tokens     *TokenIssuer
	bcryptCost int
	lg         *zap.SugaredLogger
	now        func() time.Time
}

func NewService(store Store, tokens *TokenIssuer, bcryptCost int, lg *zap.SugaredLogger) (*Service, error) {
	if store == nil || tokens == nil {
		return nil, fmt.Errorf("auth: store and token issuer are required")
	}
	if bcryptCost < DefaultBcryptCost {
		bcryptCost = DefaultBcryptCost
	}
	return &Service{store: store, tokens: tokens, bcryptCost: bcryptCost, lg: lg, now: time.Now}, nil
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	TenantID  string
	RoleID    string
}

// Register creates a user under an existing tenant. The email must be free,
// the tenant (and role, when given) must exist, and the default read/OWN
// permission on the users table is seeded in the same transaction as the
// user row.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, TokenPair, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" || in.TenantID == "" {
		return nil, TokenPair{}, fmt.Errorf("%w: email, password and tenant_id are required", ErrInvalidInput)
	}
	if _, err := s.store.FindUserByEmail(ctx, email); err == nil {
		return nil, TokenPair{}, fmt.Errorf("%w: email", ErrConflict)
	}
	if _, err := s.store.FindTenantByID(ctx, in.TenantID); err != nil {
		return nil, TokenPair{}, fmt.Errorf("%w: tenant", ErrNotFound)
	}
	roleID := strings.TrimSpace(in.RoleID)
	if roleID == "" {
		role, err := s.store.FindRoleByName(ctx, defaultRoleName)
		if err != nil {
			return nil, TokenPair{}, fmt.Errorf("%w: default role", ErrNotFound)
		}
		roleID = role.ID
	} else if _, err := s.store.FindRoleByID(ctx, roleID); err != nil {
		return nil, TokenPair{}, fmt.Errorf("%w: role", ErrNotFound)
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, TokenPair{}, err
	}
	now := s.now()
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		TenantID:     in.TenantID,
		RoleID:       roleID,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	seed := &models.UserPermission{
		UserID:    u.ID,
		TableName: SeedPermissionTable,
		CanRead:   true,
		Scope:     "OWN",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(ctx, u, seed); err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.mintPair(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.lg.Infow("user registered", "user_id", u.ID, "tenant_id", u.TenantID)
	return u, pair, nil
}

// Login authenticates credentials. Every failure mode returns the same
// ErrUnauthorized so callers cannot distinguish unknown users from bad
// passwords or deactivated accounts.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, TokenPair{}, ErrUnauthorized
	}
	if !u.IsActive {
		return nil, TokenPair{}, ErrUnauthorized
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return nil, TokenPair{}, ErrUnauthorized
	}
	if _, err := s.store.FindTenantByID(ctx, u.TenantID); err != nil {
		return nil, TokenPair{}, ErrUnauthorized
	}
	pair, err := s.mintPair(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.lg.Infow("user logged in", "user_id", u.ID, "tenant_id", u.TenantID)
	return u, pair, nil
}

// Refresh rotates a refresh token: the presented token must verify against
// the refresh secret, its jti must be live in the registry, and the backing
// user must still be active. The old jti is revoked before a new pair is
// minted, so replaying a rotated token fails.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.User, TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, TokenPair{}, ErrUnauthorized
	}
	rec, err := s.store.FindRefreshToken(ctx, claims.ID)
	if err != nil {
		return nil, TokenPair{}, ErrUnauthorized
	}
	if rec.RevokedAt != nil || s.now().After(rec.ExpiresAt) {
		return nil, TokenPair{}, ErrUnauthorized
	}
	u, err := s.store.FindUserByID(ctx, claims.Subject)
	if err != nil || !u.IsActive {
		return nil, TokenPair{}, ErrUnauthorized
	}
	if err := s.store.RevokeRefreshToken(ctx, rec.JTI); err != nil {
		return nil, TokenPair{}, err
	}
	pair, err := s.mintPair(ctx, u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

// Logout revokes every outstanding refresh token for the user. The access
// token stays valid until its natural expiry.
func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.store.RevokeUserRefreshTokens(ctx, userID)
}

// Authenticate resolves a bearer access token to a live identity. Used by
// the authentication guard.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Identity, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}
	u, err := s.store.FindUserByID(ctx, claims.Subject)
	if err != nil || !u.IsActive {
		return Identity{}, ErrUnauthorized
	}
	return Identity{UserID: u.ID, TenantID: u.TenantID, RoleID: u.RoleID, Email: u.Email}, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*models.User, error) {
	return s.store.FindUserByID(ctx, userID)
}

type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Password  *string
	IsActive  *bool
}

// UpdateUser applies a partial update to a user record.
func (s *Service) UpdateUser(ctx context.Context, userID string, upd UserUpdate) (*models.User, error) {
	u, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" {
			return nil, fmt.Errorf("%w: email", ErrInvalidInput)
		}
		u.Email = email
	}
	if upd.FirstName != nil {
		u.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		u.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Password != nil && *upd.Password != "" {
		hash, err := HashPassword(*upd.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	u.UpdatedAt = s.now()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeactivateUser soft-deletes a user and revokes their refresh tokens.
func (s *Service) DeactivateUser(ctx context.Context, userID string) error {
	inactive := false
	if _, err := s.UpdateUser(ctx, userID, UserUpdate{IsActive: &inactive}); err != nil {
		return err
	}
	return s.store.RevokeUserRefreshTokens(ctx, userID)
}

func (s *Service) ListTenantUsers(ctx context.Context, tenantID string) ([]models.User, error) {
	return s.store.ListUsersByTenant(ctx, tenantID)
}

func (s *Service) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return s.store.FindUserByID(ctx, userID)
}

func (s *Service) Tenant(ctx context.Context, tenantID string) (*models.Tenant, error) {
	return s.store.FindTenantByID(ctx, tenantID)
}

func (s *Service) mintPair(ctx context.Context, u *models.User) (TokenPair, error) {
	pair, err := s.tokens.IssuePair(u)
	if err != nil {
		return TokenPair{}, err
	}
	rec := &models.RefreshToken{
		JTI:       pair.RefreshJTI,
		UserID:    u.ID,
		ExpiresAt: pair.RefreshExpiresAt,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateRefreshToken(ctx, rec); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}
