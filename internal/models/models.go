package models

import "time"

// Tenant is the root aggregate: an isolated organizational namespace that
// owns users and audit history.
type Tenant struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	TenantID     string    `gorm:"type:uuid;index;not null" json:"tenant_id"`
	RoleID       string    `gorm:"type:uuid;not null" json:"role_id"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserPermission is one row of the per-user capability matrix: CRUD flags plus
// a row scope for a single resource table. A (user, table) pair has at most
// one row; no row means every action on that table is denied.
type UserPermission struct {
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	TableName string    `gorm:"primaryKey;size:64" json:"table_name"`
	CanCreate bool      `gorm:"not null;default:false" json:"can_create"`
	CanRead   bool      `gorm:"not null;default:false" json:"can_read"`
	CanUpdate bool      `gorm:"not null;default:false" json:"can_update"`
	CanDelete bool      `gorm:"not null;default:false" json:"can_delete"`
	Scope     string    `gorm:"size:8;not null;default:NONE" json:"scope"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshToken is the persisted registry entry for an issued refresh token,
// keyed by the token's jti claim. Rotation revokes the old row; presenting a
// revoked or unknown jti fails authentication.
type RefreshToken struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type AuditLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TenantID   string    `gorm:"type:uuid;index" json:"tenant_id"`
	UserID     string    `gorm:"type:uuid;index" json:"user_id"`
	Action     string    `gorm:"not null" json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
