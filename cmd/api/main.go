package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"vivero/internal/audit"
	"vivero/internal/auth"
	"vivero/internal/config"
	"vivero/internal/httpserver"
	"vivero/internal/logger"
	"vivero/internal/models"
	"vivero/internal/obs"
	"vivero/internal/permissions"
	"vivero/internal/store/gormstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	lg := logger.New()
	defer lg.Sync()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	store := gormstore.New(db)
	if err := store.AutoMigrate(); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}

	issuer, err := auth.NewTokenIssuer(cfg.AccessSecret, cfg.RefreshSecret, cfg.TokenIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		lg.Fatalw("token issuer init failed", "error", err)
	}
	authSvc, err := auth.NewService(store, issuer, cfg.BcryptCost, lg)
	if err != nil {
		lg.Fatalw("auth service init failed", "error", err)
	}
	permSvc, err := permissions.NewService(store, cfg.PermissionCacheTTL, lg)
	if err != nil {
		lg.Fatalw("permissions service init failed", "error", err)
	}
	recorder := audit.NewRecorder(store, lg)

	seedDefaults(db, cfg, lg)

	obs.Init()
	router := httpserver.NewRouter(httpserver.Deps{
		Auth:   authSvc,
		Perms:  permSvc,
		Audit:  recorder,
		Logger: lg,
	})

	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		lg.Fatalw("server stopped", "error", err)
	}
}

// seedDefaults ensures a default tenant, the two base roles and, when a seed
// password is configured, an administrator holding the full capability
// matrix.
func seedDefaults(db *gorm.DB, cfg config.Config, lg *zap.SugaredLogger) {
	tenant := models.Tenant{Name: "Default Tenant"}
	db.Where("name = ?", tenant.Name).
		Attrs(models.Tenant{ID: uuid.NewString(), CreatedAt: time.Now(), UpdatedAt: time.Now()}).
		FirstOrCreate(&tenant)

	adminRole := models.Role{Name: "Administrator"}
	db.Where("name = ?", adminRole.Name).
		Attrs(models.Role{ID: uuid.NewString(), CreatedAt: time.Now()}).
		FirstOrCreate(&adminRole)
	userRole := models.Role{Name: "User"}
	db.Where("name = ?", userRole.Name).
		Attrs(models.Role{ID: uuid.NewString(), CreatedAt: time.Now()}).
		FirstOrCreate(&userRole)

	if cfg.SeedAdminPassword == "" {
		return
	}
	var count int64
	db.Model(&models.User{}).Where("email = ?", cfg.SeedAdminEmail).Count(&count)
	if count > 0 {
		return
	}
	hash, err := auth.HashPassword(cfg.SeedAdminPassword, cfg.BcryptCost)
	if err != nil {
		lg.Warnw("seed admin hash failed", "error", err)
		return
	}
	admin := models.User{
		ID:           uuid.NewString(),
		Email:        cfg.SeedAdminEmail,
		PasswordHash: hash,
		TenantID:     tenant.ID,
		RoleID:       adminRole.ID,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := db.Create(&admin).Error; err != nil {
		lg.Warnw("seed admin create failed", "error", err)
		return
	}
	for _, table := range permissions.AllowedTables() {
		perm := models.UserPermission{
			UserID:    admin.ID,
			TableName: table,
			CanCreate: true,
			CanRead:   true,
			CanUpdate: true,
			CanDelete: true,
			Scope:     string(permissions.ScopeAll),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := db.Create(&perm).Error; err != nil {
			lg.Warnw("seed admin permission failed", "table", table, "error", err)
		}
	}
	lg.Infow("seeded default admin", "email", cfg.SeedAdminEmail)
}
