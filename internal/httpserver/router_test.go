package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vivero/internal/audit"
	"vivero/internal/auth"
	"vivero/internal/models"
	"vivero/internal/permissions"
)

// apiStore backs the full HTTP surface in memory for end-to-end tests. It
// implements the auth, permissions and audit store interfaces at once, the
// same shape the gorm store has in production.
type apiStore struct {
	users   map[string]*models.User
	tenants map[string]*models.Tenant
	roles   map[string]*models.Role
	refresh map[string]*models.RefreshToken
	perms   map[string]map[string]models.UserPermission
	audits  []models.AuditLog
}

func newAPIStore() *apiStore {
	return &apiStore{
		users:   map[string]*models.User{},
		tenants: map[string]*models.Tenant{},
		roles:   map[string]*models.Role{},
		refresh: map[string]*models.RefreshToken{},
		perms:   map[string]map[string]models.UserPermission{},
	}
}

func (s *apiStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *apiStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *apiStore) CreateUser(_ context.Context, u *models.User, seed *models.UserPermission) error {
	cp := *u
	s.users[u.ID] = &cp
	if seed != nil {
		s.putPerm(*seed)
	}
	return nil
}

func (s *apiStore) UpdateUser(_ context.Context, u *models.User) error {
	if _, ok := s.users[u.ID]; !ok {
		return auth.ErrNotFound
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *apiStore) ListUsersByTenant(_ context.Context, tenantID string) ([]models.User, error) {
	var out []models.User
	for _, u := range s.users {
		if u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *apiStore) FindTenantByID(_ context.Context, id string) (*models.Tenant, error) {
	t, ok := s.tenants[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return t, nil
}

func (s *apiStore) FindRoleByID(_ context.Context, id string) (*models.Role, error) {
	r, ok := s.roles[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return r, nil
}

func (s *apiStore) FindRoleByName(_ context.Context, name string) (*models.Role, error) {
	for _, r := range s.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (s *apiStore) CreateRefreshToken(_ context.Context, rt *models.RefreshToken) error {
	cp := *rt
	s.refresh[rt.JTI] = &cp
	return nil
}

func (s *apiStore) FindRefreshToken(_ context.Context, jti string) (*models.RefreshToken, error) {
	rt, ok := s.refresh[jti]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (s *apiStore) RevokeRefreshToken(_ context.Context, jti string) error {
	if rt, ok := s.refresh[jti]; ok && rt.RevokedAt == nil {
		now := time.Now()
		rt.RevokedAt = &now
	}
	return nil
}

func (s *apiStore) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	now := time.Now()
	for _, rt := range s.refresh {
		if rt.UserID == userID && rt.RevokedAt == nil {
			rt.RevokedAt = &now
		}
	}
	return nil
}

func (s *apiStore) PermissionsForUser(_ context.Context, userID string) ([]models.UserPermission, error) {
	var out []models.UserPermission
	for _, p := range s.perms[userID] {
		out = append(out, p)
	}
	return out, nil
}

func (s *apiStore) UpsertPermission(_ context.Context, p *models.UserPermission) error {
	s.putPerm(*p)
	return nil
}

func (s *apiStore) DeletePermission(_ context.Context, userID, tableName string) error {
	if _, ok := s.perms[userID][tableName]; !ok {
		return permissions.ErrNotFound
	}
	delete(s.perms[userID], tableName)
	return nil
}

func (s *apiStore) AppendAuditLog(_ context.Context, entry *models.AuditLog) error {
	s.audits = append(s.audits, *entry)
	return nil
}

func (s *apiStore) ListAuditLogsByUser(_ context.Context, userID string, limit int) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for _, a := range s.audits {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return clip(out, limit), nil
}

func (s *apiStore) ListAuditLogsByTenant(_ context.Context, tenantID string, limit int) ([]models.AuditLog, error) {
	var out []models.AuditLog
	for _, a := range s.audits {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return clip(out, limit), nil
}

func clip(logs []models.AuditLog, limit int) []models.AuditLog {
	if limit > 0 && len(logs) > limit {
		return logs[:limit]
	}
	return logs
}

func (s *apiStore) putPerm(p models.UserPermission) {
	if s.perms[p.UserID] == nil {
		s.perms[p.UserID] = map[string]models.UserPermission{}
	}
	s.perms[p.UserID][p.TableName] = p
}

type apiEnv struct {
	store    *apiStore
	srv      *httptest.Server
	tenantID string
	roleID   string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	store := newAPIStore()
	tenantID := uuid.NewString()
	roleID := uuid.NewString()
	store.tenants[tenantID] = &models.Tenant{ID: tenantID, Name: "Acme"}
	store.roles[roleID] = &models.Role{ID: roleID, Name: "User"}

	lg := zap.NewNop().Sugar()
	issuer, err := auth.NewTokenIssuer("access-secret-for-tests", "refresh-secret-for-tests", "vivero-test", 15*time.Minute, 168*time.Hour)
	require.NoError(t, err)
	authSvc, err := auth.NewService(store, issuer, auth.DefaultBcryptCost, lg)
	require.NoError(t, err)
	permSvc, err := permissions.NewService(store, time.Hour, lg)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{
		Auth:   authSvc,
		Perms:  permSvc,
		Audit:  audit.NewRecorder(store, lg),
		Logger: lg,
	}))
	t.Cleanup(srv.Close)
	return &apiEnv{store: store, srv: srv, tenantID: tenantID, roleID: roleID}
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

type tokenPairResp struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func (e *apiEnv) register(t *testing.T, email string) tokenPairResp {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"email":    email,
		"password": "hunter22",
		"tenantId": e.tenantID,
		"roleId":   e.roleID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var pair tokenPairResp
	require.NoError(t, json.Unmarshal(body, &pair))
	require.NotNil(t, pair.User)
	return pair
}

func TestRegisteredUserCanReadOwnButNotAll(t *testing.T) {
	env := newAPIEnv(t)
	pair := env.register(t, "ana@example.com")

	// The seeded read/OWN grant on users covers the caller's own slice.
	resp, body := env.do(t, http.MethodGet, "/permissions/me", pair.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var perms map[string]permissions.Permission
	require.NoError(t, json.Unmarshal(body, &perms))
	require.Contains(t, perms, "users")
	assert.True(t, perms["users"].CanRead)
	assert.Equal(t, permissions.ScopeOwn, perms["users"].Scope)

	resp, _ = env.do(t, http.MethodGet, "/users/me", pair.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Fetching a user by id demands ALL scope, which OWN does not satisfy.
	resp, _ = env.do(t, http.MethodGet, "/users/"+pair.User.ID, pair.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestProtectedRoutesRejectAnonymousCallers(t *testing.T) {
	env := newAPIEnv(t)

	for _, path := range []string{"/permissions/me", "/users/me", "/auth/profile", "/audit-logs"} {
		resp, _ := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}

	resp, _ := env.do(t, http.MethodGet, "/users/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGrantOverHTTPUnlocksRoute(t *testing.T) {
	env := newAPIEnv(t)
	admin := env.register(t, "admin@example.com")
	user := env.register(t, "ana@example.com")

	// The admin manages the capability matrix at ALL scope.
	env.store.putPerm(models.UserPermission{
		UserID: admin.User.ID, TableName: "user_permissions",
		CanUpdate: true, CanDelete: true, Scope: "ALL",
	})

	// Before the grant, listing users at ALL scope is out of reach.
	resp, _ := env.do(t, http.MethodGet, "/users/"+admin.User.ID, user.AccessToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	grantPath := fmt.Sprintf("/permissions/%s/users", user.User.ID)
	resp, body := env.do(t, http.MethodPut, grantPath, admin.AccessToken, map[string]any{
		"can_read": true,
		"scope":    "ALL",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	// The grant is observed immediately despite the warm permission cache.
	resp, _ = env.do(t, http.MethodGet, "/users/"+admin.User.ID, user.AccessToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Revoking closes the door again.
	resp, _ = env.do(t, http.MethodDelete, grantPath, admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodGet, "/users/"+admin.User.ID, user.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGrantRejectsUnknownTable(t *testing.T) {
	env := newAPIEnv(t)
	admin := env.register(t, "admin@example.com")
	env.store.putPerm(models.UserPermission{
		UserID: admin.User.ID, TableName: "user_permissions",
		CanUpdate: true, Scope: "ALL",
	})

	resp, _ := env.do(t, http.MethodPut, "/permissions/"+admin.User.ID+"/plants", admin.AccessToken, map[string]any{
		"can_read": true,
		"scope":    "OWN",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	pair := env.register(t, "ana@example.com")

	resp, body := env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var next map[string]string
	require.NoError(t, json.Unmarshal(body, &next))
	assert.NotEqual(t, pair.RefreshToken, next["refreshToken"])

	// The rotated-out token must be dead.
	resp, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": next["refreshToken"]})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogoutKillsRefreshTokens(t *testing.T) {
	env := newAPIEnv(t)
	pair := env.register(t, "ana@example.com")

	resp, _ := env.do(t, http.MethodPost, "/auth/logout", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": pair.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	env := newAPIEnv(t)

	cases := []map[string]string{
		{"email": "not-an-email", "password": "hunter22", "tenantId": env.tenantID},
		{"email": "a@example.com", "password": "short", "tenantId": env.tenantID},
		{"email": "a@example.com", "password": "hunter22", "tenantId": "not-a-uuid"},
	}
	for _, body := range cases {
		resp, _ := env.do(t, http.MethodPost, "/auth/register", "", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	env := newAPIEnv(t)
	env.register(t, "ana@example.com")

	resp, wrongPw := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ana@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, unknown := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, string(wrongPw), string(unknown), "login failures must not leak which part was wrong")
}

func TestAuditLogsListOwnRows(t *testing.T) {
	env := newAPIEnv(t)
	pair := env.register(t, "ana@example.com")
	env.store.putPerm(models.UserPermission{
		UserID: pair.User.ID, TableName: "audit_logs",
		CanRead: true, Scope: "OWN",
	})

	resp, body := env.do(t, http.MethodGet, "/audit-logs", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var logs []models.AuditLog
	require.NoError(t, json.Unmarshal(body, &logs))
	require.NotEmpty(t, logs, "registration should have produced an audit row")
	for _, l := range logs {
		assert.Equal(t, pair.User.ID, l.UserID)
	}
}

func TestHealthz(t *testing.T) {
	env := newAPIEnv(t)
	resp, _ := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
