package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"vivero/internal/audit"
	"vivero/internal/auth"
	"vivero/internal/httpserver/handlers"
	"vivero/internal/obs"
	"vivero/internal/permissions"
)

// Deps are the services the HTTP surface is built from.
type Deps struct {
	Auth   *auth.Service
	Perms  *permissions.Service
	Audit  *audit.Recorder
	Logger *zap.SugaredLogger
}

// route is one row of the explicit registration table: a handler plus its
// public marker and permission requirement. Protected routes without a
// requirement are denied by the authorization guard.
type route struct {
	method  string
	pattern string
	public  bool
	perm    *permissions.Requirement
	handler http.Handler
}

func requirePerm(table string, action permissions.Action, scope permissions.Scope) *permissions.Requirement {
	return &permissions.Requirement{Table: table, Action: action, Scope: scope}
}

func routeTable(d Deps) []route {
	lg := d.Logger
	return []route{
		{http.MethodPost, "/auth/register", true, nil, handlers.Register(d.Auth, d.Audit, lg)},
		{http.MethodPost, "/auth/login", true, nil, handlers.Login(d.Auth, d.Audit, lg)},
		{http.MethodPost, "/auth/refresh", true, nil, handlers.Refresh(d.Auth, lg)},
		{http.MethodGet, "/auth/profile", false, requirePerm("users", permissions.ActionRead, permissions.ScopeOwn), handlers.Profile(d.Auth, lg)},
		{http.MethodPost, "/auth/logout", false, requirePerm("users", permissions.ActionRead, permissions.ScopeOwn), handlers.Logout(d.Auth, d.Audit, lg)},

		{http.MethodGet, "/permissions/me", false, requirePerm("users", permissions.ActionRead, permissions.ScopeOwn), handlers.MyPermissions(d.Perms, lg)},
		{http.MethodPut, "/permissions/{userID}/{table}", false, requirePerm("user_permissions", permissions.ActionUpdate, permissions.ScopeAll), handlers.GrantPermission(d.Perms, d.Audit, lg)},
		{http.MethodDelete, "/permissions/{userID}/{table}", false, requirePerm("user_permissions", permissions.ActionDelete, permissions.ScopeAll), handlers.RevokePermission(d.Perms, d.Audit, lg)},

		{http.MethodGet, "/users/me", false, requirePerm("users", permissions.ActionRead, permissions.ScopeOwn), handlers.Me(d.Auth, lg)},
		{http.MethodPatch, "/users/me", false, requirePerm("users", permissions.ActionUpdate, permissions.ScopeOwn), handlers.UpdateMe(d.Auth, d.Audit, lg)},
		{http.MethodGet, "/users", false, requirePerm("users", permissions.ActionRead, ""), handlers.ListUsers(d.Auth, d.Perms, lg)},
		{http.MethodGet, "/users/{id}", false, requirePerm("users", permissions.ActionRead, permissions.ScopeAll), handlers.GetUser(d.Auth, lg)},
		{http.MethodPatch, "/users/{id}", false, requirePerm("users", permissions.ActionUpdate, ""), handlers.UpdateUser(d.Auth, d.Perms, d.Audit, lg)},
		{http.MethodDelete, "/users/{id}", false, requirePerm("users", permissions.ActionDelete, permissions.ScopeAll), handlers.DeleteUser(d.Auth, d.Audit, lg)},

		{http.MethodGet, "/tenants/{id}", false, requirePerm("tenants", permissions.ActionRead, ""), handlers.GetTenant(d.Auth, d.Perms, lg)},
		{http.MethodGet, "/audit-logs", false, requirePerm("audit_logs", permissions.ActionRead, ""), handlers.ListAuditLogs(d.Audit, d.Perms, lg)},
	}
}

// NewRouter composes middleware and the route table. Guard composition lives
// only here: authentication always wraps authorization for protected routes.
func NewRouter(d Deps) http.Handler {
	guard := NewGuard(d.Auth, d.Perms, d.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Use(obs.Instrument)

	for _, rt := range routeTable(d) {
		h := rt.handler
		if !rt.public {
			h = guard.Authenticate(guard.Authorize(rt.perm, h))
		}
		r.Method(rt.method, rt.pattern, h)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", obs.Handler())
	return r
}
