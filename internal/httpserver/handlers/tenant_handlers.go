package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vivero/internal/auth"
	"vivero/internal/permissions"
)

// GetTenant serves a tenant record. The caller's own tenant needs only the
// read flag; any other tenant requires read at ALL scope.
func GetTenant(svc *auth.Service, perms *permissions.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := chi.URLParam(r, "id")
		id := mustIdentity(r)
		if tenantID != id.TenantID {
			all, err := perms.CanPerform(r.Context(), id.UserID, permissions.Requirement{
				Table: "tenants", Action: permissions.ActionRead, Scope: permissions.ScopeAll,
			})
			if err != nil {
				respondError(w, lg, err)
				return
			}
			if !all {
				writeForbidden(w, "you do not have permission to read on tenants")
				return
			}
		}
		t, err := svc.Tenant(r.Context(), tenantID)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}
}
