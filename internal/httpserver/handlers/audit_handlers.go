package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"vivero/internal/audit"
	"vivero/internal/permissions"
)

const defaultAuditLimit = 200

// ListAuditLogs returns recent audit entries. Callers with read/ALL on
// audit_logs see the whole tenant; everyone else sees their own rows.
func ListAuditLogs(rec *audit.Recorder, perms *permissions.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultAuditLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= defaultAuditLimit {
				limit = n
			}
		}
		id := mustIdentity(r)
		all, err := perms.CanPerform(r.Context(), id.UserID, permissions.Requirement{
			Table: "audit_logs", Action: permissions.ActionRead, Scope: permissions.ScopeAll,
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		if all {
			logs, err := rec.ListByTenant(r.Context(), id.TenantID, limit)
			if err != nil {
				respondError(w, lg, err)
				return
			}
			respondJSON(w, http.StatusOK, logs)
			return
		}
		logs, err := rec.ListByUser(r.Context(), id.UserID, limit)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, logs)
	}
}
