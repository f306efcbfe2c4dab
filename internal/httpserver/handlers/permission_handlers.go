package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vivero/internal/audit"
	"vivero/internal/permissions"
)

func MyPermissions(svc *permissions.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perms, err := svc.UserPermissions(r.Context(), mustIdentity(r).UserID)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, perms)
	}
}

type grantReq struct {
	CanCreate bool   `json:"can_create"`
	CanRead   bool   `json:"can_read"`
	CanUpdate bool   `json:"can_update"`
	CanDelete bool   `json:"can_delete"`
	Scope     string `json:"scope" validate:"omitempty,oneof=NONE OWN ALL"`
}

func GrantPermission(svc *permissions.Service, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		table := chi.URLParam(r, "table")
		var req grantReq
		if err := decodeValid(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		err := svc.Grant(r.Context(), userID, table, permissions.Permission{
			CanCreate: req.CanCreate,
			CanRead:   req.CanRead,
			CanUpdate: req.CanUpdate,
			CanDelete: req.CanDelete,
			Scope:     permissions.Scope(req.Scope),
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		id := mustIdentity(r)
		rec.Record(r.Context(), audit.Entry{
			TenantID: id.TenantID, UserID: id.UserID,
			Action: audit.ActionUpdate, EntityType: "USER_PERMISSION", EntityID: userID + "/" + table,
			IPAddress: r.RemoteAddr, UserAgent: r.UserAgent(),
		})
		respondJSON(w, http.StatusOK, map[string]any{"granted": true})
	}
}

func RevokePermission(svc *permissions.Service, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")
		table := chi.URLParam(r, "table")
		if err := svc.Revoke(r.Context(), userID, table); err != nil {
			respondError(w, lg, err)
			return
		}
		id := mustIdentity(r)
		rec.Record(r.Context(), audit.Entry{
			TenantID: id.TenantID, UserID: id.UserID,
			Action: audit.ActionDelete, EntityType: "USER_PERMISSION", EntityID: userID + "/" + table,
			IPAddress: r.RemoteAddr, UserAgent: r.UserAgent(),
		})
		respondJSON(w, http.StatusOK, map[string]any{"revoked": true})
	}
}
