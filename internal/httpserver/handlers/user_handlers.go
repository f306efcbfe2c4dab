package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"vivero/internal/audit"
	"vivero/internal/auth"
	"vivero/internal/models"
	"vivero/internal/permissions"
)

func Me(svc *auth.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.GetUser(r.Context(), mustIdentity(r).UserID)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, u)
	}
}

type updateUserReq struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"firstName" validate:"omitempty,max=50"`
	LastName  *string `json:"lastName" validate:"omitempty,max=50"`
	Password  *string `json:"password" validate:"omitempty,min=6"`
	IsActive  *bool   `json:"isActive"`
}

func (req updateUserReq) toUpdate() auth.UserUpdate {
	return auth.UserUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		IsActive:  req.IsActive,
	}
}

func UpdateMe(svc *auth.Service, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateUserReq
		if err := decodeValid(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		id := mustIdentity(r)
		// Profile updates never toggle activation.
		req.IsActive = nil
		u, err := svc.UpdateUser(r.Context(), id.UserID, req.toUpdate())
		if err != nil {
			respondError(w, lg, err)
			return
		}
		rec.Record(r.Context(), audit.Entry{
			TenantID: id.TenantID, UserID: id.UserID,
			Action: audit.ActionUpdate, EntityType: "USER", EntityID: id.UserID,
			IPAddress: r.RemoteAddr, UserAgent: r.UserAgent(),
		})
		respondJSON(w, http.StatusOK, u)
	}
}

// ListUsers returns the tenant's users for callers holding read/ALL on the
// users table; everyone else sees only themselves.
func ListUsers(svc *auth.Service, perms *permissions.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mustIdentity(r)
		all, err := perms.CanPerform(r.Context(), id.UserID, permissions.Requirement{
			Table: "users", Action: permissions.ActionRead, Scope: permissions.ScopeAll,
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		if all {
			users, err := svc.ListTenantUsers(r.Context(), id.TenantID)
			if err != nil {
				respondError(w, lg, err)
				return
			}
			respondJSON(w, http.StatusOK, users)
			return
		}
		u, err := svc.GetUser(r.Context(), id.UserID)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, []models.User{*u})
	}
}

func GetUser(svc *auth.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.GetUser(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, u)
	}
}

// UpdateUser lets holders of update/ALL edit anyone; update/OWN only
// themselves.
func UpdateUser(svc *auth.Service, perms *permissions.Service, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "id")
		id := mustIdentity(r)
		ok, err := perms.CanAccessRecord(r.Context(), id.UserID, "users", permissions.ActionUpdate, targetID)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		if !ok {
			writeForbidden(w, "you do not have permission to update on users")
			return
		}
		var req updateUserReq
		if err := decodeValid(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		u, err := svc.UpdateUser(r.Context(), targetID, req.toUpdate())
		if err != nil {
			respondError(w, lg, err)
			return
		}
		rec.Record(r.Context(), audit.Entry{
			TenantID: id.TenantID, UserID: id.UserID,
			Action: audit.ActionUpdate, EntityType: "USER", EntityID: targetID,
			IPAddress: r.RemoteAddr, UserAgent: r.UserAgent(),
		})
		respondJSON(w, http.StatusOK, u)
	}
}

// DeleteUser deactivates the target and revokes their refresh tokens.
func DeleteUser(svc *auth.Service, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := chi.URLParam(r, "id")
		if err := svc.DeactivateUser(r.Context(), targetID); err != nil {
			respondError(w, lg, err)
			return
		}
		id := mustIdentity(r)
		rec.Record(r.Context(), audit.Entry{
			TenantID: id.TenantID, UserID: id.UserID,
			Action: audit.ActionDelete, EntityType: "USER", EntityID: targetID,
			IPAddress: r.RemoteAddr, UserAgent: r.UserAgent(),
		})
		respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

func writeForbidden(w http.ResponseWriter, msg string) {
	respondJSON(w, http.StatusForbidden, map[string]string{"message": msg})
}
