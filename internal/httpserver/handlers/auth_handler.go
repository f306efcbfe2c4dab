package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"vivero/internal/audit"
	"vivero/internal/auth"
	"vivero/internal/models"
)

type registerReq struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"firstName" validate:"omitempty,max=50"`
	LastName  string `json:"lastName" validate:"omitempty,max=50"`
	TenantID  string `json:"tenantId" validate:"required,uuid4"`
	RoleID    string `json:"roleId" validate:"omitempty,uuid4"`
}

type authResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

func Register(svc *auth.Service, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := decodeValid(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		u, pair, err := svc.Register(r.Context(), auth.RegisterInput{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			TenantID:  req.TenantID,
			RoleID:    req.RoleID,
		})
		if err != nil {
			respondError(w, lg, err)
			return
		}
		rec.Record(r.Context(), audit.Entry{
			TenantID: u.TenantID, UserID: u.ID,
			Action: audit.ActionCreate, EntityType: "USER", EntityID: u.ID,
			IPAddress: r.RemoteAddr, UserAgent: r.UserAgent(),
		})
		respondJSON(w, http.StatusCreated, authResponse{User: u, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	}
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func Login(svc *auth.Service, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := decodeValid(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		u, pair, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		rec.Record(r.Context(), audit.Entry{
			TenantID: u.TenantID, UserID: u.ID,
			Action: audit.ActionLogin, EntityType: "USER", EntityID: u.ID,
			IPAddress: r.RemoteAddr, UserAgent: r.UserAgent(),
		})
		respondJSON(w, http.StatusOK, authResponse{User: u, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	}
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func Refresh(svc *auth.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshReq
		if err := decodeValid(r, &req); err != nil {
			respondError(w, lg, err)
			return
		}
		_, pair, err := svc.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{
			"accessToken":  pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		})
	}
}

func Profile(svc *auth.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.Profile(r.Context(), mustIdentity(r).UserID)
		if err != nil {
			respondError(w, lg, err)
			return
		}
		respondJSON(w, http.StatusOK, u)
	}
}

func Logout(svc *auth.Service, rec *audit.Recorder, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mustIdentity(r)
		if err := svc.Logout(r.Context(), id.UserID); err != nil {
			respondError(w, lg, err)
			return
		}
		rec.Record(r.Context(), audit.Entry{
			TenantID: id.TenantID, UserID: id.UserID,
			Action: audit.ActionLogout, EntityType: "USER", EntityID: id.UserID,
			IPAddress: r.RemoteAddr, UserAgent: r.UserAgent(),
		})
		respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}
}
