package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"vivero/internal/auth"
	"vivero/internal/permissions"
)

// Authenticator resolves a bearer access token to a live identity.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (auth.Identity, error)
}

// Evaluator answers table-level permission checks.
type Evaluator interface {
	CanPerform(ctx context.Context, userID string, req permissions.Requirement) (bool, error)
}

// Guard is the two-stage interceptor chain. The router composes it so that
// Authenticate always wraps Authorize; route declaration order can never flip
// the stages.
type Guard struct {
	authn Authenticator
	authz Evaluator
	lg    *zap.SugaredLogger
}

func NewGuard(authn Authenticator, authz Evaluator, lg *zap.SugaredLogger) *Guard {
	return &Guard{authn: authn, authz: authz, lg: lg}
}

// Authenticate extracts the bearer token, verifies it and attaches the
// resolved identity to the request context.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, err.Error())
			return
		}
		identity, err := g.authn.Authenticate(r.Context(), token)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// Authorize enforces the route's permission requirement. A protected route
// registered without a requirement is denied outright.
func (g *Guard) Authorize(req *permissions.Requirement, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		if !ok {
			writeMessage(w, http.StatusForbidden, "caller identity missing")
			return
		}
		if req == nil {
			g.lg.Warnw("protected route has no permission requirement", "path", r.URL.Path)
			writeMessage(w, http.StatusForbidden, "route requires permissions")
			return
		}
		allowed, err := g.authz.CanPerform(r.Context(), identity.UserID, *req)
		if err != nil {
			if errors.Is(err, permissions.ErrInvalidTable) {
				writeMessage(w, http.StatusBadRequest, err.Error())
				return
			}
			g.lg.Errorw("permission check failed", "error", err)
			writeMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if !allowed {
			writeMessage(w, http.StatusForbidden,
				fmt.Sprintf("you do not have permission to %s on %s", req.Action, req.Table))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
