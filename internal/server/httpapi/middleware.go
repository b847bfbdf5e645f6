package httpapi

import (
	"context"
	"net/http"
	"strings"

	sm "loyalty/internal/shared/models"
)

type contextKey string

const userContextKey contextKey = "user"

func bearerToken(req *http.Request) (string, bool) {
	authz := req.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return token, token != ""
}

func (r *Router) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		token, ok := bearerToken(req)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		user, err := r.services.Auth.Authenticate(req.Context(), token)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		ctx := context.WithValue(req.Context(), userContextKey, user)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// ownerMiddleware must run after authMiddleware.
func (r *Router) ownerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !currentUser(req.Context()).IsBusinessOwner {
			writeError(w, http.StatusForbidden, "Business owner access required")
			return
		}
		next.ServeHTTP(w, req)
	})
}

func currentUser(ctx context.Context) sm.User {
	if u, ok := ctx.Value(userContextKey).(sm.User); ok {
		return u
	}
	return sm.User{}
}
