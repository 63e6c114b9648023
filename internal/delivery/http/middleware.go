package http

import (
	"net/http"

	"github.com/beautystore/backend/internal/entity"
)

// Identity is the caller's identity, established by the upstream gateway.
// Token issuance and verification live outside this service; the gateway
// forwards the authenticated subject in headers.
type Identity struct {
	UserID string
	Role   entity.UserRole
}

func identityFrom(r *http.Request) Identity {
	role := entity.UserRole(r.Header.Get("X-User-Role"))
	if role != entity.RoleAdmin {
		role = entity.RoleUser
	}
	return Identity{
		UserID: r.Header.Get("X-User-Id"),
		Role:   role,
	}
}

func requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r).UserID == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing identity"})
			return
		}
		next(w, r)
	}
}

func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r)
		if id.UserID == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing identity"})
			return
		}
		if id.Role != entity.RoleAdmin {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "admin role required"})
			return
		}
		next(w, r)
	}
}

// EnableCORS allows the storefront frontend to call the API directly.
func EnableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-Id, X-User-Role, X-Webhook-Signature")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
