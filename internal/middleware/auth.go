package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gatescan/terminal/internal/auth"
	"github.com/gatescan/terminal/internal/model"
	"github.com/gatescan/terminal/internal/repo"
)

type contextKey string

const operatorKey contextKey = "operator"

// AuthMiddleware validates bearer tokens, loads the operator account, and
// attaches it to the request context.
func AuthMiddleware(jwtService *auth.JWTService, users repo.GateUserRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				respondWithError(w, http.StatusUnauthorized, "missing token")
				return
			}

			claims, err := jwtService.VerifyToken(tokenString)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			operator, err := users.GetByID(r.Context(), claims.OperatorID.String())
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, "operator not found")
				return
			}

			ctx := context.WithValue(r.Context(), operatorKey, &operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOperator returns the operator attached to the request context (set by
// AuthMiddleware).
func GetOperator(ctx context.Context) (*model.GateUser, bool) {
	op, ok := ctx.Value(operatorKey).(*model.GateUser)
	return op, ok
}

// respondWithError sends a JSON error response.
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]string{"error": message}
	_ = json.NewEncoder(w).Encode(response)
}
