package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/unimart/unimart-api/internal/domain/user"
	"github.com/unimart/unimart-api/internal/pkg/jwt"
	"github.com/unimart/unimart-api/internal/pkg/logger"
	"github.com/unimart/unimart-api/internal/pkg/response"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the caller as asserted by a validated access token.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// Auth validates the bearer access token issued by the identity service and
// stores the caller's identity in the request context.
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "Missing or malformed authorization header")
				return
			}

			claims, err := jwtService.ValidateAccessToken(token)
			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				response.Unauthorized(w, "Token expired")
				return
			case err != nil:
				response.Unauthorized(w, "Invalid token")
				return
			}

			if claims.IsBanned {
				response.Forbidden(w, "Your account has been banned")
				return
			}

			ctx := WithUser(r.Context(), claims.UserID, claims.Role)
			l := logger.FromContext(ctx).With().
				Str("user_id", claims.UserID.String()).
				Str("role", claims.Role).
				Logger()
			ctx = logger.WithContext(ctx, &l)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithUser stores the authenticated identity in ctx.
func WithUser(ctx context.Context, userID uuid.UUID, role string) context.Context {
	return context.WithValue(ctx, identityKey, Identity{UserID: userID, Role: role})
}

// IdentityFrom returns the caller, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// GetUserID returns uuid.Nil for anonymous requests.
func GetUserID(ctx context.Context) uuid.UUID {
	id, _ := IdentityFrom(ctx)
	return id.UserID
}

func GetRole(ctx context.Context) string {
	id, _ := IdentityFrom(ctx)
	return id.Role
}

// IsAdmin reports whether the caller holds the admin role.
func IsAdmin(ctx context.Context) bool {
	return GetRole(ctx) == string(user.RoleAdmin)
}

// RequireRole rejects callers whose token role is not one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := GetRole(r.Context())
			if !slices.Contains(roles, role) {
				logger.FromContext(r.Context()).Warn().
					Str("path", r.URL.Path).
					Strs("required_roles", roles).
					Msg("Role check failed")
				response.Forbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(string(user.RoleAdmin))
}
