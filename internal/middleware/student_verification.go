package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/unimart/unimart-api/internal/domain/user"
	"github.com/unimart/unimart-api/internal/pkg/logger"
	"github.com/unimart/unimart-api/internal/pkg/response"
)

// UserLookup loads the account behind an authenticated request.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// RequireVerifiedStudent lets through only verified, non-banned accounts.
// The ban flag is re-read from storage since tokens outlive moderation.
func RequireVerifiedStudent(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == uuid.Nil {
				response.Unauthorized(w, "Authentication required")
				return
			}

			u, err := users.GetByID(r.Context(), userID)
			if err != nil {
				logger.LogError(r.Context(), err, "Failed to load user for verification check")
				response.InternalError(w)
				return
			}
			if u == nil {
				response.Unauthorized(w, "Authentication required")
				return
			}

			if u.IsBanned {
				response.Forbidden(w, "Your account has been banned")
				return
			}
			if !u.StudentVerified {
				response.Error(w, http.StatusForbidden, "STUDENT_NOT_VERIFIED", "Student verification is required to trade")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
