package middleware

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campuskit/attendance-service/internal/utils"
)

// TokenIssuer identifies the campus auth service that mints all access
// tokens this service accepts.
const TokenIssuer = "campuskit-auth"

type contextKey string

const (
	ContextKeyUserID = contextKey("userID")
	ContextKeyRole   = contextKey("role")
)

// Roles carried in the "role" claim.
const (
	RoleStudent   = "student"
	RoleProfessor = "professor"
	RoleAdmin     = "admin"
)

// ValidateToken checks the token's signature and standard claims and
// returns the subject and role.
func ValidateToken(tokenString string, publicKey *rsa.PublicKey) (uuid.UUID, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return publicKey, nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, "", errors.New("invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return uuid.Nil, "", errors.New("missing expiration claim")
	}
	if time.Unix(int64(exp), 0).Before(time.Now()) {
		return uuid.Nil, "", jwt.ErrTokenExpired
	}

	iss, ok := claims["iss"].(string)
	if !ok {
		return uuid.Nil, "", errors.New("missing issuer claim")
	}
	if iss != TokenIssuer {
		return uuid.Nil, "", errors.New("invalid token issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, "", errors.New("missing subject claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, "", errors.New("subject claim is not a valid id")
	}

	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return uuid.Nil, "", errors.New("missing role claim")
	}

	return userID, role, nil
}

// AuthMiddleware reads the JWT from Authorization: Bearer and places
// the caller's id and role into the request context. Missing or
// invalid tokens get a 401.
func AuthMiddleware(pub *rsa.PublicKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized,
					"Missing bearer token", nil)
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			userID, role, err := ValidateToken(tokenStr, pub)
			if err != nil {
				code := utils.ErrCodeUnauthorized
				if errors.Is(err, jwt.ErrTokenExpired) {
					code = utils.ErrCodeTokenExpired
				}
				utils.RespondErrorWithCode(w, http.StatusUnauthorized, code,
					"Invalid or expired token", nil, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
			ctx = context.WithValue(ctx, ContextKeyRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a subrouter to one role. Runs after AuthMiddleware.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got, _ := r.Context().Value(ContextKeyRole).(string); got != role {
				utils.RespondErrorWithCode(w, http.StatusForbidden, utils.ErrCodeForbidden,
					"Insufficient role for this operation", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext returns the authenticated caller's id.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return id, ok
}
