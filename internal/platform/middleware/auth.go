package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "publink/pkg/domain-errors"
	"publink/pkg/requestcontext"
)

// Roles carried by admin API tokens.
const (
	// RoleOperator is a platform operator with access to every tenant.
	RoleOperator = "operator"
	// RoleTenantAdmin is scoped to the token's own tenant.
	RoleTenantAdmin = "tenant_admin"
)

// Claims are the admin API access token claims. TenantID scopes the caller to
// one tenant; platform operators carry an empty tenant and the operator role.
type Claims struct {
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTValidator validates admin API bearer tokens.
type JWTValidator struct {
	signingKey []byte
	issuer     string
}

func NewJWTValidator(signingKey, issuer string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey), issuer: issuer}
}

// GenerateToken issues an access token for operational tooling and tests.
func (v *JWTValidator) GenerateToken(tenantID uuid.UUID, role string, expiresIn time.Duration) (string, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
			ID:        uuid.NewString(),
		},
	}
	if tenantID != uuid.Nil {
		claims.TenantID = tenantID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.signingKey)
}

// ValidateToken parses and verifies a token string.
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// RequireAuth rejects requests without a valid bearer token and injects the
// caller's tenant association into the context.
func RequireAuth(validator *JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			claims, err := validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnContext(r.Context(), "rejected admin request",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err.Error(),
				)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			ctx := requestcontext.WithRole(r.Context(), claims.Role)
			if claims.TenantID != "" {
				if tenantID, err := uuid.Parse(claims.TenantID); err == nil {
					ctx = requestcontext.WithTenantID(ctx, tenantID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
