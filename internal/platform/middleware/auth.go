package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "pageguard/pkg/domain-errors"
	"pageguard/pkg/platform/httputil"
	"pageguard/pkg/requestcontext"
)

// Claims are the JWT claims the pipeline trusts. Token issuance lives in an
// external auth collaborator; this middleware only verifies the signature and
// lifts the identity and tenant scope into the request context.
type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Validator verifies bearer tokens. Satisfied by *TokenValidator; tests can
// swap in a stub.
type Validator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// TokenValidator validates HS256 bearer tokens against a shared signing key.
type TokenValidator struct {
	signingKey []byte
	issuer     string
}

func NewTokenValidator(signingKey, issuer string) *TokenValidator {
	return &TokenValidator{signingKey: []byte(signingKey), issuer: issuer}
}

func (v *TokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(v.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if claims.TenantID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no tenant scope")
	}
	return claims, nil
}

// RequireAuth rejects requests without a verified bearer identity and injects
// user and tenant scope into the request context.
func RequireAuth(validator Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithUserID(ctx, claims.UserID)
			ctx = requestcontext.WithTenantID(ctx, claims.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
