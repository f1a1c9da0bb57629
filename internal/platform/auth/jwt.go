package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/community-platform/internal/platform/api"
	"github.com/example/community-platform/internal/platform/httpserver"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errNoSecret     = errors.New("token verification is not configured")
)

type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// JWTVerifier checks HS256 tokens issued by the auth service.
type JWTVerifier struct {
	Secret []byte
	// Issuer, when set, must match the iss claim.
	Issuer string
	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration
}

// Enabled reports whether a signing secret is configured.
func (v JWTVerifier) Enabled() bool { return len(v.Secret) > 0 }

func (v JWTVerifier) Parse(tokenString string) (*Claims, error) {
	if !v.Enabled() {
		return nil, errNoSecret
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(v.Leeway))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errMissingToken
	}
	return strings.TrimSpace(token), nil
}

// RequireUser validates the Bearer token and injects user_id and role into
// the request context. Rejections use the standard error envelope.
func RequireUser(verifier JWTVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := httpserver.RequestIDFromContext(r.Context())
			token, err := bearerToken(r)
			if err != nil {
				api.Unauthorized(w, "MISSING_TOKEN", "bearer token required", reqID)
				return
			}
			claims, err := verifier.Parse(token)
			if err != nil {
				api.Unauthorized(w, "INVALID_TOKEN", "token is invalid or expired", reqID)
				return
			}
			ctx := WithUserID(r.Context(), claims.Subject)
			if role := strings.TrimSpace(claims.Role); role != "" {
				ctx = WithRole(ctx, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
