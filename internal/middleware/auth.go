package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"triphub/internal/config"
	"triphub/internal/contextutils"
	"triphub/internal/response"
	"triphub/internal/services"
)

// Authenticator verifies bearer tokens issued by the identity service. This
// service never issues tokens.
type Authenticator struct {
	cfg    *config.AuthConfig
	writer *response.Writer
	logger *zap.Logger
}

// NewAuthenticator creates the token verification middleware.
func NewAuthenticator(cfg *config.AuthConfig, writer *response.Writer, logger *zap.Logger) *Authenticator {
	return &Authenticator{cfg: cfg, writer: writer, logger: logger}
}

type claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// RequireAuth rejects requests without a valid bearer token. With no secret
// configured, requests pass through unauthenticated for local development.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.JWTSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			a.writer.Error(w, r, services.NewUnauthorizedError("missing bearer token"))
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		parsed := &claims{}
		token, err := jwt.ParseWithClaims(
			tokenString, parsed,
			func(token *jwt.Token) (interface{}, error) {
				return []byte(a.cfg.JWTSecret), nil
			},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(a.cfg.JWTIssuer),
		)
		if err != nil || !token.Valid {
			a.logger.Debug("Token verification failed", zap.Error(err))
			a.writer.Error(w, r, services.NewUnauthorizedError("invalid token"))
			return
		}

		ctx := contextutils.WithUserID(r.Context(), parsed.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
