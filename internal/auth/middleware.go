package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"hrattendance/internal/logging"
	"hrattendance/internal/org"
)

type ctxKey struct{}

const identityKey = "identity"

// WithIdentity stores ident in ctx.
func WithIdentity(ctx context.Context, ident org.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, ident)
}

// IdentityFromContext returns the identity stored by Authenticate.
func IdentityFromContext(ctx context.Context) (org.Identity, bool) {
	ident, ok := ctx.Value(ctxKey{}).(org.Identity)
	return ident, ok
}

// IdentityFrom returns the caller identity of a gin request.
func IdentityFrom(c *gin.Context) (org.Identity, bool) {
	if v, ok := c.Get(identityKey); ok {
		ident, ok := v.(org.Identity)
		return ident, ok
	}
	return IdentityFromContext(c.Request.Context())
}

// Authenticate enforces bearer JWT tokens signed with HS256 and attaches the
// caller identity to the request.
func Authenticate(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logging.FromContext(c.Request.Context())
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			abort(c, "missing bearer token")
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			log.Warn("token rejected", slog.Any("error", err))
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token has expired"
			}
			abort(c, msg)
			return
		}
		ident := claims.Identity()
		ctx := WithIdentity(c.Request.Context(), ident)
		ctx = logging.WithLogger(ctx, log.With(slog.String("caller_id", ident.ID), slog.String("role", string(ident.Role))))
		c.Request = c.Request.WithContext(ctx)
		c.Set(identityKey, ident)
		c.Next()
	}
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"kind": "unauthenticated", "message": msg}})
}
