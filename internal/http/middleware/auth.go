// README: Firebase ID-token auth middleware; resolves the caller into a types.Actor.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"localpro/internal/infra"
	"localpro/internal/types"
)

const actorKey = "localpro.actor"

// Custom claims set on the Firebase user by the admin tooling.
const (
	claimProvider      = "provider"
	claimAdmin         = "admin"
	claimEmailVerified = "email_verified"
)

// Auth rejects requests without a valid "Bearer <id token>" header.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(actorKey, ActorFromToken(token))
		c.Next()
	}
}

func ActorFromToken(token *infra.FirebaseToken) types.Actor {
	return types.Actor{
		UserID:        types.ID(token.UID),
		EmailVerified: boolClaim(token.Claims, claimEmailVerified),
		IsProvider:    boolClaim(token.Claims, claimProvider),
		IsAdmin:       boolClaim(token.Claims, claimAdmin),
	}
}

// CallerActor returns the authenticated caller, or the zero Actor on public routes.
func CallerActor(c *gin.Context) types.Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return types.Actor{}
	}
	actor, _ := v.(types.Actor)
	return actor
}

func CallerUID(c *gin.Context) string {
	return string(CallerActor(c).UserID)
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CallerActor(c).IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

func boolClaim(claims map[string]interface{}, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
