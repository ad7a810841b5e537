// README: Firebase bearer-token auth, caller identity helpers and role gating.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chauffeur/internal/infra"
)

const (
	ctxUID  = "callerUID"
	ctxRole = "callerRole"
	ctxOrg  = "callerOrg"
)

// Auth verifies the Firebase ID token and stores uid, role and organization
// on the context.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil || token == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(ctxUID, token.UID)
		c.Set(ctxRole, token.Role())
		c.Set(ctxOrg, token.Organization())
		c.Next()
	}
}

func CallerUID(c *gin.Context) string  { return c.GetString(ctxUID) }
func CallerRole(c *gin.Context) string { return c.GetString(ctxRole) }
func CallerOrg(c *gin.Context) string  { return c.GetString(ctxOrg) }

// RequireRoles lets the request through only when the caller's role is one
// of allowed (case-insensitive). It must run after Auth.
func RequireRoles(allowed ...string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	return func(c *gin.Context) {
		role := strings.ToLower(strings.TrimSpace(CallerRole(c)))
		if role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: no role claim"})
			return
		}
		if _, ok := set[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: role not allowed"})
			return
		}
		c.Next()
	}
}
