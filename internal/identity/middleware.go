package identity

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "acp_principal"

// Auth attaches caller principals to requests. When a bearer token is
// present it must verify; otherwise the configured development principal
// (if any) is attached. Production deployments leave DevPrincipal nil so
// unauthenticated requests carry no principal.
type Auth struct {
	tokens       *TokenIssuer // nil = no JWT verification
	adminSecret  string       // empty = header-based admin access disabled
	devPrincipal *Principal   // nil = no development fallback
}

// NewAuth creates the auth middleware provider.
func NewAuth(tokens *TokenIssuer, adminSecret string, devPrincipal *Principal) *Auth {
	return &Auth{tokens: tokens, adminSecret: adminSecret, devPrincipal: devPrincipal}
}

// FromCtx returns the caller principal attached to the request, or nil.
func FromCtx(c *gin.Context) *Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, ok := v.(*Principal)
	if !ok {
		return nil
	}
	return p
}

// Attach resolves the caller principal and stores it on the context.
// Never aborts; handlers that require a principal use Require instead.
func (a *Auth) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p := a.resolve(c); p != nil {
			c.Set(principalKey, p)
		}
		c.Next()
	}
}

// Require aborts with 401 when no principal can be resolved.
func (a *Auth) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := a.resolve(c)
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "AUTHENTICATION_ERROR",
					"message":    "Authentication required",
					"statusCode": http.StatusUnauthorized,
				},
			})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireAdmin aborts with 403 unless the caller presents the admin secret
// header or an admin-role token.
func (a *Auth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.adminSecret != "" {
			secret := c.GetHeader("X-Admin-Secret")
			if secret != "" && subtle.ConstantTimeCompare([]byte(secret), []byte(a.adminSecret)) == 1 {
				c.Set(principalKey, &Principal{UserID: "admin", Admin: true})
				c.Next()
				return
			}
		}

		if p := a.resolve(c); p != nil && p.Admin {
			c.Set(principalKey, p)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":       "AUTHORIZATION_ERROR",
				"message":    "Insufficient permissions",
				"statusCode": http.StatusForbidden,
			},
		})
	}
}

// resolve determines the caller principal: bearer token first, then the
// development fallback.
func (a *Auth) resolve(c *gin.Context) *Principal {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") && a.tokens != nil {
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := a.tokens.Verify(tokenStr)
		if err != nil {
			return nil
		}
		return &Principal{
			UserID: claims.UserID,
			Wallet: claims.Wallet,
			Admin:  claims.Role == "admin",
		}
	}
	return a.devPrincipal
}
