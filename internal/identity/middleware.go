package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxUserClaims = "tourledger_user_claims"

// anonymousClaims stands in for the caller when authentication is disabled.
var anonymousClaims = &UserClaims{
	RegisteredClaims: jwt.RegisteredClaims{Subject: Anonymous},
	Role:             RoleAdmin,
}

func bearer(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(h, "Bearer "), true
}

// authenticate verifies the Bearer token and stores its claims on c.
// It aborts the request and returns false on failure.
func authenticate(c *gin.Context, tokens *TokenIssuer) bool {
	if tokens == nil {
		c.Set(ctxUserClaims, anonymousClaims)
		return true
	}

	tokenStr, ok := bearer(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Bearer user token required",
		})
		return false
	}
	claims, err := tokens.Verify(tokenStr)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid user token: " + err.Error(),
		})
		return false
	}
	c.Set(ctxUserClaims, claims)
	return true
}

// RequireUser returns a Gin middleware that enforces a valid Bearer session token.
//
// On success it injects the *UserClaims into the context. A nil issuer
// disables enforcement and every caller is treated as Anonymous.
func RequireUser(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens) {
			return
		}
		c.Next()
	}
}

// RequireRole returns a Gin middleware that enforces a valid token carrying
// one of roles. Admin tokens pass every role check.
func RequireRole(tokens *TokenIssuer, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, tokens) {
			return
		}
		if !ClaimsFromCtx(c).HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": strings.Join(roles, " or ") + " role required",
			})
			return
		}
		c.Next()
	}
}

// OptionalUser injects claims when a valid Bearer token is present and
// never rejects the request.
func OptionalUser(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens != nil {
			if tokenStr, ok := bearer(c); ok {
				if claims, err := tokens.Verify(tokenStr); err == nil {
					c.Set(ctxUserClaims, claims)
				}
			}
		}
		c.Next()
	}
}

// ClaimsFromCtx retrieves the claims injected by RequireUser, RequireRole or
// OptionalUser. Returns nil if no caller was authenticated.
func ClaimsFromCtx(c *gin.Context) *UserClaims {
	v, _ := c.Get(ctxUserClaims)
	claims, _ := v.(*UserClaims)
	return claims
}

// ActorFromCtx returns the caller's actor string, or Anonymous.
func ActorFromCtx(c *gin.Context) string {
	return ClaimsFromCtx(c).Actor()
}
