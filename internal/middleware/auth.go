package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/datapeak/curator/pkg/auth"

	"github.com/gin-gonic/gin"
)

const (
	ScopeSubmit = "curator:submit"
	ScopeReview = "curator:review"
	ScopeAdmin  = "curator:admin"
)

// SubmitterAuth authenticates contribution endpoints. The validator is
// selected at wiring time via the auth provider registry; a nil validator
// means the deployment runs open (dev only).
func SubmitterAuth(validator auth.Validator) gin.HandlerFunc {
	return bearerAuth(validator, "")
}

// ReviewerAuth authenticates review endpoints and demands the review scope.
func ReviewerAuth(validator auth.Validator) gin.HandlerFunc {
	return bearerAuth(validator, ScopeReview)
}

func bearerAuth(validator auth.Validator, requiredScope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if validator == nil {
			c.Next()
			return
		}
		claims, err := validateBearer(validator, c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if requiredScope != "" && !claims.HasScope(requiredScope) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing scope " + requiredScope})
			return
		}
		setCallerContext(c, claims)
		c.Next()
	}
}

// RequireAdmin guards operational endpoints (auto-approve, relay admin).
// Accepts either the admin scope or an ADMIN role claim. In dev mode the
// X-Role header stands in for the role claim so the CLI --admin flag works
// against a local server.
func RequireAdmin(devMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetCallerClaims(c)
		if claims.HasScope(ScopeAdmin) {
			c.Next()
			return
		}
		if v, _ := c.Get("userRole"); v == "ADMIN" {
			c.Next()
			return
		}
		if devMode && strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Role")), "ADMIN") {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized. Admin only"})
	}
}

func validateBearer(validator auth.Validator, authHeader string) (*auth.Claims, error) {
	if strings.TrimSpace(authHeader) == "" {
		return nil, fmt.Errorf("missing Authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fmt.Errorf("invalid Authorization format")
	}
	return validator.Validate(parts[1])
}

func setCallerContext(c *gin.Context, claims *auth.Claims) {
	c.Set("userClaims", claims)

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		subject = strings.TrimSpace(claims.Email)
	}
	c.Set("userID", subject)

	role := ""
	if v, ok := claims.Raw["role"].(string); ok {
		role = strings.ToUpper(strings.TrimSpace(v))
	}
	if role == "" {
		role = "USER"
	}
	c.Set("userRole", role)
}

// GetCallerClaims returns the validated claims for the current request, or
// nil when the route runs unauthenticated.
func GetCallerClaims(c *gin.Context) *auth.Claims {
	v, ok := c.Get("userClaims")
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// GetCallerID returns the authenticated subject, or the empty string.
func GetCallerID(c *gin.Context) string {
	v, _ := c.Get("userID")
	id, _ := v.(string)
	return id
}
