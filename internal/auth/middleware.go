package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"smmart/internal/audit"
	"smmart/internal/models"
	"smmart/internal/rbac"
)

const principalKey = "principal"

// Principal is the authenticated caller, resolved once per request.
type Principal struct {
	User        *models.User
	Role        *models.UserRole
	Permissions rbac.Set
	Claims      *Claims
}

func (p *Principal) Can(perm string) bool { return p.Permissions.Has(perm) }

// RoleName is the caller's role name, empty when the role row is missing.
func (p *Principal) RoleName() string {
	if p.Role == nil {
		return ""
	}
	return p.Role.Name
}

// Actor describes the caller for audit records.
func (p *Principal) Actor(c *gin.Context) audit.Actor {
	return audit.Actor{
		UserID:    p.User.ID,
		OrgID:     p.User.OrganizationID,
		Name:      p.User.Name,
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}

// Current returns the principal stored by JWT. Handlers behind JWT can rely
// on it being present.
func Current(c *gin.Context) *Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}

// SetPrincipal stores p on the request context.
func SetPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
	c.Set("claims", p.Claims)
	c.Set("user_id", p.User.ID)
}

// BearerToken extracts the token from "Authorization: Bearer <t>" or the
// "Token <t>" form.
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	for _, scheme := range []string{"Bearer ", "Token "} {
		if len(h) > len(scheme) && strings.EqualFold(h[:len(scheme)], scheme) {
			return strings.TrimSpace(h[len(scheme):])
		}
	}
	return ""
}

// JWT returns a Gin middleware that validates the bearer token, checks it
// has not been revoked, verifies that the user still exists and is active,
// and resolves the user's permissions.
func JWT(db *gorm.DB, tokens *Tokens, denylist Denylist, chk rbac.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := BearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		revoked, err := denylist.Revoked(c.Request.Context(), claims.ID)
		if err != nil {
			log.Error().Err(err).Msg("token denylist lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
			return
		}

		var user models.User
		if err := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		role, perms, err := chk.Resolve(c.Request.Context(), &user)
		if err != nil {
			log.Error().Err(err).Int64("user_id", user.ID).Msg("resolving permissions failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		SetPrincipal(c, &Principal{User: &user, Role: role, Permissions: perms, Claims: claims})
		c.Next()
	}
}

// Require aborts with 403 unless the principal holds perm.
func Require(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := Current(c)
		if p == nil || !p.Can(perm) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "missing": perm})
			return
		}
		c.Next()
	}
}
