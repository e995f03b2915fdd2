package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cliquepay/cliqued/internal/clique"
	"github.com/cliquepay/cliqued/internal/config"
	"github.com/cliquepay/cliqued/internal/models"
	"github.com/cliquepay/cliqued/internal/security"
)

// userAuthMiddleware validates identity tokens and loads the caller into
// the gin context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		claims, errJWT := security.ParseToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, "id = ?", claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user disabled"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}

// bearerToken extracts the token from the Authorization header, falling
// back to the token query parameter for websocket clients.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token != authHeader {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(c.Query("token"))
}

// requireCliqueRole resolves the caller's role for the clique in the
// route and aborts with 403 when it is below the required minimum. On
// success the resolved member is stored in the gin context.
func requireCliqueRole(eval *clique.Evaluator, min clique.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, okUser := c.Get("userID")
		userIDValue, okType := userID.(string)
		if !okUser || !okType || userIDValue == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}

		cliqueID := strings.TrimSpace(c.Param("id"))
		if cliqueID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing clique id"})
			return
		}

		member, errRequire := eval.Require(c.Request.Context(), userIDValue, cliqueID, min)
		if errRequire != nil {
			if errors.Is(errRequire, clique.ErrForbidden) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "resolve role failed"})
			return
		}

		c.Set("member", member)
		c.Next()
	}
}
