package middlewares

import (
	"net/http"

	"bitbucket.org/travelshield/portal_backend/config"
	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the redis-backed session token.
// A missing token falls through; protected handlers reject requests whose
// context carries no username (the SPA's redirect-to-login).
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"Status": "Unauthorized", "Message": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetUsernameInContext(ctx, username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
