package middlewares

import (
	"context"
	"net/http"
	"strings"

	"bitbucket.org/travelshield/portal_backend/utils"
	"github.com/gin-gonic/gin"
)

type authString string

// AuthMiddleware validates the long-lived "remember me" jwt. On success the
// claims are attached to the request context so login can be skipped.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.Next()
			return
		}
		auth = auth[len(bearer):]

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"Status": "Unauthorized", "Message": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := context.WithValue(c.Request.Context(), authString("auth"), customClaim)
		ctx = utils.SetUsernameInContext(ctx, customClaim.Username)
		ctx = utils.SetIsAdminInContext(ctx, customClaim.EmployeeType == "Admin")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authString("auth")).(*utils.JwtCustomClaim)
	return raw
}
