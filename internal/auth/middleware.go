package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/habit-tracker/internal/apierr"
	"github.com/jimdaga/habit-tracker/internal/models"
)

const (
	userIDKey = "user_id"
	userKey   = "user"
)

// RequireAuth ensures the request carries a valid access token for an
// active user. The user is stored in the gin context for downstream handlers.
func RequireAuth(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			apierr.Respond(c, apierr.Unauthorized(errors.New("authentication credentials were not provided")))
			return
		}

		user, err := svc.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			apierr.Respond(c, err)
			return
		}

		c.Set(userIDKey, user.ID)
		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the user set by RequireAuth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
