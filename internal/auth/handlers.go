package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/habit-tracker/internal/apierr"
	"github.com/jimdaga/habit-tracker/internal/models"
)

// UserResponse is the public shape of an account. The password hash never
// leaves the service.
type UserResponse struct {
	ID         uint       `json:"id"`
	Email      string     `json:"email"`
	Username   string     `json:"username"`
	Phone      *string    `json:"phone"`
	TelegramID *string    `json:"telegram_id"`
	City       *string    `json:"city"`
	Avatar     *string    `json:"avatar"`
	IsActive   bool       `json:"is_active"`
	DateJoined time.Time  `json:"date_joined"`
	LastLogin  *time.Time `json:"last_login"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		Username:   u.Username,
		Phone:      u.Phone,
		TelegramID: u.TelegramID,
		City:       u.City,
		Avatar:     u.Avatar,
		IsActive:   u.IsActive,
		DateJoined: u.DateJoined,
		LastLogin:  u.LastLogin,
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type accessResponse struct {
	Access string `json:"access"`
}

// HandleRegister creates an account.
func HandleRegister(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in RegisterInput
		if !bindJSON(c, &in) {
			return
		}

		user, err := svc.Register(c.Request.Context(), in)
		if err != nil {
			apierr.Respond(c, err)
			return
		}

		slog.Info("User registered", "user_id", user.ID)
		c.JSON(http.StatusCreated, NewUserResponse(user))
	}
}

// HandleLogin exchanges email and password for an access/refresh pair.
func HandleLogin(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in loginRequest
		if !bindJSON(c, &in) {
			return
		}

		pair, err := svc.Login(c.Request.Context(), in.Email, in.Password)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, pair)
	}
}

// HandleRefresh issues a new access token from a refresh token.
func HandleRefresh(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in refreshRequest
		if !bindJSON(c, &in) {
			return
		}

		access, err := svc.Refresh(c.Request.Context(), in.Refresh)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, accessResponse{Access: access})
	}
}

// HandleProfile returns the authenticated user's account.
func HandleProfile(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		apierr.Respond(c, apierr.Unauthorized(errors.New("not authenticated")))
		return
	}
	c.JSON(http.StatusOK, NewUserResponse(user))
}

// HandleUpdateProfile applies a partial update to the authenticated user.
func HandleUpdateProfile(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			apierr.Respond(c, apierr.Unauthorized(errors.New("not authenticated")))
			return
		}

		var in ProfileInput
		if !bindJSON(c, &in) {
			return
		}

		updated, err := svc.UpdateProfile(c.Request.Context(), user.ID, in)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, NewUserResponse(updated))
	}
}

// bindJSON decodes the body and runs its binding rules, writing a 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		apierr.Respond(c, apierr.BadRequest("invalid_body", err))
		return false
	}
	return true
}
