// Package server assembles the HTTP router.
package server

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/habit-tracker/internal/auth"
	"github.com/jimdaga/habit-tracker/internal/habits"
	"github.com/jimdaga/habit-tracker/internal/health"
	"github.com/jimdaga/habit-tracker/internal/logging"
)

type RouterConfig struct {
	Accounts    *auth.Service
	Habits      *habits.Service
	Payloads    *habits.PayloadDecoder
	Database    health.Pinger
	Logger      *slog.Logger
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.RequestLogger(cfg.Logger))

	if len(cfg.CORSOrigins) > 0 {
		corsCfg := cors.Config{
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			AllowHeaders: []string{"Authorization", "Content-Type", "X-Requested-With"},
			MaxAge:       12 * time.Hour,
		}
		if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
			corsCfg.AllowAllOrigins = true
		} else {
			corsCfg.AllowOrigins = cfg.CORSOrigins
		}
		router.Use(cors.New(corsCfg))
	}

	// Public
	router.GET("/health", gin.WrapF(health.Handler))
	if cfg.Database != nil {
		router.GET("/ready", gin.WrapF(health.Ready(cfg.Database)))
	}

	users := router.Group("/users")
	users.POST("/register", auth.HandleRegister(cfg.Accounts))
	users.POST("/login", auth.HandleLogin(cfg.Accounts))
	users.POST("/refresh", auth.HandleRefresh(cfg.Accounts))

	// Protected
	requireAuth := auth.RequireAuth(cfg.Accounts)

	profile := users.Group("", requireAuth)
	profile.GET("/profile", auth.HandleProfile)
	profile.PATCH("/update", auth.HandleUpdateProfile(cfg.Accounts))

	h := router.Group("/habits", requireAuth)
	h.POST("/new", habits.HandleCreate(cfg.Habits, cfg.Payloads))
	h.GET("/mine", habits.HandleList(cfg.Habits, habits.ScopeMine))
	h.GET("/public", habits.HandleList(cfg.Habits, habits.ScopePublic))
	h.GET("/:id", habits.HandleGet(cfg.Habits))
	h.PUT("/:id", habits.HandleUpdate(cfg.Habits, cfg.Payloads))
	h.PATCH("/:id", habits.HandleUpdate(cfg.Habits, cfg.Payloads))
	h.DELETE("/:id", habits.HandleDelete(cfg.Habits))

	return router
}
