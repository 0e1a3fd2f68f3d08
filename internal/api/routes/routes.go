package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yoockh/yoointerview/internal/api/handlers"
	"github.com/yoockh/yoointerview/internal/api/middleware"
)

type Deps struct {
	Auth      *handlers.AuthHandler
	Admin     *handlers.AdminHandler
	Interview *handlers.InterviewHandler
	WS        *handlers.WSHandler

	JWTSecret string
	JWTIssuer string

	// Redis shares rate-limit counters between replicas; nil keeps them in memory.
	Redis       *redis.Client
	Development bool
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.Use(middleware.SecureHeaders(d.Development))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/api")

	api.POST("/admin/login", middleware.RateLimit(d.Redis, time.Minute, 10), d.Auth.Login)

	// Admin (JWT)
	admin := api.Group("/admin")
	admin.Use(middleware.JWTAuth(d.JWTSecret, d.JWTIssuer), middleware.RequireAdmin())

	admin.POST("/invitations", d.Admin.CreateInvitation)
	admin.POST("/notifications", d.Admin.SendNotification)
	admin.POST("/sessions/:token/resend", d.Admin.Resend)
	admin.DELETE("/sessions/:token", d.Admin.DeleteSession)
	admin.GET("/sessions/:token/analysis", d.Admin.Analysis)
	admin.GET("/sessions/:token/evaluation", d.Admin.Evaluation)

	// Candidate (token in path or body)
	api.GET("/interview-data", d.Interview.Session)
	api.GET("/interview/:token", d.Interview.Session)
	api.POST("/interview/questions", middleware.RateLimit(d.Redis, time.Minute, 60), d.Interview.Question)
	api.POST("/interview/followups", middleware.RateLimit(d.Redis, time.Minute, 60), d.Interview.FollowUps)
	api.POST("/interview/evaluations", middleware.RateLimit(d.Redis, time.Minute, 20), d.Interview.Evaluate)
	api.POST("/interview/:token/transcribe", middleware.RateLimit(d.Redis, time.Minute, 120), d.Interview.Transcribe)

	// WebSocket
	r.GET("/ws/interview/:token", d.WS.Interview)
}
