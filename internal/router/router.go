package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"OnTrack/internal/handler"
	"OnTrack/internal/middleware"
)

func Register(h *server.Hertz, hd *handler.Handler) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	auth.Use(middleware.RateLimitMiddleware())
	{
		auth.POST("/session", hd.CreateSession)
	}

	// 档案路由
	profile := v1.Group("/profile")
	profile.Use(middleware.AuthMiddleware())
	{
		profile.GET("", hd.GetProfile)
		profile.PUT("", hd.UpdateProfile)
		profile.PUT("/subscription", hd.SetSubscription)
	}

	// work 与成就路由
	works := v1.Group("/works")
	works.Use(middleware.AuthMiddleware())
	works.Use(middleware.RateLimitMiddleware())
	{
		works.GET("", hd.ListWorks)
		works.POST("", hd.CreateWork)
		works.PUT("/:id", hd.UpdateWork)
		works.DELETE("/:id", hd.DeleteWork)
		works.PUT("/:id/skip", hd.SetWorkSkip)

		works.GET("/:id/achievements", hd.ListAchievements)
		works.POST("/:id/achievements", hd.CreateAchievement)
		works.PUT("/:id/achievements/:aid", hd.UpdateAchievementText)
		works.DELETE("/:id/achievements/:aid", hd.DeleteAchievement)
	}

	// 连胜路由
	streaks := v1.Group("/streaks")
	streaks.Use(middleware.AuthMiddleware())
	{
		streaks.GET("", hd.GetStreaks)
		streaks.GET("/grid", hd.GetWeeklyGrid)
	}

	// 生命周期与弹窗路由
	lifecycle := v1.Group("/lifecycle")
	lifecycle.Use(middleware.AuthMiddleware())
	{
		lifecycle.POST("/signal", hd.SignalLifecycle)
	}

	popups := v1.Group("/popups")
	popups.Use(middleware.AuthMiddleware())
	popups.Use(middleware.RateLimitMiddlewareWithConfig(middleware.PopupPollRateLimitConfig))
	{
		popups.GET("", hd.PollPopups)
	}
}
