package app

import (
	"scorm_trends_backend/docs"
	"scorm_trends_backend/internal/config"
	"scorm_trends_backend/internal/middleware"
	"scorm_trends_backend/internal/model"
	"scorm_trends_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/login", c.auth.Login)
	}

	// 2. 报表仅教师和管理员可见
	reports := router.Group("/api/scorm")
	reports.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Teacher))
	{
		reports.GET("/:id/trends", c.trends.GetReport)
		reports.GET("/:id/trends/table", c.trends.GetTable)
		reports.DELETE("/:id/trends/cache", c.trends.InvalidateCache)
	}
}
