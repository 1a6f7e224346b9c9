// Package routesはroutingを行います。
package routes

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/Vanaiyalini/TaskTrail/internal/config"
	"github.com/Vanaiyalini/TaskTrail/internal/database"
	"github.com/Vanaiyalini/TaskTrail/internal/handlers"
	"github.com/Vanaiyalini/TaskTrail/internal/services"
)

// SetupRouter はGinルーターをセットアップし、すべてのエンドポイントを登録します。
func SetupRouter(cfg config.Config, store *database.Store, jwtService *services.JWTService, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(log), gin.Recovery())

	// セキュリティヘッダー
	r.Use(secure.New(secure.Config{
		STSSeconds:            15552000,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		IENoOpen:              true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'self'; frame-ancestors 'none'",
	}))

	// CORS対策
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	errs := handlers.NewErrorWriter(log, cfg.IsDevelopment())

	// サービス
	userService := services.NewUserService(store.Users, jwtService, log)
	taskService := services.NewTaskService(store.Tasks, log)

	// ハンドラー
	userHandler := handlers.NewUserHandler(userService, errs)
	taskHandler := handlers.NewTaskHandler(taskService, errs)
	healthHandler := handlers.NewHealthHandler(store, errs)

	// ルーティング
	api := r.Group("/api")
	api.GET("/health", healthHandler.StatusHandler)
	api.GET("/health/db", healthHandler.DBCheckHandler)
	api.POST("/auth/register", userHandler.RegisterHandler)
	api.POST("/auth/login", userHandler.LoginHandler)

	authorized := api.Group("/")
	authorized.Use(AuthMiddleware(userService, errs))
	{
		authorized.GET("/auth/me", userHandler.MeHandler)
		authorized.PUT("/auth/me", userHandler.UpdateMeHandler)

		authorized.GET("/tasks", taskHandler.GetTasksHandler)
		authorized.GET("/tasks/:id", taskHandler.GetTaskByIDHandler)
		authorized.POST("/tasks", taskHandler.CreateTaskHandler)
		authorized.PUT("/tasks/:id", taskHandler.UpdateTaskHandler)
		authorized.DELETE("/tasks/:id", taskHandler.DeleteTaskHandler)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Route not found", "code": "not_found"})
	})

	return r
}
