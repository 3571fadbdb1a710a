package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"yantarmarket/internal/app/market/util"
	"yantarmarket/pkg/logger"
	"yantarmarket/pkg/metrics"
)

// SetupRoutes настраивает все маршруты приложения с использованием Gin
// Чтение каталога публичное, запись только для администраторов
func SetupRoutes(catalogHandler *CatalogHandler, userHandler *UserHandler, jwtManager *util.JWTManager) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов
	router.Use(logger.GinLoggerMiddleware())

	// Prometheus metrics middleware
	router.Use(metrics.GinPrometheusMiddleware("market"))

	// CORS настройки
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "market",
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := Authenticate(jwtManager)
	adminOnly := RequireAdmin()

	// Categories endpoints
	categories := router.Group("/categories")
	{
		categories.GET("", catalogHandler.GetAllCategories) // Список категорий (кеш Redis)
		categories.GET("/:id", catalogHandler.GetCategory)

		categories.POST("", authRequired, adminOnly, catalogHandler.CreateCategory)
		categories.PUT("/:id", authRequired, adminOnly, catalogHandler.UpdateCategory)
		categories.DELETE("/:id", authRequired, adminOnly, catalogHandler.DeleteCategory) // Защита от удаления непустой категории
	}

	// Products endpoints
	products := router.Group("/products")
	{
		products.GET("", catalogHandler.ListProducts)
		products.GET("/search", catalogHandler.SearchProducts)
		products.GET("/categories", catalogHandler.ListUsedCategories)
		products.POST("/filter", catalogHandler.FilterProducts)
		products.GET("/:id", catalogHandler.GetProduct)
		products.GET("/:id/related", catalogHandler.ListRelatedProducts)
		products.GET("/:id/photo", catalogHandler.ProductPhoto)

		products.POST("", authRequired, adminOnly, catalogHandler.CreateProduct)
		products.PUT("/:id", authRequired, adminOnly, catalogHandler.UpdateProduct) // Отправляет в Kafka при изменении цены
		products.DELETE("/:id", authRequired, adminOnly, catalogHandler.DeleteProduct)
	}

	// Auth endpoints - публичные
	auth := router.Group("/auth")
	{
		auth.POST("/register", userHandler.Register)
		auth.POST("/login", userHandler.Login)
	}

	// Users endpoints - требуют аутентификации
	users := router.Group("/users")
	users.Use(authRequired)
	{
		users.GET("/me", userHandler.Profile)
		users.GET("/me/history", userHandler.PurchaseHistory)
	}

	return router
}
