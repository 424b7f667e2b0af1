package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"farm-marketplace/cache"
	"farm-marketplace/config"
	"farm-marketplace/consumers"
	"farm-marketplace/controllers"
	"farm-marketplace/database"
	"farm-marketplace/logging"
	"farm-marketplace/middlewares"
	"farm-marketplace/rabbitmq"
)

func main() {
	logger := logging.GetSugaredLogger()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalw("failed to load configuration", "error", err)
	}

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatalw("database initialization failed", "error", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.MigrationsDir); err != nil {
		logger.Fatalw("database migration failed", "error", err)
	}

	rmq, err := rabbitmq.NewRabbitMQ(cfg)
	if err != nil {
		logger.Fatalw("RabbitMQ initialization failed", "error", err)
	}
	defer rmq.Close()

	if err := rmq.SetupQueues(); err != nil {
		logger.Fatalw("failed to setup RabbitMQ queues", "error", err)
	}

	if err := consumers.StartNotificationConsumer(rmq.Channel, cfg, logger); err != nil {
		logger.Fatalw("failed to start notification consumer", "error", err)
	}

	productCache := cache.NewProductCache(cfg.RedisAddr, cfg.ProductCacheTTL)
	defer productCache.Close()

	authCtl := &controllers.AuthController{DB: db, Cfg: cfg, Logger: logger}
	profileCtl := &controllers.ProfileController{DB: db, Logger: logger}
	productCtl := &controllers.ProductController{DB: db, Cache: productCache, Logger: logger}
	favoriteCtl := &controllers.FavoriteController{DB: db, Logger: logger}
	orderCtl := &controllers.OrderController{DB: db, Notifier: rmq, Logger: logger}
	producerOrderCtl := &controllers.ProducerOrderController{DB: db, Notifier: rmq, Logger: logger}

	r := gin.Default()
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/dead-letter", controllers.HandleDeadLetter(logger))

	api := r.Group("/api")
	authRequired := middlewares.AuthMiddleware(cfg.JWTSecret, logger)
	authOptional := middlewares.OptionalAuthMiddleware(cfg.JWTSecret, logger)

	// Public surface.
	api.POST("/accounts/register", authCtl.Register)
	api.POST("/accounts/token", authCtl.Login)
	api.GET("/profiles", profileCtl.ListProducers)
	api.GET("/profiles/me", authRequired, profileCtl.MyProfile)
	api.PATCH("/profiles/me", authRequired, profileCtl.UpdateMyProfile)
	api.GET("/profiles/:username", profileCtl.GetProducer)
	api.GET("/products", authOptional, productCtl.ListProducts)
	api.GET("/products/:id", productCtl.GetProduct)

	// Authenticated surface.
	authGroup := api.Group("")
	authGroup.Use(authRequired)
	{
		authGroup.GET("/accounts/me", authCtl.Me)
		authGroup.PATCH("/accounts/me", authCtl.UpdateMe)

		authGroup.POST("/products", productCtl.CreateProduct)
		authGroup.PUT("/products/:id", productCtl.UpdateProduct)
		authGroup.PATCH("/products/:id", productCtl.UpdateProduct)
		authGroup.DELETE("/products/:id", productCtl.DeleteProduct)

		authGroup.GET("/favorites/products", favoriteCtl.ListFavorites)
		authGroup.POST("/favorites/products", favoriteCtl.CreateFavorite)
		authGroup.DELETE("/favorites/products/:id", favoriteCtl.DeleteFavorite)

		authGroup.POST("/orders", orderCtl.CreateOrder)
		authGroup.GET("/orders", orderCtl.ListOrders)
		authGroup.GET("/orders/:order_id", orderCtl.GetOrder)
		// Orders are append-only once placed.
		authGroup.PUT("/orders/:order_id", controllers.MethodNotAllowed)
		authGroup.PATCH("/orders/:order_id", controllers.MethodNotAllowed)
		authGroup.DELETE("/orders/:order_id", controllers.MethodNotAllowed)

		producerGroup := authGroup.Group("/producer-orders")
		producerGroup.Use(middlewares.RequireProducer(db, logger))
		{
			producerGroup.GET("", producerOrderCtl.ListOrders)
			producerGroup.GET("/:order_id", producerOrderCtl.GetOrder)
			producerGroup.PATCH("/:order_id", producerOrderCtl.UpdateOrderStatus)
			producerGroup.POST("/:order_id/mark-shipped", producerOrderCtl.MarkShipped)
			producerGroup.POST("", controllers.MethodNotAllowed)
			producerGroup.PUT("/:order_id", controllers.MethodNotAllowed)
			producerGroup.DELETE("/:order_id", controllers.MethodNotAllowed)
		}
	}

	logger.Infow("marketplace API starting", "address", cfg.RunAddress)
	if err := r.Run(cfg.RunAddress); err != nil {
		logger.Fatalw("failed to start server", "error", err)
	}
}
