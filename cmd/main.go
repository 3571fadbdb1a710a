package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"yantarmarket/internal/app/market/config"
	"yantarmarket/internal/app/market/handler"
	"yantarmarket/internal/app/market/processor"
	"yantarmarket/internal/app/market/repository"
	"yantarmarket/internal/app/market/service"
	"yantarmarket/internal/app/market/util"
	"yantarmarket/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init("market", cfg.LogLevel)

	mongoClient, err := connectMongoDB(cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error().Err(err).Msg("Error disconnecting from MongoDB")
		}
	}()
	logger.Info().
		Str("database", cfg.Mongo.Database).
		Msg("Connected to MongoDB")

	db := mongoClient.Database(cfg.Mongo.Database)

	redisClient, err := util.NewRedisClient(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Str("address", cfg.Redis.Address()).Msg("Connected to Redis")

	kafkaProducer := util.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.ProductTopic)
	defer kafkaProducer.Close()
	logger.Info().
		Str("topic", cfg.Kafka.ProductTopic).
		Msg("Initialized Kafka producer")

	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)

	jwtManager := util.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTTL)

	categoryService := service.NewCategoryService(categoryRepo, productRepo, redisClient)
	productService := service.NewProductService(productRepo, categoryRepo, kafkaProducer)
	settlementService := service.NewSettlementService(orderRepo, productRepo)
	historyService := service.NewHistoryService(orderRepo, productRepo, userRepo)
	authService := service.NewAuthService(userRepo, jwtManager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := processor.NewKafkaConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.OrderTopic,
		cfg.Kafka.GroupID,
		settlementService,
		historyService,
	)
	consumer.Start(ctx)

	auditor := processor.NewInventoryAuditor(productRepo)
	if err := auditor.Start(ctx, cfg.Audit.Schedule); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start inventory auditor")
	}

	catalogHandler := handler.NewCatalogHandler(categoryService, productService)
	userHandler := handler.NewUserHandler(authService, historyService)
	router := handler.SetupRoutes(catalogHandler, userHandler, jwtManager)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("Starting Market Service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Market Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	auditor.Stop()
	consumer.Stop()
	cancel()

	logger.Info().Msg("Market Service stopped gracefully")
}

func connectMongoDB(cfg config.MongoConfig) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(cfg.URI)

	var client *mongo.Client
	var err error

	for i := 0; i < 10; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		client, err = mongo.Connect(ctx, clientOptions)
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer pingCancel()

			if err = client.Ping(pingCtx, nil); err == nil {
				return client, nil
			}
		}

		logger.Warn().
			Int("attempt", i+1).
			Err(err).
			Msg("Failed to connect to MongoDB, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, err
}
