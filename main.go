package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/madickediagne/LOGISEN/internal/api"
	"github.com/madickediagne/LOGISEN/internal/cache"
	"github.com/madickediagne/LOGISEN/internal/config"
	"github.com/madickediagne/LOGISEN/internal/db"
	"github.com/madickediagne/LOGISEN/internal/email"
	"github.com/madickediagne/LOGISEN/internal/services"
	"github.com/madickediagne/LOGISEN/internal/storage"
	"github.com/madickediagne/LOGISEN/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'img' (image processing), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	if err := db.EnsureIndexes(context.Background(), mongoDb); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Email sender selection. MOCK_SERVICES routes mail into Redis for
	// integration tests; LOG_EMAILS adds a file copy of everything sent.
	var primaryEmailSender email.Sender
	if os.Getenv("MOCK_SERVICES") == "true" {
		log.Println("MOCK_SERVICES enabled: Using Redis email sender.")
		primaryEmailSender = email.NewRedisSender(redisClient, cfg)
	} else {
		primaryEmailSender = email.NewSMTPSender(cfg)
	}

	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)

	logEmailsPath := os.Getenv("LOG_EMAILS")
	if logEmailsPath != "" {
		fileSender, err := email.NewFileEmailSender(logEmailsPath, cfg)
		if err != nil {
			log.Printf("WARNING: Failed to initialize file email sender (LOG_EMAILS='%s'): %v. Proceeding without file logging.", logEmailsPath, err)
		} else {
			compositeSender.AddSender(fileSender)
			log.Println("File email logger added to composite sender.")
		}
	}

	finalEmailSender := email.Sender(compositeSender)

	s3StorageService, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize S3 storage: %v", err)
	}

	taskClient := tasks.NewClient(redisClient)

	userService := services.NewUserService(mongoDb, cfg)
	listingService := services.NewListingService(mongoDb, cfg)
	visitService := services.NewVisitService(mongoDb, cfg, listingService, taskClient)

	taskProcessor := tasks.NewTaskProcessor(cfg, finalEmailSender, s3StorageService, listingService, visitService, userService)

	var wg sync.WaitGroup

	shutdownChan := make(chan struct{}, 1)

	serviceRouter := api.SetupServiceRouter(cfg, redisClient, shutdownChan)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: serviceRouter,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Service API listening on :%s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		log.Println("Service API server stopped.")
	}()

	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server
	var imageTaskSrv *asynq.Server

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		mainApiRouter := api.SetupRouter(cfg, mongoDb, redisClient, taskClient)
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: mainApiRouter,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Main API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			log.Println("Main API server stopped.")
		}()
	}

	bgMode := func() {
		log.Println("Starting background worker...")
		backgroundTaskSrv = tasks.SetupServer(redisClient, taskProcessor, false, true)
	}

	imgMode := func() {
		log.Println("Starting image processing worker...")
		imageTaskSrv = tasks.SetupServer(redisClient, taskProcessor, true, false)
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "img":
		imgMode()
	case "all":
		apiMode()
		bgMode()
		imgMode()
	default:
		log.Fatalf("Invalid run mode specified in config: %s.", cfg.RunMode)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)
	case <-shutdownChan:
		fmt.Println("\nShutdown requested via Service API. Shutting down gracefully...")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}

	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}

	if backgroundTaskSrv != nil {
		backgroundTaskSrv.Shutdown()
	}
	if imageTaskSrv != nil {
		imageTaskSrv.Shutdown()
	}

	wg.Wait()

	fmt.Println("Server gracefully stopped")
}
