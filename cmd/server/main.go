package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"

	config "github.com/GapJohn23/profferex/configs"
	"github.com/GapJohn23/profferex/internal/api/handlers"
	"github.com/GapJohn23/profferex/internal/api/middleware"
	"github.com/GapJohn23/profferex/internal/cache"
	job "github.com/GapJohn23/profferex/internal/jobs"
	"github.com/GapJohn23/profferex/internal/repository"
	"github.com/GapJohn23/profferex/internal/scheduler"
	"github.com/GapJohn23/profferex/internal/service"
	"github.com/GapJohn23/profferex/internal/twitter"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	inspector := asynq.NewInspector(redisConn)
	defer inspector.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    10 * 1024 * 1024, // 10 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewTwitterAccountRepository(db)
	tweetRepo := repository.NewScheduledTweetRepository(db)
	attemptRepo := repository.NewPublishAttemptRepository(db)

	accountCache := cache.NewAccountCache(rdb)
	sched := scheduler.NewAsynqScheduler(client, inspector)
	factory := twitter.NewClientFactory(cfg.TwitterConsumerKey, cfg.TwitterConsumerSecret)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	r2Service := service.NewR2Service(*cfg)
	linkService := service.NewTwitterLinkService(*cfg, accountRepo, accountCache, factory)
	accountService := service.NewAccountService(*cfg, accountRepo, tweetRepo, accountCache, sched, factory)
	tweetService := service.NewTweetService(*cfg, tweetRepo, accountRepo, attemptRepo, accountCache, sched, factory)
	mediaService := service.NewMediaService(*cfg, accountRepo, accountCache, r2Service, factory)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	twitterHandler := handlers.NewTwitterHandler(linkService, accountService, mediaService)
	app.Get("/twitter/callback", twitterHandler.Callback)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	api.Get("/twitter/link", twitterHandler.CreateLink)
	api.Get("/twitter/accounts", twitterHandler.ListAccounts)
	api.Get("/twitter/accounts/active", twitterHandler.GetActiveAccount)
	api.Post("/twitter/accounts/active", twitterHandler.SetActiveAccount)
	api.Post("/twitter/accounts/remove", twitterHandler.RemoveAccount)
	api.Post("/twitter/media/upload", twitterHandler.UploadMedia)

	tweet := handlers.NewTweetHandler(tweetService)
	api.Post("/tweets/post", tweet.PostNow)
	api.Post("/tweets/schedule", tweet.Schedule)
	api.Get("/tweets/scheduled", tweet.ListScheduled)
	api.Post("/tweets/scheduled/update", tweet.UpdateScheduled)
	api.Post("/tweets/scheduled/cancel", tweet.CancelScheduled)
	api.Get("/tweets/attempts", tweet.PublishHistory)

	// cron jobs
	reconcileJob := job.NewReconcileJob(tweetRepo, sched)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", reconcileJob.ReconcileOverdue)
	c.Start()

	worker := scheduler.NewWorker(tweetRepo, accountRepo, attemptRepo, factory, cfg.SecretKey)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(scheduler.TaskTypePublishTweet, worker.HandlePublishTweetTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
