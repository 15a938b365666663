package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"zerogpool-backend/handlers"
	"zerogpool-backend/models"
	"zerogpool-backend/services"
	"zerogpool-backend/utils"
	"zerogpool-backend/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 2 * 1024 * 1024 * 1024, // 2GB, WebGL build uploads
	})

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Account{},
		&models.ChainStatSnapshot{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := services.NewChainClient(ctx)
	if err != nil {
		log.Fatal("failed to initialize blockchain client:", err)
	}

	referralService := services.NewReferralService(db)
	authService := services.NewAuthService(db, chainClient, referralService)
	userService := services.NewUserService(db)
	leaderboardService := services.NewLeaderboardService(db)
	chainService := services.NewChainService(db, chainClient)
	clientService := services.NewClientService()

	referralService.StartReconcileScheduler()

	statsWorker := workers.NewChainStatsWorker(db, chainClient)
	go statsWorker.PollChainStats(ctx, 60*time.Second)

	handlers.SetupAuthRoutes(app, authService)
	handlers.SetupUserRoutes(app, userService, leaderboardService)
	handlers.SetupReferralRoutes(app, referralService)
	handlers.SetupChainRoutes(app, chainService)
	handlers.SetupClientRoutes(app, clientService)

	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"success":    true,
			"status":     "ok",
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"blockchain": chainClient.IsReady(),
		})
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":    "ZeroGPool Backend API",
			"blockchain": chainClient.IsReady(),
			"endpoints":  fiber.Map{
				"auth":        "POST /api/auth/login",
				"user":        "GET|POST /api/user",
				"leaderboard": "GET /api/leaderboard",
				"referral":    "POST /api/referral/generate, POST /api/referral/claim, GET /api/referral/stats",
				"blockchain":  "GET /api/blockchain/session/:walletAddress, GET /api/blockchain/login-count/:walletAddress, GET /api/blockchain/stats",
				"health":      "GET /api/health",
			},
		})
	})

	app.Use("/webgl", func(c *fiber.Ctx) error {
		originalPath := c.Path()
		relativePath := strings.TrimPrefix(originalPath, "/webgl")
		if relativePath == "" {
			relativePath = "/"
		}

		decodedPath, err := url.PathUnescape(relativePath)
		if err != nil {
			log.Printf("Error decoding path: %v", err)
			return c.Status(fiber.StatusNotFound).SendString("File not found")
		}

		ext := filepath.Ext(originalPath)
		if ext == ".br" {
			c.Set("Content-Encoding", "br")
		}

		c.Path(decodedPath)

		return filesystem.New(filesystem.Config{
			Root:         http.Dir("./public/webgl"),
			PathPrefix:   "",
			Index:        "index.html",
			MaxAge:       3600,
			NotFoundFile: "index.html",
		})(c)
	})

	if err := os.MkdirAll("./public/webgl", os.ModePerm); err != nil {
		log.Fatal("failed to ensure webgl public dir:", err)
	}

	// JSON 404 for anything not matched above
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Route not found",
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	if chainClient.IsReady() {
		log.Printf("✅ Blockchain mirror enabled (contract %s)", chainClient.ContractAddress())
	} else {
		log.Println("⚠️  Blockchain mirror disabled — login sessions will not be recorded on-chain")
	}
	log.Println("✅ Referral reconcile scheduler running (every 10m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
