package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"leaderbox-server/handlers"
	"leaderbox-server/services"
	"leaderbox-server/store"
	"leaderbox-server/utils"
	"leaderbox-server/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — avatars are the largest upload
	})

	// CORS — origins come from the environment, defaulting to the local web app.
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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	profileStore := buildProfileStore()

	sessionSecret := os.Getenv("SESSION_JWT_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_JWT_SECRET environment variable not set")
	}

	tmdbBearer := os.Getenv("TMDB_API_BEARER")
	if tmdbBearer == "" {
		log.Println("⚠️  TMDB_API_BEARER not set — movie endpoints will answer 500 misconfiguration")
	}

	uploader, err := utils.NewR2FromEnv()
	if err != nil {
		log.Printf("⚠️  Avatar uploads disabled: %v", err)
		uploader = nil
	}

	profileService := services.NewProfileService(profileStore, uploader)
	duelService := services.NewDuelService(profileStore)
	movieService := services.NewMovieService(tmdbBearer, utils.HTTPClient)
	leaderboardService := services.NewLeaderboardService(profileStore)
	authService := services.NewAuthService(
		profileStore,
		services.DefaultProviders(
			os.Getenv("TIKTOK_CLIENT_KEY"),
			os.Getenv("TIKTOK_CLIENT_SECRET"),
			os.Getenv("AUTH0_DOMAIN"),
			os.Getenv("AUTH0_CLIENT_ID"),
			os.Getenv("AUTH0_CLIENT_SECRET"),
		),
		sessionSecret,
		utils.HTTPClient,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	levelAudit := workers.NewLevelAuditWorker(profileStore, 5*time.Minute)
	levelAudit.Start(ctx)

	if err := leaderboardService.Refresh(); err != nil {
		log.Printf("⚠️  Initial leaderboard snapshot failed: %v", err)
	}
	leaderboardService.StartSnapshotScheduler()

	handlers.SetupProfileRoutes(app, profileService, sessionSecret)
	handlers.SetupDuelRoutes(app, duelService, leaderboardService)
	handlers.SetupMovieRoutes(app, movieService)
	handlers.SetupAuthRoutes(app, authService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Level Audit Worker running")
	log.Println("✅ Leaderboard snapshot scheduler running (every 1m)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// buildProfileStore picks the backend from PROFILE_STORE: "file" (default)
// or "postgres".
func buildProfileStore() store.ProfileStore {
	backend := os.Getenv("PROFILE_STORE")
	if backend == "" {
		backend = "file"
	}

	switch backend {
	case "postgres":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			log.Fatal("DATABASE_URL environment variable not set")
		}
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			log.Fatal("failed to connect to database:", err)
		}
		s, err := store.NewGormStore(db)
		if err != nil {
			log.Fatal("failed to initialize postgres profile store:", err)
		}
		log.Println("🗄️ Profile store: postgres")
		return s
	case "file":
		path := os.Getenv("PROFILE_FILE")
		if path == "" {
			path = "data/profiles.json"
		}
		s, err := store.NewFileStore(path)
		if err != nil {
			log.Fatal("failed to initialize file profile store:", err)
		}
		log.Printf("🗄️ Profile store: file (%s)", path)
		return s
	default:
		log.Fatalf("unknown PROFILE_STORE %q (want file or postgres)", backend)
		return nil
	}
}
