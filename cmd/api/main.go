package main

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/workconnect/backend/internal/apperr"
	"github.com/workconnect/backend/internal/config"
	"github.com/workconnect/backend/internal/db"
	"github.com/workconnect/backend/internal/handlers"
	"github.com/workconnect/backend/internal/logging"
	"github.com/workconnect/backend/internal/metrics"
	"github.com/workconnect/backend/internal/middleware"
	"github.com/workconnect/backend/internal/models"
	"github.com/workconnect/backend/internal/notify"
	"github.com/workconnect/backend/internal/realtime"
	"github.com/workconnect/backend/internal/services/fee"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.AppEnv)

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Redis only carries notification fanout; the API works without it.
		log.Warn().Err(err).Msg("redis unavailable, notification fanout disabled")
		rdb = nil
	}
	cancel()

	hub := realtime.NewHub(log)
	go hub.Run()

	notifier := notify.New(hub, rdb, log)
	fees := fee.NewService(gdb)

	metrics.Register()

	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.Handler,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.FrontendBaseURL,
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders: "Content-Length",
	}))
	app.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		metrics.IncHTTP(c.Route().Path, strconv.Itoa(c.Response().StatusCode()))
		return err
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	authH := &handlers.AuthHandler{DB: gdb, JWTSecret: cfg.JWTSecret, Expires: cfg.JWTExpiresMin, Log: log}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
		Log:             log,
	}
	userH := &handlers.UserHandler{DB: gdb, Notifier: notifier, JWTSecret: cfg.JWTSecret, Expires: cfg.JWTExpiresMin, Log: log}
	jobH := handlers.NewJobHandler(gdb, notifier, fees, cfg.ServiceFeePercent, log)
	bookingH := handlers.NewBookingHandler(gdb, notifier, log)
	notifH := handlers.NewNotificationHandler(gdb)

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)

	// protected
	protected := api.Group("/", middleware.BearerAuth(cfg.JWTSecret))

	protected.Get("/me", userH.Me)
	protected.Post("/auth/refresh", userH.RefreshToken)
	protected.Put("/worker/profile", userH.UpsertWorkerProfile)
	protected.Post("/admin/users/:id/grant-worker",
		middleware.RequireRoles(models.RoleAdmin), userH.GrantWorker)

	// jobs
	protected.Post("/jobs", middleware.RequireRoles(models.RoleClient), jobH.CreateJob)
	protected.Get("/jobs/open", jobH.ListOpen)
	protected.Get("/jobs/:jobId", jobH.GetDetails)
	protected.Delete("/jobs/:jobId", jobH.DeleteJob)
	protected.Post("/jobs/:jobId/cancel", jobH.Cancel)
	protected.Post("/jobs/:jobId/request-acceptance",
		middleware.RequireRoles(models.RoleWorker), jobH.RequestAcceptance)
	protected.Get("/jobs/:jobId/offers", jobH.ListOffers)
	protected.Post("/offers/:offerId/accept",
		middleware.RequireRoles(models.RoleClient), jobH.AcceptOffer)
	protected.Post("/jobs/:jobId/offers/:offerId/reject",
		middleware.RequireRoles(models.RoleClient), jobH.RejectOffer)
	protected.Post("/jobs/:jobId/complete", jobH.Complete)
	protected.Post("/jobs/:jobId/mark-paid",
		middleware.RequireRoles(models.RoleAdmin), jobH.MarkPaid)

	// scheduler
	protected.Put("/availability",
		middleware.RequireRoles(models.RoleWorker), bookingH.SetAvailability)
	protected.Get("/availability/:workerId", bookingH.GetAvailability)
	protected.Post("/bookings",
		middleware.RequireRoles(models.RoleClient), bookingH.CreateBooking)
	protected.Get("/bookings/worker", bookingH.WorkerBookings)
	protected.Get("/bookings/client", bookingH.ClientBookings)
	protected.Patch("/bookings/:bookingId/status", bookingH.UpdateStatus)

	// notifications
	protected.Get("/notifications", notifH.List)
	protected.Get("/notifications/unread-count", notifH.UnreadCount)
	protected.Patch("/notifications/:id/read", notifH.MarkRead)
	protected.Patch("/notifications/read-all", notifH.MarkAllRead)

	// websocket (auth via token query param)
	app.Get("/ws/notifications", websocket.New(realtime.NotificationSocket(hub, cfg.JWTSecret)))

	log.Info().Str("port", cfg.AppPort).Msg("starting api server")
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
