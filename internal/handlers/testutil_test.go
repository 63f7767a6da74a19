package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/workconnect/backend/internal/apperr"
	"github.com/workconnect/backend/internal/db"
	"github.com/workconnect/backend/internal/middleware"
	"github.com/workconnect/backend/internal/models"
	"github.com/workconnect/backend/internal/notify"
	"github.com/workconnect/backend/internal/services/fee"
	"github.com/workconnect/backend/internal/utils"
)

const testSecret = "test-secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// One connection so every query sees the same in-memory database.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// newTestApp wires the full route table against an in-memory database, the
// same way cmd/api does, minus redis and the websocket hub.
func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	gdb := newTestDB(t)
	log := zerolog.Nop()
	notifier := notify.New(nil, nil, log)
	fees := fee.NewService(gdb)

	authH := &AuthHandler{DB: gdb, JWTSecret: testSecret, Expires: 60, Log: log}
	userH := &UserHandler{DB: gdb, Notifier: notifier, JWTSecret: testSecret, Expires: 60, Log: log}
	jobH := NewJobHandler(gdb, notifier, fees, 10, log)
	bookingH := NewBookingHandler(gdb, notifier, log)
	notifH := NewNotificationHandler(gdb)

	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
	api := app.Group("/api")

	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)

	protected := api.Group("/", middleware.BearerAuth(testSecret))

	protected.Get("/me", userH.Me)
	protected.Post("/auth/refresh", userH.RefreshToken)
	protected.Put("/worker/profile", userH.UpsertWorkerProfile)
	protected.Post("/admin/users/:id/grant-worker",
		middleware.RequireRoles(models.RoleAdmin), userH.GrantWorker)

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

	protected.Put("/availability",
		middleware.RequireRoles(models.RoleWorker), bookingH.SetAvailability)
	protected.Get("/availability/:workerId", bookingH.GetAvailability)
	protected.Post("/bookings",
		middleware.RequireRoles(models.RoleClient), bookingH.CreateBooking)
	protected.Get("/bookings/worker", bookingH.WorkerBookings)
	protected.Get("/bookings/client", bookingH.ClientBookings)
	protected.Patch("/bookings/:bookingId/status", bookingH.UpdateStatus)

	protected.Get("/notifications", notifH.List)
	protected.Get("/notifications/unread-count", notifH.UnreadCount)
	protected.Patch("/notifications/:id/read", notifH.MarkRead)
	protected.Patch("/notifications/read-all", notifH.MarkAllRead)

	return app, gdb
}

// seedUser creates a user with the given roles and returns it with a signed
// token.
func seedUser(t *testing.T, gdb *gorm.DB, email string, roles ...models.Role) (*models.User, string) {
	t.Helper()

	hashed, err := utils.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  hashed,
		Roles:     models.RoleSet(roles),
		Active:    true,
	}
	require.NoError(t, gdb.Create(user).Error)

	token, err := utils.SignJWT(testSecret, user.ID.String(), user.Roles.Strings(), 60)
	require.NoError(t, err)
	return user, token
}

func seedWorkerProfile(t *testing.T, gdb *gorm.DB, user *models.User, skills ...string) {
	t.Helper()
	require.NoError(t, gdb.Create(&models.WorkerProfile{
		UserID:             user.ID,
		Profession:         "Handyman",
		Skills:             models.StringList(skills),
		VerificationStatus: models.VerificationApproved,
	}).Error)
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func dataField(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return data
}
