package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/workconnect/backend/internal/apperr"
	"github.com/workconnect/backend/internal/models"
	"github.com/workconnect/backend/internal/utils"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret string
	Expires   int
	Log       zerolog.Logger
}

type RegisterReq struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	password := strings.TrimSpace(req.Password)

	if req.FirstName == "" {
		return apperr.Validation("first name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return apperr.Validation("a valid email is required")
	}
	if len(password) < 6 {
		return apperr.Validation("password must be at least 6 characters")
	}

	var existing models.User
	err := h.DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return apperr.Conflict("email already registered")
	}
	if err != gorm.ErrRecordNotFound {
		return apperr.Internal("failed to check existing account", err)
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return apperr.Internal("failed to process password", err)
	}

	user := models.User{
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Email:       email,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Password:    hashed,
		Roles:       models.RoleSet{models.RoleClient},
		Active:      true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return apperr.Internal("failed to create account", err)
	}

	token, err := utils.SignJWT(h.JWTSecret, user.ID.String(), user.Roles.Strings(), h.Expires)
	if err != nil {
		return apperr.Internal("failed to sign token", err)
	}

	h.Log.Info().Str("user", user.ID.String()).Msg("user registered")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"token": token,
			"user":  userSummary(&user),
		},
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return apperr.Validation("email and password are required")
	}

	var user models.User
	if err := h.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return apperr.Unauthorized("invalid email or password")
	}
	if !user.Active {
		return apperr.Forbidden("account is deactivated")
	}
	if !utils.CheckPassword(user.Password, req.Password) {
		return apperr.Unauthorized("invalid email or password")
	}

	token, err := utils.SignJWT(h.JWTSecret, user.ID.String(), user.Roles.Strings(), h.Expires)
	if err != nil {
		return apperr.Internal("failed to sign token", err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"token": token,
			"user":  userSummary(&user),
		},
	})
}

func userSummary(u *models.User) fiber.Map {
	return fiber.Map{
		"id":            u.ID,
		"firstName":     u.FirstName,
		"lastName":      u.LastName,
		"email":         u.Email,
		"phoneNumber":   u.PhoneNumber,
		"roles":         u.Roles,
		"jobsPosted":    u.JobsPosted,
		"jobsAccepted":  u.JobsAccepted,
		"jobsCompleted": u.JobsCompleted,
	}
}
