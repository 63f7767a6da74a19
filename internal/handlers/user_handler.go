package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/workconnect/backend/internal/apperr"
	"github.com/workconnect/backend/internal/middleware"
	"github.com/workconnect/backend/internal/models"
	"github.com/workconnect/backend/internal/notify"
	"github.com/workconnect/backend/internal/utils"
)

type UserHandler struct {
	DB        *gorm.DB
	Notifier  *notify.Notifier
	JWTSecret string
	Expires   int
	Log       zerolog.Logger
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	uid := middleware.CallerID(c)

	var user models.User
	if err := h.DB.Preload("WorkerProfile").First(&user, "id = ?", uid).Error; err != nil {
		return apperr.NotFound("user not found")
	}

	return c.JSON(fiber.Map{"success": true, "data": user})
}

type WorkerProfileReq struct {
	Profession string   `json:"profession"`
	Skills     []string `json:"skills"`
	Experience string   `json:"experience"`
	About      string   `json:"about"`
}

// UpsertWorkerProfile creates or updates the caller's worker profile. The
// worker capability itself is granted separately, after review.
func (h *UserHandler) UpsertWorkerProfile(c *fiber.Ctx) error {
	uid, err := uuid.Parse(middleware.CallerID(c))
	if err != nil {
		return apperr.Unauthorized("invalid user id")
	}

	var req WorkerProfileReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if strings.TrimSpace(req.Profession) == "" {
		return apperr.Validation("profession is required")
	}
	if len(req.Skills) == 0 {
		return apperr.Validation("at least one skill is required")
	}

	var profile models.WorkerProfile
	err = h.DB.Where("user_id = ?", uid).First(&profile).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		profile = models.WorkerProfile{
			UserID:             uid,
			Profession:         req.Profession,
			Skills:             models.StringList(req.Skills),
			Experience:         req.Experience,
			About:              req.About,
			VerificationStatus: models.VerificationPending,
		}
		if err := h.DB.Create(&profile).Error; err != nil {
			return apperr.Internal("failed to create worker profile", err)
		}
	case err != nil:
		return apperr.Internal("failed to load worker profile", err)
	default:
		profile.Profession = req.Profession
		profile.Skills = models.StringList(req.Skills)
		profile.Experience = req.Experience
		profile.About = req.About
		if err := h.DB.Save(&profile).Error; err != nil {
			return apperr.Internal("failed to update worker profile", err)
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": profile})
}

// GrantWorker adds the worker capability to a user after admin review and
// approves their profile. Admin only.
func (h *UserHandler) GrantWorker(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&user, "id = ?", userID).Error; err != nil {
			return apperr.NotFound("user not found")
		}

		var profile models.WorkerProfile
		if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			return apperr.Conflict("user has no worker profile to approve")
		}

		user.Roles = user.Roles.Add(models.RoleWorker)
		if err := tx.Model(&user).Update("roles", user.Roles).Error; err != nil {
			return err
		}

		profile.VerificationStatus = models.VerificationApproved
		if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		return h.Notifier.Notify(tx, user.ID, models.NotifWorkerApproved,
			"Your worker profile has been approved. You can now accept jobs.", nil, nil)
	})
	if err != nil {
		if _, ok := err.(*apperr.Error); ok {
			return err
		}
		return apperr.Internal("failed to grant worker role", err)
	}

	h.Log.Info().Stringer("user", userID).Msg("worker capability granted")
	return c.JSON(fiber.Map{"success": true, "message": "worker capability granted"})
}

// RefreshToken reissues a token so a newly granted role shows up in claims.
func (h *UserHandler) RefreshToken(c *fiber.Ctx) error {
	uid := middleware.CallerID(c)

	var user models.User
	if err := h.DB.First(&user, "id = ?", uid).Error; err != nil {
		return apperr.NotFound("user not found")
	}
	if !user.Active {
		return apperr.Forbidden("account is deactivated")
	}

	token, err := utils.SignJWT(h.JWTSecret, user.ID.String(), user.Roles.Strings(), h.Expires)
	if err != nil {
		return apperr.Internal("failed to sign token", err)
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"token": token}})
}
