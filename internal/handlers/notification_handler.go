package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/workconnect/backend/internal/apperr"
	"github.com/workconnect/backend/internal/models"
)

type NotificationHandler struct {
	DB *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := h.DB.Where("user_id = ?", callerID)
	if c.Query("unread") == "true" {
		q = q.Where("read = ?", false)
	}

	var notifications []models.Notification
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&notifications).Error; err != nil {
		return apperr.Internal("failed to list notifications", err)
	}

	return c.JSON(fiber.Map{"success": true, "data": notifications})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.Validation("invalid notification id")
	}

	var notification models.Notification
	if err := h.DB.First(&notification, "id = ?", id).Error; err != nil {
		return apperr.NotFound("notification not found")
	}
	if notification.UserID != callerID {
		return apperr.Forbidden("unauthorized action")
	}

	if !notification.Read {
		notification.Read = true
		if err := h.DB.Save(&notification).Error; err != nil {
			return apperr.Internal("failed to mark notification read", err)
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": notification})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}

	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", callerID, false).
		Update("read", true).Error; err != nil {
		return apperr.Internal("failed to mark notifications read", err)
	}

	return c.JSON(fiber.Map{"success": true, "message": "All notifications marked as read"})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}

	var count int64
	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", callerID, false).
		Count(&count).Error; err != nil {
		return apperr.Internal("failed to count notifications", err)
	}

	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"unread": count}})
}
