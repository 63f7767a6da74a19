package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/workconnect/backend/internal/apperr"
	"github.com/workconnect/backend/internal/metrics"
	"github.com/workconnect/backend/internal/models"
	"github.com/workconnect/backend/internal/notify"
)

// BookingHandler owns the scheduler: weekly availability, booking creation
// with overlap checks, and the booking status machine.
type BookingHandler struct {
	DB       *gorm.DB
	Notifier *notify.Notifier
	Log      zerolog.Logger
}

func NewBookingHandler(db *gorm.DB, notifier *notify.Notifier, log zerolog.Logger) *BookingHandler {
	return &BookingHandler{DB: db, Notifier: notifier, Log: log}
}

type AvailabilitySlotReq struct {
	DayOfWeek   int             `json:"dayOfWeek"`
	StartTime   string          `json:"startTime"`
	EndTime     string          `json:"endTime"`
	IsAvailable *bool           `json:"isAvailable"`
	BreakTimes  json.RawMessage `json:"breakTimes"`
}

type SetAvailabilityReq struct {
	Availability []AvailabilitySlotReq `json:"availability"`
}

// SetAvailability replaces the caller's weekly schedule with the submitted
// slots. One record per (worker, day); resubmitting a day overwrites it.
func (h *BookingHandler) SetAvailability(c *fiber.Ctx) error {
	workerID, err := callerUUID(c)
	if err != nil {
		return err
	}

	var req SetAvailabilityReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if len(req.Availability) == 0 {
		return apperr.Validation("at least one availability slot is required")
	}

	for _, slot := range req.Availability {
		if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 {
			return apperr.Validation("dayOfWeek must be between 0 (Sunday) and 6 (Saturday)")
		}
		if !models.ValidClockTime(slot.StartTime) || !models.ValidClockTime(slot.EndTime) {
			return apperr.Validation("start and end times must be in HH:mm format")
		}
		if models.ClockMinutes(slot.EndTime) <= models.ClockMinutes(slot.StartTime) {
			return apperr.Validation("end time must be after start time")
		}
	}

	var saved []models.Availability
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		for _, slot := range req.Availability {
			avail := true
			if slot.IsAvailable != nil {
				avail = *slot.IsAvailable
			}

			var record models.Availability
			err := tx.Where("worker_id = ? AND day_of_week = ?", workerID, slot.DayOfWeek).First(&record).Error
			switch {
			case err == gorm.ErrRecordNotFound:
				record = models.Availability{
					WorkerID:    workerID,
					DayOfWeek:   slot.DayOfWeek,
					StartTime:   slot.StartTime,
					EndTime:     slot.EndTime,
					IsAvailable: avail,
					BreakTimes:  datatypes.JSON(slot.BreakTimes),
				}
				if err := tx.Create(&record).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				record.StartTime = slot.StartTime
				record.EndTime = slot.EndTime
				record.IsAvailable = avail
				record.BreakTimes = datatypes.JSON(slot.BreakTimes)
				if err := tx.Save(&record).Error; err != nil {
					return err
				}
			}
			saved = append(saved, record)
		}
		return nil
	})
	if err != nil {
		return passthrough(err, "failed to save availability")
	}

	return c.JSON(fiber.Map{"success": true, "data": saved})
}

func (h *BookingHandler) GetAvailability(c *fiber.Ctx) error {
	workerID, err := uuid.Parse(c.Params("workerId"))
	if err != nil {
		return apperr.Validation("invalid worker id")
	}

	var slots []models.Availability
	if err := h.DB.Where("worker_id = ?", workerID).
		Order("day_of_week ASC").
		Find(&slots).Error; err != nil {
		return apperr.Internal("failed to load availability", err)
	}

	return c.JSON(fiber.Map{"success": true, "data": slots})
}

type CreateBookingReq struct {
	JobID     uuid.UUID        `json:"jobId"`
	WorkerID  uuid.UUID        `json:"workerId"`
	StartTime *time.Time       `json:"startTime"`
	EndTime   *time.Time       `json:"endTime"`
	Notes     string           `json:"notes"`
	Location  *models.Location `json:"location"`
	Price     int64            `json:"price"`
}

// CreateBooking reserves a worker's time slot. The availability and overlap
// checks run inside the same transaction as the insert, and the exclusion
// constraint backstops concurrent requests.
func (h *BookingHandler) CreateBooking(c *fiber.Ctx) error {
	clientID, err := callerUUID(c)
	if err != nil {
		return err
	}

	var req CreateBookingReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.JobID == uuid.Nil || req.WorkerID == uuid.Nil {
		return apperr.Validation("jobId and workerId are required")
	}
	if req.StartTime == nil || req.EndTime == nil {
		return apperr.Validation("startTime and endTime are required")
	}
	if !req.EndTime.After(*req.StartTime) {
		return apperr.Validation("end time must be after start time")
	}
	if req.StartTime.Before(time.Now()) {
		return apperr.Validation("booking must be in the future")
	}

	var booking models.Booking
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.First(&job, "id = ?", req.JobID).Error; err != nil {
			return apperr.NotFound("job not found")
		}
		if job.ClientID != clientID {
			return apperr.Forbidden("only the job owner can book for this job")
		}

		// The requested window must fall on a day the worker has declared
		// available.
		day := int(req.StartTime.Weekday())
		var avail models.Availability
		err := tx.Where("worker_id = ? AND day_of_week = ? AND is_available = ?", req.WorkerID, day, true).
			First(&avail).Error
		if err != nil {
			return apperr.Conflict("worker is not available on the requested day")
		}
		startMin := req.StartTime.Hour()*60 + req.StartTime.Minute()
		endMin := req.EndTime.Hour()*60 + req.EndTime.Minute()
		if startMin < models.ClockMinutes(avail.StartTime) || endMin > models.ClockMinutes(avail.EndTime) {
			return apperr.Conflict("requested time is outside the worker's available hours")
		}

		var clash int64
		if err := tx.Model(&models.Booking{}).
			Where("worker_id = ? AND status IN ?", req.WorkerID, models.ActiveBookingStatuses).
			Where("start_time < ? AND end_time > ?", req.EndTime, req.StartTime).
			Count(&clash).Error; err != nil {
			return err
		}
		if clash > 0 {
			metrics.IncBookingConflict()
			return apperr.Conflict("worker already has a booking in this time slot")
		}

		booking = models.Booking{
			JobID:     req.JobID,
			WorkerID:  req.WorkerID,
			ClientID:  clientID,
			StartTime: *req.StartTime,
			EndTime:   *req.EndTime,
			Status:    models.BookingStatusPending,
			Notes:     req.Notes,
			Price:     req.Price,
		}
		if req.Location != nil {
			booking.Location = *req.Location
		} else {
			booking.Location = job.Location
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}

		var client models.User
		if err := tx.First(&client, "id = ?", clientID).Error; err != nil {
			return err
		}

		return h.Notifier.Notify(tx, req.WorkerID, models.NotifBookingCreated,
			fmt.Sprintf("New booking request from %s for the job: %s", client.FullName(), job.Title),
			&job.ID, fiber.Map{
				"bookingId": booking.ID,
				"startTime": booking.StartTime,
				"endTime":   booking.EndTime,
				"client": fiber.Map{
					"id":          client.ID,
					"name":        client.FullName(),
					"phoneNumber": client.PhoneNumber,
				},
			})
	})
	if err != nil {
		return passthrough(err, "failed to create booking")
	}

	h.Log.Info().Stringer("booking", booking.ID).Stringer("worker", req.WorkerID).Msg("booking created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Booking request sent",
		"data":    booking,
	})
}

func (h *BookingHandler) listBookings(c *fiber.Ctx, column string) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}

	q := h.DB.Where(column+" = ?", callerID)

	if s := c.Query("status"); s != "" {
		status := models.BookingStatus(s)
		if !status.Valid() {
			return apperr.Validation("invalid booking status filter")
		}
		q = q.Where("status = ?", status)
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return apperr.Validation("from must be an RFC3339 timestamp")
		}
		q = q.Where("end_time > ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return apperr.Validation("to must be an RFC3339 timestamp")
		}
		q = q.Where("start_time < ?", t)
	}

	var bookings []models.Booking
	if err := q.Preload("Job").Preload("Worker").Preload("Client").
		Order("start_time ASC").
		Find(&bookings).Error; err != nil {
		return apperr.Internal("failed to list bookings", err)
	}

	return c.JSON(fiber.Map{"success": true, "data": bookings})
}

func (h *BookingHandler) WorkerBookings(c *fiber.Ctx) error {
	return h.listBookings(c, "worker_id")
}

func (h *BookingHandler) ClientBookings(c *fiber.Ctx) error {
	return h.listBookings(c, "client_id")
}

type UpdateBookingStatusReq struct {
	Status models.BookingStatus `json:"status"`
}

// UpdateStatus drives the booking state machine. Confirmation assigns the
// job to the worker; completion mirrors the two-phase job flow.
func (h *BookingHandler) UpdateStatus(c *fiber.Ctx) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}
	bookingID, err := uuid.Parse(c.Params("bookingId"))
	if err != nil {
		return apperr.Validation("invalid booking id")
	}

	var req UpdateBookingStatusReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if !req.Status.Valid() {
		return apperr.Validation("unknown booking status")
	}

	var booking models.Booking
	var message string

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&booking, "id = ?", bookingID).Error; err != nil {
			return apperr.NotFound("booking not found")
		}

		isWorker := booking.WorkerID == callerID
		isClient := booking.ClientID == callerID
		if !isWorker && !isClient {
			return apperr.Forbidden("unauthorized action")
		}

		var job models.Job
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&job, "id = ?", booking.JobID).Error; err != nil {
			return apperr.NotFound("job not found")
		}

		switch req.Status {
		case models.BookingStatusConfirmed:
			if !isWorker {
				return apperr.Forbidden("only the worker can confirm a booking")
			}
			if booking.Status != models.BookingStatusPending {
				return apperr.Conflict("only pending bookings can be confirmed")
			}

			var active int64
			if err := tx.Model(&models.Job{}).
				Where("worker_id = ? AND status = ?", booking.WorkerID, models.JobStatusInProgress).
				Count(&active).Error; err != nil {
				return err
			}
			if active > 0 {
				return apperr.Conflict("you already have a job in progress")
			}

			booking.Status = models.BookingStatusConfirmed
			if err := tx.Save(&booking).Error; err != nil {
				return err
			}

			// Confirming the booking assigns the job.
			if job.Status == models.JobStatusOpen {
				job.Status = models.JobStatusInProgress
				job.WorkerID = &booking.WorkerID
				if err := tx.Save(&job).Error; err != nil {
					return err
				}
				metrics.IncJobTransition(string(models.JobStatusOpen), string(models.JobStatusInProgress))

				if err := tx.Model(&models.User{}).
					Where("id = ?", booking.WorkerID).
					Update("jobs_accepted", gorm.Expr("jobs_accepted + 1")).Error; err != nil {
					return err
				}
			}

			message = "Booking confirmed"
			return h.Notifier.Notify(tx, booking.ClientID, models.NotifBookingConfirmed,
				fmt.Sprintf("Your booking for the job %q has been confirmed", job.Title),
				&job.ID, fiber.Map{"bookingId": booking.ID})

		case models.BookingStatusRejected:
			if !isWorker {
				return apperr.Forbidden("only the worker can reject a booking")
			}
			if booking.Status != models.BookingStatusPending {
				return apperr.Conflict("only pending bookings can be rejected")
			}

			booking.Status = models.BookingStatusRejected
			if err := tx.Save(&booking).Error; err != nil {
				return err
			}

			message = "Booking rejected"
			return h.Notifier.Notify(tx, booking.ClientID, models.NotifBookingRejected,
				fmt.Sprintf("Your booking for the job %q has been rejected", job.Title),
				&job.ID, fiber.Map{"bookingId": booking.ID})

		case models.BookingStatusAwaiting:
			if !isWorker {
				return apperr.Forbidden("only the worker can request completion")
			}
			if booking.Status != models.BookingStatusConfirmed {
				return apperr.Conflict("only confirmed bookings can request completion")
			}

			booking.Status = models.BookingStatusAwaiting
			if err := tx.Save(&booking).Error; err != nil {
				return err
			}
			if job.Status == models.JobStatusInProgress {
				job.Status = models.JobStatusAwaiting
				job.PaymentStatus = models.PaymentInProgress
				if err := tx.Save(&job).Error; err != nil {
					return err
				}
				metrics.IncJobTransition(string(models.JobStatusInProgress), string(models.JobStatusAwaiting))
			}

			message = "Booking completion requested. Waiting for client approval."
			return h.Notifier.Notify(tx, booking.ClientID, models.NotifBookingComplReq,
				fmt.Sprintf("Worker has requested to complete the booking for the job: %s", job.Title),
				&job.ID, fiber.Map{"bookingId": booking.ID})

		case models.BookingStatusCompleted:
			if !isClient {
				return apperr.Forbidden("only the client can confirm completion")
			}
			if booking.Status != models.BookingStatusAwaiting {
				return apperr.Conflict("worker has not requested completion yet")
			}

			booking.Status = models.BookingStatusCompleted
			if err := tx.Save(&booking).Error; err != nil {
				return err
			}
			if job.Status == models.JobStatusAwaiting {
				job.Status = models.JobStatusCompleted
				job.PaymentStatus = models.PaymentCompleted
				job.ClientVerification = true
				job.WorkerVerification = true
				if err := tx.Save(&job).Error; err != nil {
					return err
				}
				metrics.IncJobTransition(string(models.JobStatusAwaiting), string(models.JobStatusCompleted))

				if err := tx.Model(&models.User{}).
					Where("id = ?", booking.WorkerID).
					Update("jobs_completed", gorm.Expr("jobs_completed + 1")).Error; err != nil {
					return err
				}
			}

			message = "Booking completed"
			return h.Notifier.Notify(tx, booking.WorkerID, models.NotifBookingCompleted,
				fmt.Sprintf("Client has confirmed completion of the booking for the job: %s", job.Title),
				&job.ID, fiber.Map{"bookingId": booking.ID})

		case models.BookingStatusCancelled:
			if booking.Status.Terminal() {
				return apperr.Conflict("booking is already finished")
			}

			booking.Status = models.BookingStatusCancelled
			if err := tx.Save(&booking).Error; err != nil {
				return err
			}

			other := booking.WorkerID
			if isWorker {
				other = booking.ClientID
			}
			message = "Booking cancelled"
			return h.Notifier.Notify(tx, other, models.NotifBookingStatus,
				fmt.Sprintf("The booking for the job %q has been cancelled", job.Title),
				&job.ID, fiber.Map{"bookingId": booking.ID})

		default:
			// "pending" is the creation state, never a transition target.
			return apperr.Validation("unsupported status transition")
		}
	})
	if err != nil {
		return passthrough(err, "failed to update booking status")
	}

	return c.JSON(fiber.Map{"success": true, "message": message, "data": booking})
}
