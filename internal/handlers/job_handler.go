package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/workconnect/backend/internal/apperr"
	"github.com/workconnect/backend/internal/metrics"
	"github.com/workconnect/backend/internal/middleware"
	"github.com/workconnect/backend/internal/models"
	"github.com/workconnect/backend/internal/notify"
	"github.com/workconnect/backend/internal/services/fee"
)

// JobHandler owns the job lifecycle: posting, offer negotiation, two-phase
// completion and payment settlement. Every multi-record mutation runs in one
// transaction.
type JobHandler struct {
	DB       *gorm.DB
	Notifier *notify.Notifier
	Fees     *fee.Service
	FeePct   int
	Log      zerolog.Logger
}

func NewJobHandler(db *gorm.DB, notifier *notify.Notifier, fees *fee.Service, feePct int, log zerolog.Logger) *JobHandler {
	if feePct <= 0 || feePct > 100 {
		feePct = fee.DefaultPercentage
	}
	return &JobHandler{DB: db, Notifier: notifier, Fees: fees, FeePct: feePct, Log: log}
}

func callerUUID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.CallerID(c))
	if err != nil {
		return uuid.Nil, apperr.Unauthorized("invalid user id")
	}
	return id, nil
}

// passthrough keeps apperr values produced inside a transaction intact while
// wrapping everything else as an internal error.
func passthrough(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperr.Internal(msg, err)
}

type CreateJobReq struct {
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Category       string           `json:"category"`
	Budget         *int64           `json:"budget"`
	OpenToOffer    bool             `json:"openToOffer"`
	Location       *models.Location `json:"location"`
	SkillsRequired []string         `json:"skillsRequired"`
	RightNow       bool             `json:"rightNow"`
	ScheduledAt    *time.Time       `json:"scheduledDateTime"`
}

func (h *JobHandler) CreateJob(c *fiber.Ctx) error {
	clientID, err := callerUUID(c)
	if err != nil {
		return err
	}

	var req CreateJobReq
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" || strings.TrimSpace(req.Category) == "" {
		return apperr.Validation("title, description and category are required")
	}
	if req.Location == nil || !req.Location.Complete() {
		return apperr.Validation("location must include latitude, longitude, and address")
	}
	if !req.OpenToOffer {
		if req.Budget == nil || *req.Budget <= 0 {
			return apperr.Validation("budget is required unless the job is open to offers")
		}
	}
	if !req.RightNow && req.ScheduledAt == nil {
		return apperr.Validation("either rightNow must be true or scheduledDateTime must be provided")
	}
	if !req.RightNow && req.ScheduledAt.Before(time.Now()) {
		return apperr.Validation("scheduled date and time must be in the future")
	}

	scheduledAt := time.Now()
	if !req.RightNow {
		scheduledAt = *req.ScheduledAt
	}

	budget := req.Budget
	if req.OpenToOffer {
		budget = nil
	}

	job := models.Job{
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		Category:       req.Category,
		Budget:         budget,
		OpenToOffer:    req.OpenToOffer,
		Location:       *req.Location,
		SkillsRequired: models.StringList(req.SkillsRequired),
		RightNow:       req.RightNow,
		ScheduledAt:    scheduledAt,
		Status:         models.JobStatusOpen,
		ClientID:       clientID,
		PaymentStatus:  models.PaymentPending,
	}

	// Job row and the client's posted counter commit together.
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&job).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("id = ?", clientID).
			Update("jobs_posted", gorm.Expr("jobs_posted + 1")).Error
	})
	if err != nil {
		return passthrough(err, "failed to create job")
	}

	h.Log.Info().Stringer("job", job.ID).Stringer("client", clientID).Msg("job posted")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Job posted successfully",
		"data":    jobView(&job),
	})
}

// jobView hides the budget of open-to-offer jobs until an offer is accepted.
func jobView(job *models.Job) fiber.Map {
	var budget *int64
	if !job.OpenToOffer || job.Status != models.JobStatusOpen {
		budget = job.Budget
	}
	return fiber.Map{
		"id":                 job.ID,
		"title":              job.Title,
		"description":        job.Description,
		"category":           job.Category,
		"budgetType":         job.BudgetType(),
		"budget":             budget,
		"location":           job.Location,
		"skillsRequired":     job.SkillsRequired,
		"rightNow":           job.RightNow,
		"scheduledDateTime":  job.ScheduledAt,
		"status":             job.Status,
		"clientId":           job.ClientID,
		"workerId":           job.WorkerID,
		"paymentStatus":      job.PaymentStatus,
		"isPaid":             job.IsPaid,
		"paidAt":             job.PaidAt,
		"companyFee":         job.CompanyFee,
		"amountPaid":         job.AmountPaid,
		"clientVerification": job.ClientVerification,
		"workerVerification": job.WorkerVerification,
		"createdAt":          job.CreatedAt,
		"updatedAt":          job.UpdatedAt,
	}
}

func (h *JobHandler) ListOpen(c *fiber.Ctx) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}
	roles := middleware.CallerRoles(c)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		limit = 10
	}

	q := h.DB.Model(&models.Job{}).Where("status = ?", models.JobStatusOpen)

	switch c.Query("budgetType") {
	case "open_to_offer":
		q = q.Where("open_to_offer = ?", true)
	case "fixed":
		q = q.Where("open_to_offer = ?", false)
	}

	// Radius filter is the same flat approximation the mobile clients
	// expect: 1 degree ~= 111 km.
	lat := c.QueryFloat("latitude")
	lon := c.QueryFloat("longitude")
	radius := c.QueryFloat("radius")
	if lat != 0 && lon != 0 && radius > 0 {
		delta := radius / 111
		q = q.Where("location_latitude BETWEEN ? AND ?", lat-delta, lat+delta).
			Where("location_longitude BETWEEN ? AND ?", lon-delta, lon+delta)
	}

	var jobs []models.Job
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Preload("Client").
		Find(&jobs).Error; err != nil {
		return apperr.Internal("failed to list open jobs", err)
	}

	// Skill filtering happens in process: the skills column is a JSON list
	// and membership queries on it are not portable across dialects.
	var wanted []string
	if s := c.Query("skills"); s != "" {
		wanted = strings.Split(s, ",")
	}

	out := make([]fiber.Map, 0, len(jobs))
	for i := range jobs {
		job := &jobs[i]
		if len(wanted) > 0 && !hasAnySkill(job.SkillsRequired, wanted) {
			continue
		}
		v := jobView(job)
		v["canApply"] = roles.Has(models.RoleWorker)
		v["isClient"] = job.ClientID == callerID
		if job.Client != nil {
			v["client"] = fiber.Map{
				"id":          job.Client.ID,
				"firstName":   job.Client.FirstName,
				"lastName":    job.Client.LastName,
				"email":       job.Client.Email,
				"phoneNumber": job.Client.PhoneNumber,
			}
		}
		out = append(out, v)
	}

	return c.JSON(fiber.Map{"success": true, "data": out})
}

func hasAnySkill(have models.StringList, wanted []string) bool {
	for _, w := range wanted {
		if have.Contains(strings.TrimSpace(w)) {
			return true
		}
	}
	return false
}

func (h *JobHandler) GetDetails(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return apperr.Validation("invalid job id")
	}

	var job models.Job
	if err := h.DB.Preload("Client").Preload("Worker").First(&job, "id = ?", jobID).Error; err != nil {
		return apperr.NotFound("job not found")
	}

	v := jobView(&job)
	if job.Client != nil {
		v["client"] = fiber.Map{"name": job.Client.FullName(), "email": job.Client.Email}
	}
	if job.Worker != nil {
		v["worker"] = fiber.Map{"name": job.Worker.FullName(), "email": job.Worker.Email}
	}

	return c.JSON(fiber.Map{"success": true, "data": v})
}

// DeleteJob removes an open job. Owner only; assigned or finished jobs stay
// for bookkeeping.
func (h *JobHandler) DeleteJob(c *fiber.Ctx) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return apperr.Validation("invalid job id")
	}

	var job models.Job
	if err := h.DB.First(&job, "id = ?", jobID).Error; err != nil {
		return apperr.NotFound("job not found")
	}
	if job.ClientID != callerID {
		return apperr.Forbidden("only the job owner can delete it")
	}
	if job.Status != models.JobStatusOpen {
		return apperr.Conflict("only open jobs can be deleted")
	}

	if err := h.DB.Delete(&job).Error; err != nil {
		return apperr.Internal("failed to delete job", err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Job deleted successfully"})
}

type RequestAcceptanceReq struct {
	OfferAmount *int64 `json:"offerAmount"`
	Message     string `json:"message"`
}

// RequestAcceptance is a worker's bid on a job. Offers never mutate the job;
// fixed-budget jobs simply get an offer pinned to the posted budget.
func (h *JobHandler) RequestAcceptance(c *fiber.Ctx) error {
	workerID, err := callerUUID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return apperr.Validation("invalid job id")
	}

	var req RequestAcceptanceReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.Validation("invalid request body")
		}
	}

	var offer models.JobOffer
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var job models.Job
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&job, "id = ?", jobID).Error; err != nil {
			return apperr.NotFound("job not found")
		}
		if job.Status != models.JobStatusOpen {
			return apperr.Conflict("job is no longer available")
		}

		// One active job per worker.
		var active int64
		if err := tx.Model(&models.Job{}).
			Where("worker_id = ? AND status = ?", workerID, models.JobStatusInProgress).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return apperr.Conflict("you already have a job in progress")
		}

		var profile models.WorkerProfile
		if err := tx.Where("user_id = ?", workerID).First(&profile).Error; err != nil {
			return apperr.Conflict("complete your worker profile before accepting jobs")
		}
		if !profile.Skills.ContainsAll(job.SkillsRequired) {
			return apperr.Forbidden("you do not have the required skills for this job")
		}

		// One pending offer per (job, worker).
		var dup int64
		if err := tx.Model(&models.JobOffer{}).
			Where("job_id = ? AND worker_id = ? AND status = ?", job.ID, workerID, models.OfferStatusPending).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return apperr.Conflict("you already have a pending offer for this job")
		}

		var amount int64
		if job.OpenToOffer {
			if req.OfferAmount == nil || *req.OfferAmount <= 0 {
				return apperr.Validation("a positive offer amount is required for jobs open to offers")
			}
			amount = *req.OfferAmount
		} else {
			amount = *job.Budget
		}

		var worker models.User
		if err := tx.First(&worker, "id = ?", workerID).Error; err != nil {
			return err
		}

		message := req.Message
		if message == "" {
			message = fmt.Sprintf("Worker %s has made an offer of %d for your job: %s", worker.FullName(), amount, job.Title)
		}

		offer = models.JobOffer{
			JobID:       job.ID,
			WorkerID:    workerID,
			ClientID:    job.ClientID,
			OfferAmount: amount,
			Status:      models.OfferStatusPending,
			Message:     message,
		}
		if err := tx.Create(&offer).Error; err != nil {
			return err
		}

		notifType := models.NotifJobOffer
		notifMsg := fmt.Sprintf("Worker %s has made an offer of %d for your job: %s", worker.FullName(), amount, job.Title)
		if !job.OpenToOffer {
			notifType = models.NotifJobRequest
			notifMsg = fmt.Sprintf("Worker %s wants to accept your job: %s", worker.FullName(), job.Title)
		}

		return h.Notifier.Notify(tx, job.ClientID, notifType, notifMsg, &job.ID, fiber.Map{
			"offerId":     offer.ID,
			"offerAmount": amount,
		})
	})
	if err != nil {
		return passthrough(err, "failed to submit offer")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Job offer sent to client for review",
		"data":    offer,
	})
}

func (h *JobHandler) ListOffers(c *fiber.Ctx) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return apperr.Validation("invalid job id")
	}

	var job models.Job
	if err := h.DB.First(&job, "id = ?", jobID).Error; err != nil {
		return apperr.NotFound("job not found")
	}
	if job.ClientID != callerID {
		return apperr.Forbidden("unauthorized to view offers for this job")
	}

	var offers []models.JobOffer
	if err := h.DB.Preload("Worker").
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Find(&offers).Error; err != nil {
		return apperr.Internal("failed to list offers", err)
	}

	return c.JSON(fiber.Map{"success": true, "data": offers})
}

// AcceptOffer is the pivotal transition: job assignment, offer acceptance,
// fee creation and the worker's counter move in one transaction.
func (h *JobHandler) AcceptOffer(c *fiber.Ctx) error {
	clientID, err := callerUUID(c)
	if err != nil {
		return err
	}
	offerID, err := uuid.Parse(c.Params("offerId"))
	if err != nil {
		return apperr.Validation("invalid offer id")
	}

	var (
		job       models.Job
		offer     models.JobOffer
		feeRecord *models.ServiceFee
	)

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&offer, "id = ?", offerID).Error; err != nil {
			return apperr.NotFound("job offer not found")
		}
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&job, "id = ?", offer.JobID).Error; err != nil {
			return apperr.NotFound("job not found")
		}

		if job.ClientID != clientID {
			return apperr.Forbidden("unauthorized to accept this offer")
		}
		if job.Status != models.JobStatusOpen {
			return apperr.Conflict("job is no longer available")
		}
		if offer.Status != models.OfferStatusPending {
			return apperr.Conflict("offer is no longer pending")
		}

		// The partial unique index enforces this too; checking here turns a
		// storage error into a clean conflict.
		var active int64
		if err := tx.Model(&models.Job{}).
			Where("worker_id = ? AND status = ?", offer.WorkerID, models.JobStatusInProgress).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return apperr.Conflict("worker already has a job in progress")
		}

		job.Status = models.JobStatusInProgress
		job.WorkerID = &offer.WorkerID
		job.Budget = &offer.OfferAmount
		if err := tx.Save(&job).Error; err != nil {
			return err
		}
		metrics.IncJobTransition(string(models.JobStatusOpen), string(models.JobStatusInProgress))

		offer.Status = models.OfferStatusAccepted
		if err := tx.Save(&offer).Error; err != nil {
			return err
		}

		// Sibling pending offers lose.
		reason := "another offer was accepted"
		if err := tx.Model(&models.JobOffer{}).
			Where("job_id = ? AND id <> ? AND status = ?", job.ID, offer.ID, models.OfferStatusPending).
			Updates(map[string]interface{}{
				"status":           models.OfferStatusRejected,
				"rejection_reason": reason,
			}).Error; err != nil {
			return err
		}

		record, err := h.Fees.CreateForAcceptedOffer(tx, &job, &offer, h.FeePct)
		if err != nil {
			return err
		}
		feeRecord = record

		if err := tx.Model(&models.User{}).
			Where("id = ?", offer.WorkerID).
			Update("jobs_accepted", gorm.Expr("jobs_accepted + 1")).Error; err != nil {
			return err
		}

		var client models.User
		if err := tx.First(&client, "id = ?", clientID).Error; err != nil {
			return err
		}

		return h.Notifier.Notify(tx, offer.WorkerID, models.NotifOfferAccepted,
			fmt.Sprintf("Your offer of %d has been accepted for the job: %s", offer.OfferAmount, job.Title),
			&job.ID, fiber.Map{
				"offerId": offer.ID,
				"client": fiber.Map{
					"id":          client.ID,
					"name":        client.FullName(),
					"email":       client.Email,
					"phoneNumber": client.PhoneNumber,
				},
			})
	})
	if err != nil {
		return passthrough(err, "failed to accept offer")
	}

	h.Log.Info().Stringer("job", job.ID).Stringer("offer", offer.ID).Msg("offer accepted")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Job offer accepted",
		"data": fiber.Map{
			"job":        jobView(&job),
			"offer":      offer,
			"serviceFee": feeRecord,
		},
	})
}

type RejectOfferReq struct {
	Reason string `json:"reason"`
}

func (h *JobHandler) RejectOffer(c *fiber.Ctx) error {
	clientID, err := callerUUID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return apperr.Validation("invalid job id")
	}
	offerID, err := uuid.Parse(c.Params("offerId"))
	if err != nil {
		return apperr.Validation("invalid offer id")
	}

	var req RejectOfferReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.Validation("invalid request body")
		}
	}

	var offer models.JobOffer
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&offer, "id = ?", offerID).Error; err != nil {
			return apperr.NotFound("job offer not found")
		}
		if offer.JobID != jobID {
			return apperr.Validation("offer does not belong to this job")
		}

		var job models.Job
		if err := tx.First(&job, "id = ?", jobID).Error; err != nil {
			return apperr.NotFound("job not found")
		}
		if job.ClientID != clientID {
			return apperr.Forbidden("unauthorized to reject this offer")
		}
		if offer.Status != models.OfferStatusPending {
			return apperr.Conflict("offer is no longer pending")
		}

		offer.Status = models.OfferStatusRejected
		if req.Reason != "" {
			offer.RejectionReason = &req.Reason
		}
		if err := tx.Save(&offer).Error; err != nil {
			return err
		}

		if err := h.Notifier.Notify(tx, offer.WorkerID, models.NotifOfferRejected,
			fmt.Sprintf("Your offer for the job %q was declined", job.Title),
			&job.ID, fiber.Map{"offerId": offer.ID, "reason": req.Reason}); err != nil {
			return err
		}

		// Record-keeping copy for the client.
		return h.Notifier.Notify(tx, clientID, models.NotifSystem,
			fmt.Sprintf("You declined an offer for your job %q", job.Title),
			&job.ID, fiber.Map{"offerId": offer.ID})
	})
	if err != nil {
		return passthrough(err, "failed to reject offer")
	}

	return c.JSON(fiber.Map{"success": true, "message": "Job offer rejected", "data": offer})
}

// Complete is the two-phase completion: the assigned worker requests, then
// the client confirms.
func (h *JobHandler) Complete(c *fiber.Ctx) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return apperr.Validation("invalid job id")
	}

	var job models.Job
	var message string

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&job, "id = ?", jobID).Error; err != nil {
			return apperr.NotFound("job not found")
		}

		switch {
		case job.WorkerID != nil && *job.WorkerID == callerID:
			// Worker requests completion.
			if job.Status != models.JobStatusInProgress {
				return apperr.Conflict("job must be in progress before requesting completion")
			}
			job.Status = models.JobStatusAwaiting
			job.PaymentStatus = models.PaymentInProgress
			if err := tx.Save(&job).Error; err != nil {
				return err
			}
			metrics.IncJobTransition(string(models.JobStatusInProgress), string(models.JobStatusAwaiting))
			message = "Job completion requested. Waiting for client approval."
			return h.Notifier.Notify(tx, job.ClientID, models.NotifJobCompletionReq,
				fmt.Sprintf("Worker has requested to complete the job: %s", job.Title), &job.ID, nil)

		case job.ClientID == callerID:
			// Client confirms completion.
			if job.Status != models.JobStatusAwaiting {
				return apperr.Conflict("job completion request not yet made by worker")
			}
			job.Status = models.JobStatusCompleted
			job.PaymentStatus = models.PaymentCompleted
			job.ClientVerification = true
			job.WorkerVerification = true
			if err := tx.Save(&job).Error; err != nil {
				return err
			}
			metrics.IncJobTransition(string(models.JobStatusAwaiting), string(models.JobStatusCompleted))

			if err := tx.Model(&models.User{}).
				Where("id = ?", *job.WorkerID).
				Update("jobs_completed", gorm.Expr("jobs_completed + 1")).Error; err != nil {
				return err
			}
			message = "Job marked as completed."
			return h.Notifier.Notify(tx, *job.WorkerID, models.NotifJobCompleted,
				fmt.Sprintf("Client has confirmed completion of the job: %s", job.Title), &job.ID, nil)

		default:
			return apperr.Forbidden("unauthorized action")
		}
	})
	if err != nil {
		return passthrough(err, "failed to update job completion")
	}

	return c.JSON(fiber.Map{"success": true, "message": message, "data": jobView(&job)})
}

type CancelJobReq struct {
	Reason string `json:"reason"`
}

// Cancel is the explicit cancellation operation. The client may cancel while
// the job is open or in progress; the assigned worker only while in progress.
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	callerID, err := callerUUID(c)
	if err != nil {
		return err
	}
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return apperr.Validation("invalid job id")
	}

	var req CancelJobReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperr.Validation("invalid request body")
		}
	}

	var job models.Job
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&job, "id = ?", jobID).Error; err != nil {
			return apperr.NotFound("job not found")
		}
		if job.Status.Terminal() {
			return apperr.Conflict("job is already finished")
		}

		isClient := job.ClientID == callerID
		isWorker := job.WorkerID != nil && *job.WorkerID == callerID
		switch {
		case isClient:
			if job.Status != models.JobStatusOpen && job.Status != models.JobStatusInProgress {
				return apperr.Conflict("job can no longer be cancelled")
			}
		case isWorker:
			if job.Status != models.JobStatusInProgress {
				return apperr.Conflict("job can no longer be cancelled")
			}
		default:
			return apperr.Forbidden("unauthorized action")
		}

		prev := job.Status
		job.Status = models.JobStatusCancelled
		if err := tx.Save(&job).Error; err != nil {
			return err
		}
		metrics.IncJobTransition(string(prev), string(models.JobStatusCancelled))

		// Tell the other party, when there is one.
		var other *uuid.UUID
		if isClient && job.WorkerID != nil {
			other = job.WorkerID
		} else if isWorker {
			other = &job.ClientID
		}
		if other == nil {
			return nil
		}
		return h.Notifier.Notify(tx, *other, models.NotifJobCancelled,
			fmt.Sprintf("The job %q has been cancelled", job.Title),
			&job.ID, fiber.Map{"reason": req.Reason})
	})
	if err != nil {
		return passthrough(err, "failed to cancel job")
	}

	return c.JSON(fiber.Map{"success": true, "message": "Job cancelled", "data": jobView(&job)})
}

// MarkPaid settles a completed job: derives the company fee from the service
// fee record and closes both. Admin only.
func (h *JobHandler) MarkPaid(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return apperr.Validation("invalid job id")
	}

	var (
		job       models.Job
		feeRecord models.ServiceFee
	)

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&job, "id = ?", jobID).Error; err != nil {
			return apperr.NotFound("job not found")
		}
		if job.Status != models.JobStatusCompleted {
			return apperr.Conflict("job is not completed yet")
		}
		if job.IsPaid {
			return apperr.Conflict("job is already marked as paid")
		}

		if err := tx.Where("job_id = ?", job.ID).First(&feeRecord).Error; err != nil {
			return apperr.NotFound("service fee record not found")
		}
		if err := fee.Verify(&feeRecord); err != nil {
			return apperr.Internal("service fee record is inconsistent", err)
		}

		now := time.Now()
		companyFee := feeRecord.ServiceFeeAmount
		job.IsPaid = true
		job.PaidAt = &now
		job.CompanyFee = companyFee
		job.AmountPaid = feeRecord.JobAmount - companyFee
		if err := tx.Save(&job).Error; err != nil {
			return err
		}

		if err := h.Fees.Settle(tx, &feeRecord); err != nil {
			return err
		}

		if job.WorkerID == nil {
			return nil
		}
		return h.Notifier.Notify(tx, *job.WorkerID, models.NotifPaymentReceived,
			fmt.Sprintf("Payment of %d has been released for the job: %s", job.AmountPaid, job.Title),
			&job.ID, fiber.Map{"amountPaid": job.AmountPaid, "companyFee": job.CompanyFee})
	})
	if err != nil {
		return passthrough(err, "failed to settle payment")
	}

	h.Log.Info().Stringer("job", job.ID).Int64("companyFee", job.CompanyFee).Msg("job settled")

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Job marked as paid",
		"data": fiber.Map{
			"job":        jobView(&job),
			"serviceFee": feeRecord,
		},
	})
}
