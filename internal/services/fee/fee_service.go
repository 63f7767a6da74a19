// Package fee derives and settles the platform's service fee on accepted
// offers. Amounts are integer minor currency units throughout.
package fee

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/workconnect/backend/internal/models"
)

const (
	DefaultPercentage = 10
	dueAfter          = 7 * 24 * time.Hour
)

var ErrAmountDrift = errors.New("service fee amount does not match its derivation")

// Amount computes the fee for a job amount at the given percentage,
// rounding half up.
func Amount(jobAmount int64, percentage int) int64 {
	return (jobAmount*int64(percentage) + 50) / 100
}

type Service struct {
	DB *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// CreateForAcceptedOffer writes the single fee record for a job at offer
// acceptance. Must be called inside the accepting transaction; the unique
// index on job_id makes a second record impossible.
func (s *Service) CreateForAcceptedOffer(tx *gorm.DB, job *models.Job, offer *models.JobOffer, percentage int) (*models.ServiceFee, error) {
	if percentage <= 0 || percentage > 100 {
		return nil, fmt.Errorf("service fee percentage out of range: %d", percentage)
	}

	record := models.ServiceFee{
		JobID:                job.ID,
		JobOfferID:           offer.ID,
		WorkerID:             offer.WorkerID,
		ClientID:             offer.ClientID,
		JobAmount:            offer.OfferAmount,
		ServiceFeePercentage: percentage,
		ServiceFeeAmount:     Amount(offer.OfferAmount, percentage),
		Status:               models.FeeStatusPending,
		DueDate:              time.Now().Add(dueAfter),
	}

	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Settle marks the fee paid. Caller holds the row inside its transaction.
func (s *Service) Settle(tx *gorm.DB, record *models.ServiceFee) error {
	if record.Status == models.FeeStatusPaid {
		return errors.New("service fee already settled")
	}
	now := time.Now()
	record.Status = models.FeeStatusPaid
	record.PaymentDate = &now
	return tx.Save(record).Error
}

// Verify recomputes the cached fee amount. Read paths call this so a drifted
// record is reported instead of served.
func Verify(record *models.ServiceFee) error {
	if record.ServiceFeeAmount != Amount(record.JobAmount, record.ServiceFeePercentage) {
		return ErrAmountDrift
	}
	return nil
}
