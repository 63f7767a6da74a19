package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ServiceFeeStatus string

const (
	FeeStatusPending ServiceFeeStatus = "pending"
	FeeStatusPaid    ServiceFeeStatus = "paid"
	FeeStatusOverdue ServiceFeeStatus = "overdue"
)

// ServiceFee is the platform's cut of an accepted job, tracked as its own
// payable record. Created exactly once per job, at offer acceptance.
type ServiceFee struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID      uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"job_id"`
	JobOfferID uuid.UUID `gorm:"type:uuid;index;not null" json:"job_offer_id"`
	WorkerID   uuid.UUID `gorm:"type:uuid;index;not null" json:"worker_id"`
	ClientID   uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`

	// JobAmount is the accepted offer amount in minor units.
	// ServiceFeeAmount is derived from it and the percentage; fee.Verify
	// recomputes the derivation on every read path.
	JobAmount            int64 `gorm:"not null" json:"job_amount"`
	ServiceFeePercentage int   `gorm:"not null;default:10" json:"service_fee_percentage"`
	ServiceFeeAmount     int64 `gorm:"not null" json:"service_fee_amount"`

	Status      ServiceFeeStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	DueDate     time.Time        `gorm:"not null" json:"due_date"`
	PaymentDate *time.Time       `json:"payment_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Job      *Job      `gorm:"foreignKey:JobID" json:"job,omitempty"`
	JobOffer *JobOffer `gorm:"foreignKey:JobOfferID" json:"job_offer,omitempty"`
}

func (f *ServiceFee) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
