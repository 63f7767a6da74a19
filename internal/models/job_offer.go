package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobOfferStatus string

const (
	OfferStatusPending  JobOfferStatus = "pending"
	OfferStatusAccepted JobOfferStatus = "accepted"
	OfferStatusRejected JobOfferStatus = "rejected"
	OfferStatusExpired  JobOfferStatus = "expired"
)

// JobOffer is a worker's bid on a job. Once it leaves "pending" it is
// immutable; at most one offer per job may ever be accepted.
type JobOffer struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID    uuid.UUID `gorm:"type:uuid;index;not null" json:"job_id"`
	WorkerID uuid.UUID `gorm:"type:uuid;index;not null" json:"worker_id"`
	ClientID uuid.UUID `gorm:"type:uuid;index;not null" json:"client_id"`

	// OfferAmount is in minor currency units. For fixed-budget jobs it
	// equals the job budget.
	OfferAmount int64 `gorm:"not null" json:"offer_amount"`

	Status          JobOfferStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	RejectionReason *string        `gorm:"type:text" json:"rejection_reason,omitempty"`
	Message         string         `gorm:"type:text" json:"message"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Job    *Job  `gorm:"foreignKey:JobID" json:"job,omitempty"`
	Worker *User `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
	Client *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

func (o *JobOffer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
