package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusOpen       JobStatus = "open"
	JobStatusInProgress JobStatus = "in progress"
	JobStatusAwaiting   JobStatus = "awaiting confirmation"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// jobTransitions is the closed job state machine. Offers never move a job out
// of "open" until the client accepts one.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusOpen:       {JobStatusInProgress, JobStatusCancelled},
	JobStatusInProgress: {JobStatusAwaiting, JobStatusCancelled},
	JobStatusAwaiting:   {JobStatusCompleted, JobStatusCancelled},
}

func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusCancelled
}

func (s JobStatus) CanTransition(to JobStatus) bool {
	for _, next := range jobTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentInProgress PaymentStatus = "in progress"
	PaymentCompleted  PaymentStatus = "completed"
)

// Location is a point plus a human-readable address, embedded into jobs and
// bookings.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

func (l Location) Complete() bool {
	return l.Latitude != 0 && l.Longitude != 0 && l.Address != ""
}

type Job struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Category    string    `gorm:"type:varchar(80);not null" json:"category"`

	// Budget is in minor currency units and nil while the job is open to
	// offers and none has been accepted.
	Budget      *int64 `json:"budget"`
	OpenToOffer bool   `gorm:"default:false" json:"open_to_offer"`

	Location       Location   `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	SkillsRequired StringList `gorm:"type:jsonb" json:"skills_required"`

	RightNow    bool      `gorm:"default:false" json:"right_now"`
	ScheduledAt time.Time `json:"scheduled_at"`

	Status   JobStatus  `gorm:"type:varchar(30);default:'open';index" json:"status"`
	ClientID uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	WorkerID *uuid.UUID `gorm:"type:uuid;index" json:"worker_id"`

	ClientVerification bool `gorm:"default:false" json:"client_verification"`
	WorkerVerification bool `gorm:"default:false" json:"worker_verification"`

	PaymentStatus PaymentStatus `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`
	IsPaid        bool          `gorm:"default:false" json:"is_paid"`
	PaidAt        *time.Time    `json:"paid_at"`
	CompanyFee    int64         `gorm:"default:0" json:"company_fee"`
	AmountPaid    int64         `gorm:"default:0" json:"amount_paid"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Worker *User `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// BudgetType is the wire name for the two pricing modes.
func (j *Job) BudgetType() string {
	if j.OpenToOffer {
		return "open_to_offer"
	}
	return "fixed"
}
