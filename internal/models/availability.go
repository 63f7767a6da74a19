package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// clockPattern matches 24-hour HH:mm times, the only format the scheduler
// accepts for weekly availability.
var clockPattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

func ValidClockTime(s string) bool {
	return clockPattern.MatchString(s)
}

// ClockMinutes converts an HH:mm string to minutes since midnight.
// Returns -1 for malformed input.
func ClockMinutes(s string) int {
	if !ValidClockTime(s) {
		return -1
	}
	parts := strings.SplitN(s, ":", 2)
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h*60 + m
}

// Availability is a worker's recurring weekly open-hours declaration.
// At most one record exists per (worker, day of week).
type Availability struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WorkerID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_availability_worker_day" json:"worker_id"`
	DayOfWeek int       `gorm:"not null;uniqueIndex:idx_availability_worker_day" json:"day_of_week"` // 0=Sunday .. 6=Saturday

	StartTime string `gorm:"type:varchar(5);not null" json:"start_time"` // HH:mm
	EndTime   string `gorm:"type:varchar(5);not null" json:"end_time"`   // HH:mm

	IsAvailable bool           `gorm:"default:true" json:"is_available"`
	BreakTimes  datatypes.JSON `json:"break_times,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Availability) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
