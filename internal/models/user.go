package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleClient Role = "client"
	RoleWorker Role = "worker"
	RoleAdmin  Role = "admin"
)

// RoleSet is a user's capability set. Authorization checks go through Has
// instead of ad hoc string comparisons in handlers.
type RoleSet []Role

func (r RoleSet) Has(role Role) bool {
	for _, v := range r {
		if v == role {
			return true
		}
	}
	return false
}

// Add returns the set with role included, without duplicates.
func (r RoleSet) Add(role Role) RoleSet {
	if r.Has(role) {
		return r
	}
	return append(r, role)
}

func (r RoleSet) Strings() []string {
	out := make([]string, 0, len(r))
	for _, v := range r {
		out = append(out, string(v))
	}
	return out
}

func RoleSetFromStrings(ss []string) RoleSet {
	out := make(RoleSet, 0, len(ss))
	for _, s := range ss {
		out = append(out, Role(s))
	}
	return out
}

func (r RoleSet) Value() (driver.Value, error) {
	if r == nil {
		r = RoleSet{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *RoleSet) Scan(v interface{}) error {
	switch src := v.(type) {
	case []byte:
		return json.Unmarshal(src, r)
	case string:
		return json.Unmarshal([]byte(src), r)
	case nil:
		*r = RoleSet{}
		return nil
	}
	return errors.New("roles: unsupported scan source")
}

// StringList is a JSON-backed string slice column (skills etc).
type StringList []string

func (s StringList) Contains(v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every element of other is present in s.
func (s StringList) ContainsAll(other StringList) bool {
	for _, e := range other {
		if !s.Contains(e) {
			return false
		}
	}
	return true
}

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(v interface{}) error {
	switch src := v.(type) {
	case []byte:
		return json.Unmarshal(src, s)
	case string:
		return json.Unmarshal([]byte(src), s)
	case nil:
		*s = StringList{}
		return nil
	}
	return errors.New("string list: unsupported scan source")
}

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName   string    `gorm:"type:varchar(80)" json:"first_name"`
	LastName    string    `gorm:"type:varchar(80)" json:"last_name"`
	Email       string    `gorm:"uniqueIndex;not null" json:"email"`
	PhoneNumber string    `gorm:"type:varchar(30)" json:"phone_number"`
	Password    string    `gorm:"not null" json:"-"`

	// Every account starts as a client; the worker capability is granted
	// after profile review.
	Roles RoleSet `gorm:"type:jsonb" json:"roles"`

	JobsPosted    int  `gorm:"default:0" json:"jobs_posted"`
	JobsAccepted  int  `gorm:"default:0" json:"jobs_accepted"`
	JobsCompleted int  `gorm:"default:0" json:"jobs_completed"`
	Active        bool `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WorkerProfile *WorkerProfile `gorm:"foreignKey:UserID;references:ID" json:"worker_profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// WorkerProfile holds the worker-side details of a user. A worker must have
// one before requesting jobs; skills are matched against Job.SkillsRequired.
type WorkerProfile struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Profession string     `gorm:"type:varchar(120)" json:"profession"`
	Skills     StringList `gorm:"type:jsonb" json:"skills"`
	Experience string     `gorm:"type:varchar(120)" json:"experience"`
	About      string     `gorm:"type:text" json:"about"`

	VerificationStatus VerificationStatus `gorm:"type:varchar(20);default:'pending'" json:"verification_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *WorkerProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
