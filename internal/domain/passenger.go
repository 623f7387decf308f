package domain

import (
	"strings"
	"time"
)

type Passenger struct {
	ID             int64      `json:"id"`
	UserID         *int64     `json:"user_id,omitempty"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	Nationality    string     `json:"nationality,omitempty"`
	DocumentNumber string     `json:"document_number,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (p Passenger) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p Passenger) OwnedBy(userID *int64) bool {
	if p.UserID == nil || userID == nil {
		return p.UserID == nil && userID == nil
	}
	return *p.UserID == *userID
}

func (p Passenger) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
		return NewValidationError("passenger first_name and last_name are required")
	}
	return nil
}
