package beltche

import (
	"fmt"
	"net/mail"
	"strings"

	"beltche-mcp/internal/apperrors"
)

// PaymentStatus is a student's payment state at one gym.
type PaymentStatus struct {
	IsPaid          bool   `json:"is_paid"`
	LastPaymentDate string `json:"last_payment_date"`
	GymID           int    `json:"gym_id"`
}

// LevelGroup is a training group a student belongs to.
type LevelGroup struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	GymID int    `json:"gym_id"`
}

// Student as returned by GET /students. Email is passed through unvalidated.
type Student struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	Email         string         `json:"email"`
	YearOfBirth   string         `json:"year_of_birth"`
	BeltID        int            `json:"belt_id"`
	Image         string         `json:"image"`
	IsInjured     bool           `json:"is_injured"`
	IsCompetitor  bool           `json:"is_competitor"`
	Gyms          []string       `json:"gyms,omitempty"`
	LevelGroups   []LevelGroup   `json:"level_groups,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
}

// Gym as returned by POST /gyms.
type Gym struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	City             string `json:"city"`
	Street           string `json:"street"`
	Zipcode          string `json:"zipcode"`
	PaymentDay       int    `json:"payment_day"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Website          string `json:"website,omitempty"`
	FacebookURL      string `json:"facebook_url,omitempty"`
	InstagramURL     string `json:"instagram_url,omitempty"`
	Description      string `json:"description,omitempty"`
	Currency         string `json:"currency"`
	CurrencySymbol   string `json:"currency_symbol"`
	CurrencyPosition string `json:"currency_position"`
}

// Currency defaults for new gyms.
const (
	DefaultCurrency         = "PLN"
	DefaultCurrencySymbol   = "zł"
	DefaultCurrencyPosition = "after"
)

// CreateGymInput is the body of POST /gyms.
type CreateGymInput struct {
	Name             string `json:"name"`
	City             string `json:"city"`
	Street           string `json:"street"`
	Zipcode          string `json:"zipcode"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	PaymentDay       int    `json:"payment_day"`
	Description      string `json:"description,omitempty"`
	Website          string `json:"website,omitempty"`
	FacebookURL      string `json:"facebook_url,omitempty"`
	InstagramURL     string `json:"instagram_url,omitempty"`
	Currency         string `json:"currency"`
	CurrencySymbol   string `json:"currency_symbol"`
	CurrencyPosition string `json:"currency_position"`
}

// ApplyDefaults fills the currency fields left empty.
func (in *CreateGymInput) ApplyDefaults() {
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if in.CurrencySymbol == "" {
		in.CurrencySymbol = DefaultCurrencySymbol
	}
	if in.CurrencyPosition == "" {
		in.CurrencyPosition = DefaultCurrencyPosition
	}
}

// Validate reports every problem with in as a single validation error.
func (in *CreateGymInput) Validate() error {
	var problems []string

	required := []struct{ field, value string }{
		{"name", in.Name},
		{"city", in.City},
		{"street", in.Street},
		{"zipcode", in.Zipcode},
		{"email", in.Email},
		{"phone", in.Phone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.field+" is required")
		}
	}

	if in.Email != "" {
		if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
			problems = append(problems, "email must be a valid email address")
		}
	}
	if in.PaymentDay < 1 || in.PaymentDay > 31 {
		problems = append(problems, fmt.Sprintf("payment_day must be between 1 and 31, got %d", in.PaymentDay))
	}
	if in.CurrencyPosition != "" && in.CurrencyPosition != "before" && in.CurrencyPosition != "after" {
		problems = append(problems, "currency_position must be one of: before, after")
	}

	if len(problems) > 0 {
		return apperrors.Validation(strings.Join(problems, "; "))
	}
	return nil
}
