package entity

import (
	"fmt"
	"regexp"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

const (
	DefaultInstitutionalDomain = "student.gla.ac.uk"
	MinPasswordLength          = 8
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

type User struct {
	ID              string          `json:"id"`
	Username        string          `json:"username"`
	Email           string          `json:"email"`
	PasswordHash    string          `json:"-"`
	Role            Role            `json:"role"`
	Balance         decimal.Decimal `json:"balance"`
	Address         string          `json:"address,omitempty"`
	Bio             string          `json:"bio,omitempty"`
	ProfileImageURL string          `json:"profile_image_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CanModerate reports whether the user may act on content they do not own:
// editing or deleting other sellers' items and handling reports.
func (u *User) CanModerate() bool {
	if u == nil {
		return false
	}
	return u.Role == RoleStaff || u.Role == RoleAdmin
}

func (u *User) CanAfford(amount decimal.Decimal) bool {
	return u.Balance.GreaterThanOrEqual(amount)
}

// EmailValidator accepts only institutional student addresses of the form
// seven digits, one upper-case letter, then @<domain>.
type EmailValidator struct {
	domain  string
	pattern *regexp.Regexp
}

func NewEmailValidator(institutionalDomain string) *EmailValidator {
	if institutionalDomain == "" {
		institutionalDomain = DefaultInstitutionalDomain
	}
	return &EmailValidator{
		domain:  institutionalDomain,
		pattern: regexp.MustCompile(`^\d{7}[A-Z]@` + regexp.QuoteMeta(institutionalDomain) + `$`),
	}
}

func (v *EmailValidator) Validate(email string) error {
	if !v.pattern.MatchString(email) {
		return fmt.Errorf("%w: email must be a university address such as 1234567A@%s", domain.ErrValidation, v.domain)
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: username can only contain letters and numbers", domain.ErrValidation)
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}
	return nil
}
