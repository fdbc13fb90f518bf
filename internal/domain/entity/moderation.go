package entity

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Shiyikai2002/student-trading-platform/internal/domain"
)

type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "Pending"
	ReportStatusReviewed ReportStatus = "Reviewed"
	ReportStatusResolved ReportStatus = "Resolved"
)

var reportTransitions = map[ReportStatus][]ReportStatus{
	ReportStatusPending:  {ReportStatusReviewed, ReportStatusResolved},
	ReportStatusReviewed: {ReportStatusResolved},
	ReportStatusResolved: {},
}

func (s ReportStatus) IsValid() bool {
	_, ok := reportTransitions[s]
	return ok
}

func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	for _, allowed := range reportTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Report struct {
	ID          string       `json:"id"`
	ItemID      string       `json:"item_id"`
	ReporterID  string       `json:"reporter_id"`
	Reason      string       `json:"reason"`
	Description string       `json:"description,omitempty"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

const DefaultMinReportDescription = 10

var DefaultReportDenylist = []string{"spam", "fake", "test"}

// ReportPolicy holds the rules a report description must satisfy.
type ReportPolicy struct {
	MinDescriptionLength int
	Denylist             []string
}

func DefaultReportPolicy() ReportPolicy {
	return ReportPolicy{
		MinDescriptionLength: DefaultMinReportDescription,
		Denylist:             DefaultReportDenylist,
	}
}

// ValidateDescription accepts an empty description. A non-empty one must be
// long enough and must not contain any denylisted token, ignoring case.
func (p ReportPolicy) ValidateDescription(description string) error {
	if description == "" {
		return nil
	}
	if utf8.RuneCountInString(description) < p.MinDescriptionLength {
		return fmt.Errorf("%w: please provide more details (at least %d characters)", domain.ErrValidation, p.MinDescriptionLength)
	}
	lowered := strings.ToLower(description)
	for _, token := range p.Denylist {
		token = strings.ToLower(strings.TrimSpace(token))
		if token != "" && strings.Contains(lowered, token) {
			return fmt.Errorf("%w: inappropriate words detected in the description", domain.ErrValidation)
		}
	}
	return nil
}

func NewReport(itemID, reporterID, reason, description string, policy ReportPolicy) (*Report, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: a reason for reporting is required", domain.ErrValidation)
	}
	if err := policy.ValidateDescription(description); err != nil {
		return nil, err
	}
	return &Report{
		ItemID:      itemID,
		ReporterID:  reporterID,
		Reason:      reason,
		Description: description,
		Status:      ReportStatusPending,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

const (
	MinRating = 1
	MaxRating = 5
)

func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", domain.ErrValidation, MinRating, MaxRating)
	}
	return nil
}

type Review struct {
	ID         string    `json:"id"`
	ReviewerID string    `json:"reviewer_id"`
	ItemID     string    `json:"item_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewReview(reviewerID, itemID string, rating int, comment string) (*Review, error) {
	if err := ValidateRating(rating); err != nil {
		return nil, err
	}
	return &Review{
		ReviewerID: reviewerID,
		ItemID:     itemID,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

type UserRating struct {
	ID          string    `json:"id"`
	RatedUserID string    `json:"rated_user_id"`
	ReviewerID  string    `json:"reviewer_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewUserRating(reviewerID, ratedUserID string, rating int, comment string) (*UserRating, error) {
	if reviewerID == ratedUserID {
		return nil, fmt.Errorf("%w: you cannot rate yourself", domain.ErrValidation)
	}
	if err := ValidateRating(rating); err != nil {
		return nil, err
	}
	return &UserRating{
		RatedUserID: ratedUserID,
		ReviewerID:  reviewerID,
		Rating:      rating,
		Comment:     comment,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}
