package swimmer

import "time"

const (
	PaymentPrivatePay      = "private_pay"
	PaymentFundingSource   = "funding_source"
	AssessmentNotScheduled = "not_scheduled"
)

type Swimmer struct {
	ID                    string     `db:"id" json:"id"`
	ParentID              string     `db:"parent_id" json:"parent_id"`
	FirstName             string     `db:"first_name" json:"first_name"`
	LastName              string     `db:"last_name" json:"last_name"`
	PaymentType           string     `db:"payment_type" json:"payment_type"`
	FundingSourceID       *string    `db:"funding_source_id" json:"funding_source_id,omitempty"`
	FlexibleSwimmer       bool       `db:"flexible_swimmer" json:"flexible_swimmer"`
	FlexibleSwimmerReason *string    `db:"flexible_swimmer_reason" json:"flexible_swimmer_reason,omitempty"`
	FlexibleSwimmerSetAt  *time.Time `db:"flexible_swimmer_set_at" json:"flexible_swimmer_set_at,omitempty"`
	FlexibleSwimmerSetBy  *string    `db:"flexible_swimmer_set_by" json:"flexible_swimmer_set_by,omitempty"`
	AssessmentStatus      *string    `db:"assessment_status" json:"assessment_status,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

func (s *Swimmer) FullName() string {
	return s.FirstName + " " + s.LastName
}

func (s *Swimmer) HasFundingSource() bool {
	return s.FundingSourceID != nil && *s.FundingSourceID != ""
}
