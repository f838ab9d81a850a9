package models

import "time"

type ProfileStatus string

const (
	ProfileActive   ProfileStatus = "active"
	ProfileInactive ProfileStatus = "inactive"
)

// Profile is a registered employee, scoped to exactly one company.
type Profile struct {
	UserID    string        `json:"user_id" db:"user_id"`
	Email     string        `json:"email" db:"email"`
	Status    ProfileStatus `json:"status" db:"status"`
	CompanyID string        `json:"company_id" db:"company_id"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// Company owns the subsidy terms its employees enroll under.
type Company struct {
	ID                    string    `json:"id" db:"id"`
	Name                  string    `json:"name" db:"name"`
	MonthlyBenefitSubsidy float64   `json:"monthly_benefit_subsidy" db:"monthly_benefit_subsidy"`
	ContractMonths        int       `json:"contract_months" db:"contract_months"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}
