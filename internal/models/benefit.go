package models

import (
	"time"

	"github.com/pkg/errors"
)

// BikeStep is the discrete stage marker of the guided enrollment workflow.
type BikeStep string

const (
	StepChooseBike     BikeStep = "choose_bike"
	StepBookLiveTest   BikeStep = "book_live_test"
	StepCommitToBike   BikeStep = "commit_to_bike"
	StepSignContract   BikeStep = "sign_contract"
	StepPickupDelivery BikeStep = "pickup_delivery"
)

// stepOrder defines the forward progression of the enrollment workflow.
var stepOrder = map[BikeStep]int{
	StepChooseBike:     1,
	StepBookLiveTest:   2,
	StepCommitToBike:   3,
	StepSignContract:   4,
	StepPickupDelivery: 5,
}

func IsValidStep(step BikeStep) bool {
	_, ok := stepOrder[step]
	return ok
}

// BenefitStatus is a read-only classification derived from stored facts.
// It is never written directly; DeriveBenefitStatus is the single source
// of truth for where an enrollment currently stands.
type BenefitStatus string

const (
	BenefitInactive       BenefitStatus = "inactive"
	BenefitSearching      BenefitStatus = "searching"
	BenefitTesting        BenefitStatus = "testing"
	BenefitActive         BenefitStatus = "active"
	BenefitInsuranceClaim BenefitStatus = "insurance_claim"
	BenefitTerminated     BenefitStatus = "terminated"
)

type ContractStatus string

const (
	ContractNotStarted       ContractStatus = "not_started"
	ContractViewedByEmployee ContractStatus = "viewed_by_employee"
	ContractSignedByEmployee ContractStatus = "signed_by_employee"
	ContractSignedByEmployer ContractStatus = "signed_by_employer"
	ContractApproved         ContractStatus = "approved"
	ContractTerminated       ContractStatus = "terminated"
)

// BikeBenefit tracks one employee's enrollment. All timestamps are
// nullable and set at most once; status fields are derived from them.
type BikeBenefit struct {
	ID     string    `json:"id" db:"id"`
	UserID string    `json:"user_id" db:"user_id"`
	BikeID *string   `json:"bike_id,omitempty" db:"bike_id"`
	Step   *BikeStep `json:"step,omitempty" db:"step"`

	ContractStatus ContractStatus `json:"contract_status" db:"contract_status"`

	LiveTestWhatsAppSentAt *time.Time `json:"live_test_whatsapp_sent_at,omitempty" db:"live_test_whatsapp_sent_at"`
	LiveTestCheckedInAt    *time.Time `json:"live_test_checked_in_at,omitempty" db:"live_test_checked_in_at"`
	CommittedAt            *time.Time `json:"committed_at,omitempty" db:"committed_at"`
	DeliveredAt            *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`

	ContractRequestedAt      *time.Time `json:"contract_requested_at,omitempty" db:"contract_requested_at"`
	ContractViewedAt         *time.Time `json:"contract_viewed_at,omitempty" db:"contract_viewed_at"`
	ContractEmployeeSignedAt *time.Time `json:"contract_employee_signed_at,omitempty" db:"contract_employee_signed_at"`
	ContractEmployerSignedAt *time.Time `json:"contract_employer_signed_at,omitempty" db:"contract_employer_signed_at"`
	ContractApprovedAt       *time.Time `json:"contract_approved_at,omitempty" db:"contract_approved_at"`
	ContractTerminatedAt     *time.Time `json:"contract_terminated_at,omitempty" db:"contract_terminated_at"`

	BenefitTerminatedAt     *time.Time `json:"benefit_terminated_at,omitempty" db:"benefit_terminated_at"`
	BenefitInsuranceClaimAt *time.Time `json:"benefit_insurance_claim_at,omitempty" db:"benefit_insurance_claim_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DeriveBenefitStatus maps accumulated facts to the current benefit status.
// Rules run top to bottom, first match wins; the function has no hidden
// inputs, so equal records always derive the same status.
func DeriveBenefitStatus(b BikeBenefit) BenefitStatus {
	switch {
	case b.BenefitTerminatedAt != nil:
		return BenefitTerminated
	case b.BenefitInsuranceClaimAt != nil:
		return BenefitInsuranceClaim
	case b.Step != nil && *b.Step == StepPickupDelivery && b.DeliveredAt != nil:
		return BenefitActive
	case b.Step != nil && *b.Step == StepBookLiveTest && b.LiveTestWhatsAppSentAt != nil:
		return BenefitTesting
	case b.Step != nil:
		return BenefitSearching
	default:
		return BenefitInactive
	}
}

// IsFrozen reports whether the record has been administratively frozen.
// Frozen records accept no further step or contract progression.
func (b BikeBenefit) IsFrozen() bool {
	return b.BenefitTerminatedAt != nil || b.BenefitInsuranceClaimAt != nil
}

// CanAdvanceStep reports whether moving to next is a legal forward step.
// Re-entering the current step is allowed so that retried requests stay
// idempotent; moving backward or skipping ahead is not.
func (b BikeBenefit) CanAdvanceStep(next BikeStep) bool {
	if b.IsFrozen() || !IsValidStep(next) {
		return false
	}
	if b.Step == nil {
		return next == StepChooseBike
	}
	cur := stepOrder[*b.Step]
	return stepOrder[next] == cur || stepOrder[next] == cur+1
}

// nextContract holds the single legal successor of each contract status.
// approved and terminated are terminal and have no successor.
var nextContract = map[ContractStatus]ContractStatus{
	ContractNotStarted:       ContractViewedByEmployee,
	ContractViewedByEmployee: ContractSignedByEmployee,
	ContractSignedByEmployee: ContractSignedByEmployer,
	ContractSignedByEmployer: ContractApproved,
}

var (
	ErrContractTerminal      = errors.New("contract status is terminal")
	ErrContractOrder         = errors.New("contract status transition out of order")
	ErrContractSigningOrder  = errors.New("contract signing timestamps out of order")
	ErrBenefitFrozen         = errors.New("benefit is administratively frozen")
	ErrInvalidContractStatus = errors.New("unknown contract status")
)

func IsValidContractStatus(status ContractStatus) bool {
	switch status {
	case ContractNotStarted, ContractViewedByEmployee, ContractSignedByEmployee,
		ContractSignedByEmployer, ContractApproved, ContractTerminated:
		return true
	default:
		return false
	}
}

// ValidateContractTransition checks that from -> to follows the linear
// signing chain. Termination is reachable from any non-terminal state.
func ValidateContractTransition(from, to ContractStatus) error {
	if !IsValidContractStatus(from) || !IsValidContractStatus(to) {
		return ErrInvalidContractStatus
	}
	if from == ContractApproved || from == ContractTerminated {
		return errors.Wrapf(ErrContractTerminal, "cannot leave %q", from)
	}
	if to == ContractTerminated {
		return nil
	}
	if nextContract[from] != to {
		return errors.Wrapf(ErrContractOrder, "%q -> %q", from, to)
	}
	return nil
}

// ValidateContractTimestamps enforces monotonic signing order: a later
// stage's timestamp must never be present while an earlier one is absent.
func ValidateContractTimestamps(b BikeBenefit) error {
	chain := []*time.Time{
		b.ContractViewedAt,
		b.ContractEmployeeSignedAt,
		b.ContractEmployerSignedAt,
		b.ContractApprovedAt,
	}
	seenGap := false
	for _, ts := range chain {
		if ts == nil {
			seenGap = true
			continue
		}
		if seenGap {
			return ErrContractSigningOrder
		}
	}
	return nil
}

// DeriveContractStatus recomputes the contract status from timestamps
// alone. The persisted column is authoritative for reads; this helper
// exists so the write path can be checked for drift.
func DeriveContractStatus(b BikeBenefit) ContractStatus {
	switch {
	case b.ContractTerminatedAt != nil:
		return ContractTerminated
	case b.ContractApprovedAt != nil:
		return ContractApproved
	case b.ContractEmployerSignedAt != nil:
		return ContractSignedByEmployer
	case b.ContractEmployeeSignedAt != nil:
		return ContractSignedByEmployee
	case b.ContractViewedAt != nil:
		return ContractViewedByEmployee
	default:
		return ContractNotStarted
	}
}
