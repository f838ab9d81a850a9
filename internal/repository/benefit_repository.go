package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/ridewell/benefit-api/internal/models"
)

type BenefitRepository interface {
	GetBenefitByUserID(ctx context.Context, userID string) (models.BikeBenefit, error)
	CreateBenefit(ctx context.Context, userID string) (models.BikeBenefit, error)

	ChooseBike(ctx context.Context, userID, bikeID string) (models.BikeBenefit, error)
	BookLiveTest(ctx context.Context, userID string) (models.BikeBenefit, error)
	CheckInLiveTest(ctx context.Context, userID string) (models.BikeBenefit, error)
	Commit(ctx context.Context, userID string) (models.BikeBenefit, error)
	RequestContract(ctx context.Context, userID string) (models.BikeBenefit, error)
	MarkDelivered(ctx context.Context, userID string) (models.BikeBenefit, error)

	UpdateContractStatus(ctx context.Context, benefitID string, from, to models.ContractStatus) (models.BikeBenefit, error)

	Terminate(ctx context.Context, userID string) (models.BikeBenefit, error)
	FileInsuranceClaim(ctx context.Context, userID string) (models.BikeBenefit, error)
}

type benefitRepository struct {
	db *sql.DB
}

func NewBenefitRepository(db *sql.DB) BenefitRepository {
	return &benefitRepository{db: db}
}

const benefitColumns = `id, user_id, bike_id, step, contract_status,
		live_test_whatsapp_sent_at, live_test_checked_in_at, committed_at, delivered_at,
		contract_requested_at, contract_viewed_at, contract_employee_signed_at,
		contract_employer_signed_at, contract_approved_at, contract_terminated_at,
		benefit_terminated_at, benefit_insurance_claim_at, created_at, updated_at`

// notFrozen guards every progression write: once a benefit is terminated
// or under an insurance claim, no further mutation may land.
const notFrozen = `benefit_terminated_at IS NULL AND benefit_insurance_claim_at IS NULL`

func (r *benefitRepository) GetBenefitByUserID(ctx context.Context, userID string) (models.BikeBenefit, error) {
	const query = `
		SELECT ` + benefitColumns + `
		FROM benefit.bike_benefits
		WHERE user_id = $1;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, userID))
}

func (r *benefitRepository) CreateBenefit(ctx context.Context, userID string) (models.BikeBenefit, error) {
	const query = `
		INSERT INTO benefit.bike_benefits (user_id)
		VALUES ($1)
		RETURNING ` + benefitColumns + `;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, userID))
}

func (r *benefitRepository) ChooseBike(ctx context.Context, userID, bikeID string) (models.BikeBenefit, error) {
	const query = `
		UPDATE benefit.bike_benefits
		SET step = 'choose_bike', bike_id = $2, updated_at = now()
		WHERE user_id = $1 AND ` + notFrozen + `
		RETURNING ` + benefitColumns + `;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, userID, bikeID))
}

func (r *benefitRepository) BookLiveTest(ctx context.Context, userID string) (models.BikeBenefit, error) {
	const query = `
		UPDATE benefit.bike_benefits
		SET step = 'book_live_test',
		    live_test_whatsapp_sent_at = COALESCE(live_test_whatsapp_sent_at, now()),
		    updated_at = now()
		WHERE user_id = $1 AND ` + notFrozen + `
		RETURNING ` + benefitColumns + `;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, userID))
}

func (r *benefitRepository) CheckInLiveTest(ctx context.Context, userID string) (models.BikeBenefit, error) {
	const query = `
		UPDATE benefit.bike_benefits
		SET live_test_checked_in_at = COALESCE(live_test_checked_in_at, now()),
		    updated_at = now()
		WHERE user_id = $1 AND ` + notFrozen + `
		RETURNING ` + benefitColumns + `;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, userID))
}

func (r *benefitRepository) Commit(ctx context.Context, userID string) (models.BikeBenefit, error) {
	const query = `
		UPDATE benefit.bike_benefits
		SET step = 'commit_to_bike',
		    committed_at = COALESCE(committed_at, now()),
		    updated_at = now()
		WHERE user_id = $1 AND ` + notFrozen + `
		RETURNING ` + benefitColumns + `;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, userID))
}

func (r *benefitRepository) RequestContract(ctx context.Context, userID string) (models.BikeBenefit, error) {
	const query = `
		UPDATE benefit.bike_benefits
		SET step = 'sign_contract',
		    contract_requested_at = COALESCE(contract_requested_at, now()),
		    updated_at = now()
		WHERE user_id = $1 AND ` + notFrozen + `
		RETURNING ` + benefitColumns + `;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, userID))
}

func (r *benefitRepository) MarkDelivered(ctx context.Context, userID string) (models.BikeBenefit, error) {
	const query = `
		UPDATE benefit.bike_benefits
		SET step = 'pickup_delivery',
		    delivered_at = COALESCE(delivered_at, now()),
		    updated_at = now()
		WHERE user_id = $1 AND ` + notFrozen + `
		RETURNING ` + benefitColumns + `;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, userID))
}

// contractTimestampColumn maps each contract status to the timestamp set
// when the record enters that status.
func contractTimestampColumn(status models.ContractStatus) (string, error) {
	switch status {
	case models.ContractViewedByEmployee:
		return "contract_viewed_at", nil
	case models.ContractSignedByEmployee:
		return "contract_employee_signed_at", nil
	case models.ContractSignedByEmployer:
		return "contract_employer_signed_at", nil
	case models.ContractApproved:
		return "contract_approved_at", nil
	case models.ContractTerminated:
		return "contract_terminated_at", nil
	default:
		return "", errors.Errorf("no timestamp column for contract status %q", status)
	}
}

// UpdateContractStatus performs a compare-and-set on the persisted
// contract status. The WHERE clause on the expected current status makes
// the transition atomic: a concurrent writer that moved the record first
// leaves this update matching zero rows, surfaced as sql.ErrNoRows.
func (r *benefitRepository) UpdateContractStatus(ctx context.Context, benefitID string, from, to models.ContractStatus) (models.BikeBenefit, error) {
	column, err := contractTimestampColumn(to)
	if err != nil {
		return models.BikeBenefit{}, err
	}

	query := `
		UPDATE benefit.bike_benefits
		SET contract_status = $3,
		    ` + column + ` = COALESCE(` + column + `, now()),
		    updated_at = now()
		WHERE id = $1 AND contract_status = $2 AND ` + notFrozen + `
		RETURNING ` + benefitColumns + `;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, benefitID, string(from), string(to)))
}

func (r *benefitRepository) Terminate(ctx context.Context, userID string) (models.BikeBenefit, error) {
	const query = `
		UPDATE benefit.bike_benefits
		SET benefit_terminated_at = COALESCE(benefit_terminated_at, now()),
		    updated_at = now()
		WHERE user_id = $1
		RETURNING ` + benefitColumns + `;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, userID))
}

func (r *benefitRepository) FileInsuranceClaim(ctx context.Context, userID string) (models.BikeBenefit, error) {
	const query = `
		UPDATE benefit.bike_benefits
		SET benefit_insurance_claim_at = COALESCE(benefit_insurance_claim_at, now()),
		    updated_at = now()
		WHERE user_id = $1 AND benefit_terminated_at IS NULL
		RETURNING ` + benefitColumns + `;
	`
	return scanBenefit(r.db.QueryRowContext(ctx, query, userID))
}

func scanBenefit(row rowScanner) (models.BikeBenefit, error) {
	var (
		b    models.BikeBenefit
		step sql.NullString
	)
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.BikeID,
		&step,
		&b.ContractStatus,
		&b.LiveTestWhatsAppSentAt,
		&b.LiveTestCheckedInAt,
		&b.CommittedAt,
		&b.DeliveredAt,
		&b.ContractRequestedAt,
		&b.ContractViewedAt,
		&b.ContractEmployeeSignedAt,
		&b.ContractEmployerSignedAt,
		&b.ContractApprovedAt,
		&b.ContractTerminatedAt,
		&b.BenefitTerminatedAt,
		&b.BenefitInsuranceClaimAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return models.BikeBenefit{}, err
	}
	if step.Valid {
		s := models.BikeStep(step.String)
		b.Step = &s
	}
	return b, nil
}
