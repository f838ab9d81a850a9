package repository

import (
	"context"
	"database/sql"

	"github.com/ridewell/benefit-api/internal/models"
)

type CompanyRepository interface {
	CreateCompany(ctx context.Context, name string, monthlySubsidy float64, contractMonths int) (models.Company, error)
	GetCompanyByID(ctx context.Context, id string) (models.Company, error)
}

type companyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) CreateCompany(ctx context.Context, name string, monthlySubsidy float64, contractMonths int) (models.Company, error) {
	const query = `
		INSERT INTO benefit.companies (name, monthly_benefit_subsidy, contract_months)
		VALUES ($1, $2, $3)
		RETURNING id, name, monthly_benefit_subsidy, contract_months, created_at, updated_at;
	`
	var company models.Company
	err := r.db.QueryRowContext(ctx, query, name, monthlySubsidy, contractMonths).Scan(
		&company.ID,
		&company.Name,
		&company.MonthlyBenefitSubsidy,
		&company.ContractMonths,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	return company, err
}

func (r *companyRepository) GetCompanyByID(ctx context.Context, id string) (models.Company, error) {
	const query = `
		SELECT id, name, monthly_benefit_subsidy, contract_months, created_at, updated_at
		FROM benefit.companies
		WHERE id = $1;
	`
	var company models.Company
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.MonthlyBenefitSubsidy,
		&company.ContractMonths,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	return company, err
}
