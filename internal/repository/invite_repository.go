package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/ridewell/benefit-api/internal/models"
)

// uniqueViolation is the Postgres error code raised when an insert hits
// the unique index on lower(email).
const uniqueViolation = "23505"

type InviteRepository interface {
	FindInviteByEmail(ctx context.Context, email string) (models.ProfileInvite, error)
	CreateInvite(ctx context.Context, invite models.ProfileInvite) (models.ProfileInvite, error)
	ListInvitesByCompany(ctx context.Context, companyID string) ([]models.ProfileInvite, error)
}

type inviteRepository struct {
	db *sql.DB
}

func NewInviteRepository(db *sql.DB) InviteRepository {
	return &inviteRepository{db: db}
}

const inviteColumns = `id, company_id, email, first_name, last_name, description, department, hire_date, invited_at`

func (r *inviteRepository) FindInviteByEmail(ctx context.Context, email string) (models.ProfileInvite, error) {
	const query = `
		SELECT ` + inviteColumns + `
		FROM benefit.profile_invites
		WHERE lower(email) = lower($1);
	`

	invite, err := scanInvite(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ProfileInvite{}, models.ErrInviteNotFound
		}
		return models.ProfileInvite{}, err
	}
	return invite, nil
}

func (r *inviteRepository) CreateInvite(ctx context.Context, invite models.ProfileInvite) (models.ProfileInvite, error) {
	const query = `
		INSERT INTO benefit.profile_invites (company_id, email, first_name, last_name, description, department, hire_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + inviteColumns + `;
	`

	created, err := scanInvite(r.db.QueryRowContext(ctx, query,
		invite.CompanyID,
		invite.Email,
		invite.FirstName,
		invite.LastName,
		invite.Description,
		invite.Department,
		invite.HireDate,
	))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.ProfileInvite{}, models.ErrDuplicateEmail
		}
		return models.ProfileInvite{}, errors.Wrap(err, "create invite")
	}
	return created, nil
}

func (r *inviteRepository) ListInvitesByCompany(ctx context.Context, companyID string) ([]models.ProfileInvite, error) {
	const query = `
		SELECT ` + inviteColumns + `
		FROM benefit.profile_invites
		WHERE company_id = $1
		ORDER BY invited_at DESC;
	`

	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []models.ProfileInvite
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvite(row rowScanner) (models.ProfileInvite, error) {
	var invite models.ProfileInvite
	err := row.Scan(
		&invite.ID,
		&invite.CompanyID,
		&invite.Email,
		&invite.FirstName,
		&invite.LastName,
		&invite.Description,
		&invite.Department,
		&invite.HireDate,
		&invite.InvitedAt,
	)
	return invite, err
}
