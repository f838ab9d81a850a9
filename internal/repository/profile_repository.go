package repository

import (
	"context"
	"database/sql"

	"github.com/ridewell/benefit-api/internal/models"
)

type ProfileRepository interface {
	GetProfileByUserID(ctx context.Context, userID string) (models.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (models.Profile, error)
	CreateProfile(ctx context.Context, profile models.Profile) (models.Profile, error)
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetProfileByUserID(ctx context.Context, userID string) (models.Profile, error) {
	const query = `
		SELECT user_id, email, status, company_id, created_at
		FROM benefit.profiles
		WHERE user_id = $1;
	`
	var profile models.Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Email,
		&profile.Status,
		&profile.CompanyID,
		&profile.CreatedAt,
	)
	return profile, err
}

func (r *profileRepository) GetProfileByEmail(ctx context.Context, email string) (models.Profile, error) {
	const query = `
		SELECT user_id, email, status, company_id, created_at
		FROM benefit.profiles
		WHERE lower(email) = lower($1);
	`
	var profile models.Profile
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&profile.UserID,
		&profile.Email,
		&profile.Status,
		&profile.CompanyID,
		&profile.CreatedAt,
	)
	return profile, err
}

func (r *profileRepository) CreateProfile(ctx context.Context, profile models.Profile) (models.Profile, error) {
	if profile.Status == "" {
		profile.Status = models.ProfileActive
	}

	const query = `
		INSERT INTO benefit.profiles (user_id, email, status, company_id)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id, email, status, company_id, created_at;
	`
	err := r.db.QueryRowContext(ctx, query,
		profile.UserID,
		profile.Email,
		profile.Status,
		profile.CompanyID,
	).Scan(
		&profile.UserID,
		&profile.Email,
		&profile.Status,
		&profile.CompanyID,
		&profile.CreatedAt,
	)
	return profile, err
}
