package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ridewell/benefit-api/internal/models"
)

type OTPRepository interface {
	CreateCode(ctx context.Context, email, codeHash string, expiresAt time.Time) (models.OTPCode, error)
	LatestActiveCode(ctx context.Context, email string, now time.Time) (models.OTPCode, error)
	ConsumeCode(ctx context.Context, id string) error
}

type otpRepository struct {
	db *sql.DB
}

func NewOTPRepository(db *sql.DB) OTPRepository {
	return &otpRepository{db: db}
}

const otpColumns = `id, email, code_hash, expires_at, consumed_at, created_at`

func (r *otpRepository) CreateCode(ctx context.Context, email, codeHash string, expiresAt time.Time) (models.OTPCode, error) {
	const query = `
		INSERT INTO benefit.otp_codes (email, code_hash, expires_at)
		VALUES (lower($1), $2, $3)
		RETURNING ` + otpColumns + `;
	`
	return scanOTP(r.db.QueryRowContext(ctx, query, email, codeHash, expiresAt))
}

func (r *otpRepository) LatestActiveCode(ctx context.Context, email string, now time.Time) (models.OTPCode, error) {
	const query = `
		SELECT ` + otpColumns + `
		FROM benefit.otp_codes
		WHERE lower(email) = lower($1) AND consumed_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1;
	`
	return scanOTP(r.db.QueryRowContext(ctx, query, email, now))
}

// ConsumeCode marks a code redeemed; consuming twice matches zero rows.
func (r *otpRepository) ConsumeCode(ctx context.Context, id string) error {
	const query = `
		UPDATE benefit.otp_codes
		SET consumed_at = now()
		WHERE id = $1 AND consumed_at IS NULL;
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanOTP(row rowScanner) (models.OTPCode, error) {
	var code models.OTPCode
	err := row.Scan(
		&code.ID,
		&code.Email,
		&code.CodeHash,
		&code.ExpiresAt,
		&code.ConsumedAt,
		&code.CreatedAt,
	)
	return code, err
}
