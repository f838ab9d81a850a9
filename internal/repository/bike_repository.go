package repository

import (
	"context"
	"database/sql"

	"github.com/ridewell/benefit-api/internal/models"
)

type BikeRepository interface {
	ListBikes(ctx context.Context) ([]models.Bike, error)
	GetBikeByID(ctx context.Context, id string) (models.Bike, error)
}

type bikeRepository struct {
	db *sql.DB
}

func NewBikeRepository(db *sql.DB) BikeRepository {
	return &bikeRepository{db: db}
}

const bikeColumns = `id, name, type, brand, full_price, employee_price, available_for_test, in_stock, created_at, updated_at`

func (r *bikeRepository) ListBikes(ctx context.Context) ([]models.Bike, error) {
	const query = `
		SELECT ` + bikeColumns + `
		FROM benefit.bikes
		WHERE in_stock
		ORDER BY name;
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bikes []models.Bike
	for rows.Next() {
		bike, err := scanBike(rows)
		if err != nil {
			return nil, err
		}
		bikes = append(bikes, bike)
	}
	return bikes, rows.Err()
}

func (r *bikeRepository) GetBikeByID(ctx context.Context, id string) (models.Bike, error) {
	const query = `
		SELECT ` + bikeColumns + `
		FROM benefit.bikes
		WHERE id = $1;
	`
	return scanBike(r.db.QueryRowContext(ctx, query, id))
}

func scanBike(row rowScanner) (models.Bike, error) {
	var bike models.Bike
	err := row.Scan(
		&bike.ID,
		&bike.Name,
		&bike.Type,
		&bike.Brand,
		&bike.FullPrice,
		&bike.EmployeePrice,
		&bike.AvailableForTest,
		&bike.InStock,
		&bike.CreatedAt,
		&bike.UpdatedAt,
	)
	return bike, err
}
