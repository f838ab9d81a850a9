package models

import "time"

type Bike struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Type             *string   `json:"type,omitempty" db:"type"`
	Brand            *string   `json:"brand,omitempty" db:"brand"`
	FullPrice        float64   `json:"full_price" db:"full_price"`
	EmployeePrice    *float64  `json:"employee_price,omitempty" db:"employee_price"`
	AvailableForTest bool      `json:"available_for_test" db:"available_for_test"`
	InStock          bool      `json:"in_stock" db:"in_stock"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
