package models

import "time"

// Customer is a storefront customer record managed through the console.
type Customer struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"size:200;not null"`
	Email     string `gorm:"unique;size:255;not null"`
	Phone     string `gorm:"size:50"`
	Notes     string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides GORM's default pluralized table naming.
func (Customer) TableName() string {
	return "customers"
}
