package models

import "time"

// Product is a storefront product. Prices are stored in cents to avoid
// floating point rounding. Products are soft-deleted via the Active flag.
type Product struct {
	ID          uint64 `gorm:"primaryKey"`
	Name        string `gorm:"size:200;not null"`
	Slug        string `gorm:"unique;size:200;not null"`
	Description string `gorm:"type:text"`
	PriceCents  int64  `gorm:"not null"`
	Stock       int
	Active      bool `gorm:"default:true"`
	CategoryID  *uint
	Category    *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides GORM's default pluralized table naming.
func (Product) TableName() string {
	return "products"
}
