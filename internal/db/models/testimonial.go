package models

import "time"

// Testimonial is a customer quote shown on the storefront once approved.
type Testimonial struct {
	ID        uint64 `gorm:"primaryKey"`
	Author    string `gorm:"size:200;not null"`
	Quote     string `gorm:"type:text;not null"`
	Rating    int    `gorm:"not null"` // 1..5
	Approved  bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides GORM's default pluralized table naming.
func (Testimonial) TableName() string {
	return "testimonials"
}
