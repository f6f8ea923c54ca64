package models

import "time"

// Page is a slug-addressed CMS content page.
type Page struct {
	ID        uint64 `gorm:"primaryKey"`
	Title     string `gorm:"size:200;not null"`
	Slug      string `gorm:"unique;size:200;not null"`
	Body      string `gorm:"type:text"`
	Published bool   `gorm:"default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides GORM's default pluralized table naming.
func (Page) TableName() string {
	return "pages"
}
