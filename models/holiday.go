package models

import "gorm.io/gorm"

// Holiday maps a holiday slug to its calendar date. Fixed-date holidays
// use Year 0; moving holidays (easter, thanksgiving, ...) get one row per
// year, which takes precedence over a Year 0 row.
type Holiday struct {
	gorm.Model
	Slug  string `gorm:"not null;index:idx_holidays_slug_year,unique" json:"slug"`
	Year  int    `gorm:"not null;default:0;index:idx_holidays_slug_year,unique" json:"year"`
	Month int    `gorm:"not null" json:"month"`
	Day   int    `gorm:"not null" json:"day"`

	Name string `json:"name"`
}
