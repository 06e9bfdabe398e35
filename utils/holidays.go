package utils

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"promopilot/models"
)

// HolidayCalendar resolves holiday slugs against the holidays table.
// Moving holidays carry one row per year; fixed-date holidays use a
// single Year 0 row.
type HolidayCalendar struct {
	DB *gorm.DB
}

func NewHolidayCalendar(db *gorm.DB) *HolidayCalendar {
	return &HolidayCalendar{DB: db}
}

func (h *HolidayCalendar) Resolve(holidayID string, year int) (time.Month, int, error) {
	var holiday models.Holiday
	err := h.DB.Where("slug = ? AND year = ?", holidayID, year).First(&holiday).Error
	if err == gorm.ErrRecordNotFound {
		err = h.DB.Where("slug = ? AND year = 0", holidayID).First(&holiday).Error
	}
	if err == gorm.ErrRecordNotFound {
		return 0, 0, fmt.Errorf("unknown holiday %q", holidayID)
	}
	if err != nil {
		return 0, 0, err
	}
	return time.Month(holiday.Month), holiday.Day, nil
}
