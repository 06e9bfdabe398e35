package engine

import (
	"time"

	"promopilot/models"
)

// LocalDay is "today" as seen from a rule's timezone.
type LocalDay struct {
	Year  int
	Month time.Month
	Day   int
	Start time.Time // start of the local calendar day
	Loc   *time.Location
}

// LocalToday computes the current calendar day in the given IANA zone.
// An invalid zone falls back to UTC rather than failing the rule.
func LocalToday(tz string, now time.Time) LocalDay {
	loc, err := time.LoadLocation(tz)
	if err != nil || loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	year, month, day := local.Date()
	return LocalDay{
		Year:  year,
		Month: month,
		Day:   day,
		Start: time.Date(year, month, day, 0, 0, 0, 0, loc),
		Loc:   loc,
	}
}

// NextStart returns the start of the following local day. Computed via
// AddDate so DST transitions keep the wall-clock midnight.
func (d LocalDay) NextStart() time.Time {
	return d.Start.AddDate(0, 0, 1)
}

// MonthDay returns today's month-day as "MM-DD".
func (d LocalDay) MonthDay() string {
	return d.Start.Format("01-02")
}

// TargetMonthDay returns the month-day a birthday or anniversary anchor
// must equal for the rule to fire today. The offset shifts *today*, not
// the anchor: with offset -1 ("send one day before") today 03-14 targets
// anchors on 03-15.
func (d LocalDay) TargetMonthDay(dayOffset int) string {
	return d.Start.AddDate(0, 0, -dayOffset).Format("01-02")
}

// HolidayFiresToday reports whether a holiday resolved to (month, day)
// for the current year, shifted by the rule's offset, lands exactly on
// today.
func HolidayFiresToday(day LocalDay, month time.Month, dom int, dayOffset int) bool {
	shifted := time.Date(day.Year, month, dom, 0, 0, 0, 0, day.Loc).AddDate(0, 0, dayOffset)
	return shifted.Month() == day.Month && shifted.Day() == day.Day
}

// InactivityCutoff returns the last-login cutoff for an inactivity rule.
func InactivityCutoff(rule *models.Automation, now time.Time) time.Time {
	days := rule.InactivityParams().Days
	return now.AddDate(0, 0, -days)
}

// TrialWindow returns the UTC day window a plan expiry must fall in for
// a trial-ending rule to fire.
func TrialWindow(rule *models.Automation, now time.Time) (time.Time, time.Time) {
	days := rule.TrialEndingParams().Days
	target := now.UTC().AddDate(0, 0, days)
	start := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
