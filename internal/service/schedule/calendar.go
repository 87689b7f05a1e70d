package schedule

import (
	"slices"
	"time"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
)

// Expand lists the calendar days in [start, end] that a schedule covers.
// Without repeat every day is included; with repeat only days whose weekday
// is in weekdays, so an empty weekday set yields no days.
func Expand(start, end model.Date, repeat bool, weekdays []time.Weekday) []model.Date {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return []model.Date{}
	}
	if repeat && len(weekdays) == 0 {
		return []model.Date{}
	}

	dates := make([]model.Date, 0, start.DaysUntil(end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		if repeat && !slices.Contains(weekdays, d.Weekday()) {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}
