package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dandantas/linkpatrol/internal/model"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CronSpec renders the cadence of settings as a standard five-field cron expression.
// Monthly runs happen on the first day of the month.
func CronSpec(settings model.ScheduleSettings) (string, error) {
	hour, minute, err := settings.Clock()
	if err != nil {
		return "", err
	}

	switch settings.Frequency {
	case model.FrequencyDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case model.FrequencyWeekly:
		if settings.DayOfWeek < 0 || settings.DayOfWeek > 6 {
			return "", fmt.Errorf("invalid day of week: %d", settings.DayOfWeek)
		}
		return fmt.Sprintf("%d %d * * %d", minute, hour, settings.DayOfWeek), nil
	case model.FrequencyMonthly:
		return fmt.Sprintf("%d %d 1 * *", minute, hour), nil
	default:
		return "", fmt.Errorf("invalid frequency: %q", settings.Frequency)
	}
}

// NextRun computes the first occurrence of the cadence after the local day containing
// now, in the configured timezone. A run never gets a second slot on the same day, even
// when it started shortly before its configured time of day.
func NextRun(settings model.ScheduleSettings, now time.Time) (time.Time, error) {
	spec, err := CronSpec(settings)
	if err != nil {
		return time.Time{}, err
	}

	loc, err := settings.Location()
	if err != nil {
		return time.Time{}, err
	}

	schedule, err := cronParser.Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	local := now.In(loc)
	endOfDay := time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, loc)

	return schedule.Next(endOfDay).UTC(), nil
}
