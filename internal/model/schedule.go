package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency is the cadence of scheduled link checks
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// ParseFrequency validates a frequency string
func ParseFrequency(value string) (Frequency, error) {
	switch f := Frequency(strings.ToLower(strings.TrimSpace(value))); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("invalid frequency: %q (must be 'daily', 'weekly', or 'monthly')", value)
	}
}

// ScheduleSettings holds the cadence of the link checker plus its last/next run timestamps
type ScheduleSettings struct {
	Enabled            bool       `json:"enabled" bson:"enabled"`
	Frequency          Frequency  `json:"frequency" bson:"frequency"`
	TimeOfDay          string     `json:"time_of_day" bson:"time_of_day"` // "HH:MM", 24h
	DayOfWeek          int        `json:"day_of_week" bson:"day_of_week"` // 0 = Sunday
	PostsToCheckPerRun int        `json:"posts_to_check_per_run" bson:"posts_to_check_per_run"`
	Timezone           string     `json:"timezone,omitempty" bson:"timezone,omitempty"`
	LastRunAt          *time.Time `json:"last_run_at,omitempty" bson:"last_run_at,omitempty"`
	NextRunAt          *time.Time `json:"next_run_at,omitempty" bson:"next_run_at,omitempty"`
}

// Validate validates the cadence fields
func (s *ScheduleSettings) Validate() error {
	if _, err := ParseFrequency(string(s.Frequency)); err != nil {
		return err
	}
	if _, _, err := s.Clock(); err != nil {
		return err
	}
	if s.DayOfWeek < 0 || s.DayOfWeek > 6 {
		return fmt.Errorf("invalid day of week: %d (must be 0-6, 0 = Sunday)", s.DayOfWeek)
	}
	if s.PostsToCheckPerRun <= 0 {
		return errors.New("posts to check per run must be positive")
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Clock parses TimeOfDay into hour and minute
func (s *ScheduleSettings) Clock() (int, int, error) {
	parts := strings.Split(strings.TrimSpace(s.TimeOfDay), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day: %q (expected HH:MM)", s.TimeOfDay)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in time of day: %q", s.TimeOfDay)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in time of day: %q", s.TimeOfDay)
	}
	return hour, minute, nil
}

// Location resolves the configured timezone, defaulting to UTC
func (s *ScheduleSettings) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// IsDue reports whether a run should start at now
func (s *ScheduleSettings) IsDue(now time.Time) bool {
	if !s.Enabled {
		return false
	}
	if s.NextRunAt == nil || s.NextRunAt.IsZero() {
		return true
	}
	return !now.Before(*s.NextRunAt)
}
