package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dandantas/linkpatrol/internal/model"
)

func TestCronSpec(t *testing.T) {
	tests := []struct {
		name     string
		settings model.ScheduleSettings
		want     string
		wantErr  bool
	}{
		{"daily", model.ScheduleSettings{Frequency: model.FrequencyDaily, TimeOfDay: "09:30"}, "30 9 * * *", false},
		{"weekly", model.ScheduleSettings{Frequency: model.FrequencyWeekly, TimeOfDay: "18:05", DayOfWeek: 5}, "5 18 * * 5", false},
		{"monthly", model.ScheduleSettings{Frequency: model.FrequencyMonthly, TimeOfDay: "00:00"}, "0 0 1 * *", false},
		{"bad time", model.ScheduleSettings{Frequency: model.FrequencyDaily, TimeOfDay: "25:00"}, "", true},
		{"bad frequency", model.ScheduleSettings{Frequency: "hourly", TimeOfDay: "09:00"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CronSpec(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextRun(t *testing.T) {
	// Tuesday
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		settings model.ScheduleSettings
		now      time.Time
		want     time.Time
	}{
		{
			name:     "daily after slot",
			settings: model.ScheduleSettings{Frequency: model.FrequencyDaily, TimeOfDay: "09:00"},
			now:      now,
			want:     time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name:     "daily before slot still moves to tomorrow",
			settings: model.ScheduleSettings{Frequency: model.FrequencyDaily, TimeOfDay: "23:00"},
			now:      now,
			want:     time.Date(2026, 3, 11, 23, 0, 0, 0, time.UTC),
		},
		{
			name:     "weekly on friday",
			settings: model.ScheduleSettings{Frequency: model.FrequencyWeekly, TimeOfDay: "08:00", DayOfWeek: 5},
			now:      now,
			want:     time.Date(2026, 3, 13, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "weekly same weekday goes to next week",
			settings: model.ScheduleSettings{Frequency: model.FrequencyWeekly, TimeOfDay: "12:00", DayOfWeek: 2},
			now:      now,
			want:     time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "monthly",
			settings: model.ScheduleSettings{Frequency: model.FrequencyMonthly, TimeOfDay: "06:00"},
			now:      now,
			want:     time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			name:     "monthly on the first",
			settings: model.ScheduleSettings{Frequency: model.FrequencyMonthly, TimeOfDay: "06:00"},
			now:      time.Date(2026, 4, 1, 5, 0, 0, 0, time.UTC),
			want:     time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRun(tt.settings, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.now))
		})
	}
}

func TestNextRun_Timezone(t *testing.T) {
	settings := model.ScheduleSettings{
		Frequency: model.FrequencyDaily,
		TimeOfDay: "09:00",
		Timezone:  "America/New_York",
	}
	// 2026-03-10 10:30 UTC is 06:30 in New York (EDT, UTC-4)
	now := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)

	got, err := NextRun(settings, now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 11, 13, 0, 0, 0, time.UTC), got)
}
