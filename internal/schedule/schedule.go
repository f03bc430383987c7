// Package schedule describes when automatic outdated checks run.
//
// Two policies exist: a fixed interval, and once a day at a configured hour.
// Daily mode is a self-renewing one-shot rather than a 24h period so the fire
// time stays on the wall-clock hour across DST changes.
package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the scheduling policy.
type Mode string

const (
	ModeInterval Mode = "interval"
	ModeDaily    Mode = "daily"
)

// Defaults applied when nothing has been configured.
const (
	DefaultMode            = ModeInterval
	DefaultIntervalMinutes = 60
	DefaultDailyStartHour  = 9
)

// ParseMode converts a user-supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeInterval:
		return ModeInterval, nil
	case ModeDaily:
		return ModeDaily, nil
	default:
		return "", fmt.Errorf("unknown schedule mode %q (want %q or %q)", s, ModeInterval, ModeDaily)
	}
}

// Config is the schedule portion of the user's settings.
type Config struct {
	Mode            Mode
	IntervalMinutes int
	DailyStartHour  int
}

// Default returns the out-of-the-box schedule: hourly checks.
func Default() Config {
	return Config{
		Mode:            DefaultMode,
		IntervalMinutes: DefaultIntervalMinutes,
		DailyStartHour:  DefaultDailyStartHour,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("interval must be a positive number of minutes, got %d", c.IntervalMinutes)
	}
	if c.DailyStartHour < 0 || c.DailyStartHour > 23 {
		return fmt.Errorf("daily start hour must be between 0 and 23, got %d", c.DailyStartHour)
	}
	return nil
}

// Interval returns the period between checks in interval mode.
func (c Config) Interval() time.Duration {
	minutes := c.IntervalMinutes
	if minutes <= 0 {
		minutes = DefaultIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// Describe renders the schedule for humans, e.g. "every 60 minutes" or
// "daily at 09:00".
func (c Config) Describe() string {
	if c.Mode == ModeDaily {
		return fmt.Sprintf("daily at %02d:00", c.DailyStartHour)
	}
	if c.IntervalMinutes == 1 {
		return "every minute"
	}
	return fmt.Sprintf("every %d minutes", c.Interval()/time.Minute)
}

// UntilNextDaily returns the time from now until the next hour:00:00 in now's
// location. When now is exactly on the hour the next fire is tomorrow, never
// zero.
func UntilNextDaily(now time.Time, hour int) time.Duration {
	return NextDaily(now, hour).Sub(now)
}

// NextDaily returns the next hour:00:00 strictly after now, in now's location.
func NextDaily(now time.Time, hour int) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		// time.Date normalizes day overflow and keeps the wall-clock hour
		// across DST transitions.
		next = time.Date(y, m, d+1, hour, 0, 0, 0, now.Location())
	}
	return next
}
