package model

import "time"

const dayKeyLayout = "2006-01-02"

// DayKey identifies one local calendar day, e.g. "2026-08-23". Two keys are
// equal iff they name the same day; no elapsed-time arithmetic is involved.
type DayKey string

func DayKeyFor(now time.Time) DayKey {
	return DayKey(now.Local().Format(dayKeyLayout))
}

// IsNewDay reports whether the stored day differs from the day of now.
// An absent or blank stored key counts as a new day. The comparison is by
// value, so a clock moving backward within the same calendar day never
// signals a rollover, and a multi-day forward jump signals exactly one.
func IsNewDay(stored DayKey, now time.Time) bool {
	return stored == "" || stored != DayKeyFor(now)
}
