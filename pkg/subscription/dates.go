package subscription

import (
	"time"

	"gym-saas-be/internal/entity"
)

// DriftThreshold is the largest tolerated gap between a locally computed
// boundary and the one reported by the gateway before a warning is logged.
const DriftThreshold = 24 * time.Hour

type Period struct {
	StartDate time.Time
	EndDate   time.Time
}

// CalculateSubscriptionDates returns the paid period that a successful payment
// would open for a tenant in the given status. All math is done in UTC.
//
//   - trial with a trial end date: the period starts when the trial ends
//   - grace with a grace end date: the period starts when grace ends
//   - anything else: the period starts today (midnight UTC)
//
// The end date is one calendar month after the start, clamped to the last day
// of the target month.
func CalculateSubscriptionDates(status entity.SubscriptionStatus, trialEndDate, graceEndDate *time.Time, now time.Time) Period {
	var start time.Time
	switch {
	case status == entity.SubscriptionStatusTrial && present(trialEndDate):
		start = trialEndDate.UTC()
	case status == entity.SubscriptionStatusGrace && present(graceEndDate):
		start = graceEndDate.UTC()
	default:
		start = StartOfDay(now)
	}

	return Period{
		StartDate: start,
		EndDate:   AddMonthClamped(start),
	}
}

// ExtensionPeriod is used for recurring charges: paid time is appended to the
// previous end date so that nothing already paid for is lost.
func ExtensionPeriod(previousEnd time.Time) Period {
	start := previousEnd.UTC()
	return Period{
		StartDate: start,
		EndDate:   AddMonthClamped(start),
	}
}

// AddMonthClamped adds one calendar month. Jan 31 becomes Feb 28 (or 29),
// never Mar 3.
func AddMonthClamped(t time.Time) time.Time {
	t = t.UTC()
	year, month, day := t.Date()

	// Day 0 of the month after the target month is the target's last day.
	lastDay := time.Date(year, month+2, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(year, month+1, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CheckDrift reports the absolute gap between the local and the external date
// and whether it exceeds DriftThreshold.
func CheckDrift(local, external time.Time) (time.Duration, bool) {
	diff := local.Sub(external)
	if diff < 0 {
		diff = -diff
	}
	return diff, diff > DriftThreshold
}

func present(t *time.Time) bool {
	return t != nil && !t.IsZero()
}
