package subscription

import "time"

const (
	DefaultTrialDays      = 30
	DefaultGraceDays      = 7
	DefaultTrialGraceDays = 3
)

// Policy holds the fixed offsets used when a tenant enters trial or grace.
type Policy struct {
	TrialDays      int
	GraceDays      int
	TrialGraceDays int
}

func DefaultPolicy() Policy {
	return Policy{
		TrialDays:      DefaultTrialDays,
		GraceDays:      DefaultGraceDays,
		TrialGraceDays: DefaultTrialGraceDays,
	}
}

func (p Policy) TrialEnd(createdAt time.Time) time.Time {
	return createdAt.UTC().AddDate(0, 0, p.TrialDays)
}

// InitialGraceEnd is the grace boundary recorded at sign-up, relative to the trial end.
func (p Policy) InitialGraceEnd(trialEnd time.Time) time.Time {
	return trialEnd.UTC().AddDate(0, 0, p.TrialGraceDays)
}

// GraceEnd is recomputed every time grace is (re-)entered.
func (p Policy) GraceEnd(now time.Time) time.Time {
	return now.UTC().AddDate(0, 0, p.GraceDays)
}
