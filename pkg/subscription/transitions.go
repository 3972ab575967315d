package subscription

import (
	"slices"

	"gym-saas-be/internal/entity"
)

type Trigger string

const (
	TriggerPaymentSucceeded Trigger = "payment_succeeded"
	TriggerPaymentFailed    Trigger = "payment_failed"
	TriggerHalted           Trigger = "halted"
	TriggerTrialEnded       Trigger = "trial_ended"
	TriggerGraceEnded       Trigger = "grace_ended"
	TriggerPeriodEnded      Trigger = "period_ended"
	TriggerCancelled        Trigger = "cancelled"
)

// Transition represents a valid state transition.
type Transition struct {
	From entity.SubscriptionStatus
	To   entity.SubscriptionStatus
}

const (
	trial     = entity.SubscriptionStatusTrial
	grace     = entity.SubscriptionStatusGrace
	active    = entity.SubscriptionStatusActive
	expired   = entity.SubscriptionStatusExpired
	cancelled = entity.SubscriptionStatusCancelled
)

var validTransitions = map[Transition]bool{
	{trial, active}:     true, // Payment verified during trial
	{trial, grace}:      true, // Trial ended or first payment failed
	{trial, cancelled}:  true, // Gateway subscription cancelled before the first charge
	{grace, active}:     true, // Payment recovered
	{grace, expired}:    true, // Grace period ended
	{grace, cancelled}:  true, // Gateway gave up and cancelled
	{active, active}:    true, // Recurring charge extends the period
	{active, expired}:   true, // Paid period ended
	{active, grace}:     true, // Recurring charge failed
	{active, cancelled}: true, // Cancellation took effect
	{expired, active}:   true, // Reactivation
	{cancelled, active}: true, // Reactivation
}

type rule struct {
	from []entity.SubscriptionStatus
	to   entity.SubscriptionStatus
}

var triggers = map[Trigger]rule{
	TriggerPaymentSucceeded: {from: []entity.SubscriptionStatus{trial, grace, active, expired, cancelled}, to: active},
	TriggerPaymentFailed:    {from: []entity.SubscriptionStatus{trial, active}, to: grace},
	TriggerHalted:           {from: []entity.SubscriptionStatus{trial, active}, to: grace},
	TriggerTrialEnded:       {from: []entity.SubscriptionStatus{trial}, to: grace},
	TriggerGraceEnded:       {from: []entity.SubscriptionStatus{grace}, to: expired},
	TriggerPeriodEnded:      {from: []entity.SubscriptionStatus{active}, to: expired},
	TriggerCancelled:        {from: []entity.SubscriptionStatus{trial, grace, active}, to: cancelled},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to entity.SubscriptionStatus) bool {
	return validTransitions[Transition{from, to}]
}

// ValidTransitionsFrom returns all valid target states from the given state.
func ValidTransitionsFrom(from entity.SubscriptionStatus) []entity.SubscriptionStatus {
	targets := make([]entity.SubscriptionStatus, 0)
	for t := range validTransitions {
		if t.From == from {
			targets = append(targets, t.To)
		}
	}
	slices.Sort(targets)
	return targets
}

// SourcesFor returns the states a trigger may fire from. Repositories use it
// as the compare-and-swap condition on the current status.
func SourcesFor(trigger Trigger) []entity.SubscriptionStatus {
	r, ok := triggers[trigger]
	if !ok {
		return nil
	}
	return slices.Clone(r.from)
}

func TargetOf(trigger Trigger) (entity.SubscriptionStatus, bool) {
	r, ok := triggers[trigger]
	return r.to, ok
}

// Allows reports whether the trigger may fire while the tenant is in status from.
func Allows(trigger Trigger, from entity.SubscriptionStatus) bool {
	r, ok := triggers[trigger]
	if !ok {
		return false
	}
	return slices.Contains(r.from, from) && CanTransition(from, r.to)
}
