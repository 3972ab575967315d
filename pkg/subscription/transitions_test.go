package subscription

import (
	"testing"

	"gym-saas-be/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to entity.SubscriptionStatus
		want     bool
	}{
		{entity.SubscriptionStatusTrial, entity.SubscriptionStatusActive, true},
		{entity.SubscriptionStatusTrial, entity.SubscriptionStatusGrace, true},
		{entity.SubscriptionStatusGrace, entity.SubscriptionStatusExpired, true},
		{entity.SubscriptionStatusActive, entity.SubscriptionStatusCancelled, true},
		{entity.SubscriptionStatusExpired, entity.SubscriptionStatusActive, true},
		{entity.SubscriptionStatusCancelled, entity.SubscriptionStatusActive, true},
		{entity.SubscriptionStatusExpired, entity.SubscriptionStatusGrace, false},
		{entity.SubscriptionStatusCancelled, entity.SubscriptionStatusExpired, false},
		{entity.SubscriptionStatusExpired, entity.SubscriptionStatusCancelled, false},
		{entity.SubscriptionStatusTrial, entity.SubscriptionStatusExpired, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidTransitionsFrom(t *testing.T) {
	assert.Equal(t,
		[]entity.SubscriptionStatus{entity.SubscriptionStatusActive, entity.SubscriptionStatusCancelled, entity.SubscriptionStatusGrace},
		ValidTransitionsFrom(entity.SubscriptionStatusTrial),
	)
	assert.Equal(t, []entity.SubscriptionStatus{entity.SubscriptionStatusActive}, ValidTransitionsFrom(entity.SubscriptionStatusExpired))
}

func TestAllows(t *testing.T) {
	assert.True(t, Allows(TriggerPaymentFailed, entity.SubscriptionStatusActive))
	assert.False(t, Allows(TriggerPaymentFailed, entity.SubscriptionStatusGrace))
	assert.False(t, Allows(TriggerTrialEnded, entity.SubscriptionStatusActive))
	assert.True(t, Allows(TriggerPaymentSucceeded, entity.SubscriptionStatusCancelled))
	assert.False(t, Allows(TriggerCancelled, entity.SubscriptionStatusExpired))
	assert.False(t, Allows(Trigger("unknown"), entity.SubscriptionStatusTrial))
}

func TestSourcesFor_ReturnsCopy(t *testing.T) {
	sources := SourcesFor(TriggerGraceEnded)
	assert.Equal(t, []entity.SubscriptionStatus{entity.SubscriptionStatusGrace}, sources)

	sources[0] = entity.SubscriptionStatusActive
	assert.Equal(t, []entity.SubscriptionStatus{entity.SubscriptionStatusGrace}, SourcesFor(TriggerGraceEnded))

	target, ok := TargetOf(TriggerGraceEnded)
	assert.True(t, ok)
	assert.Equal(t, entity.SubscriptionStatusExpired, target)
}
