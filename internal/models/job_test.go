package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from    JobStatus
		to      JobStatus
		allowed bool
	}{
		{JobStatusOpen, JobStatusInProgress, true},
		{JobStatusOpen, JobStatusCancelled, true},
		{JobStatusOpen, JobStatusAwaiting, false},
		{JobStatusOpen, JobStatusCompleted, false},
		{JobStatusInProgress, JobStatusAwaiting, true},
		{JobStatusInProgress, JobStatusCancelled, true},
		{JobStatusInProgress, JobStatusCompleted, false},
		{JobStatusInProgress, JobStatusOpen, false},
		{JobStatusAwaiting, JobStatusCompleted, true},
		{JobStatusAwaiting, JobStatusCancelled, true},
		{JobStatusAwaiting, JobStatusInProgress, false},
		{JobStatusCompleted, JobStatusCancelled, false},
		{JobStatusCompleted, JobStatusOpen, false},
		{JobStatusCancelled, JobStatusOpen, false},
		{JobStatusCancelled, JobStatusInProgress, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	assert.False(t, JobStatusOpen.Terminal())
	assert.False(t, JobStatusInProgress.Terminal())
	assert.False(t, JobStatusAwaiting.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusCancelled.Terminal())
}

func TestBudgetType(t *testing.T) {
	fixed := &Job{OpenToOffer: false}
	assert.Equal(t, "fixed", fixed.BudgetType())

	open := &Job{OpenToOffer: true}
	assert.Equal(t, "open_to_offer", open.BudgetType())
}

func TestLocationComplete(t *testing.T) {
	assert.True(t, Location{Latitude: 1, Longitude: 2, Address: "x"}.Complete())
	assert.False(t, Location{Latitude: 1, Longitude: 2}.Complete())
	assert.False(t, Location{Address: "x"}.Complete())
	assert.False(t, Location{}.Complete())
}
