package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderWorkflowTransitions(t *testing.T) {
	cases := []struct {
		from string
		to   string
		ok   bool
	}{
		{LabOrderStatusPending, LabOrderStatusCollected, true},
		{LabOrderStatusCollected, LabOrderStatusInProgress, true},
		{LabOrderStatusInProgress, LabOrderStatusResulted, true},
		{LabOrderStatusResulted, LabOrderStatusReviewed, true},

		// no skipping steps
		{LabOrderStatusPending, LabOrderStatusInProgress, false},
		{LabOrderStatusPending, LabOrderStatusResulted, false},
		{LabOrderStatusCollected, LabOrderStatusResulted, false},

		// no going back
		{LabOrderStatusResulted, LabOrderStatusCollected, false},
		{LabOrderStatusReviewed, LabOrderStatusResulted, false},

		// terminal states stay put
		{LabOrderStatusReviewed, LabOrderStatusCollected, false},
		{LabOrderStatusCancelled, LabOrderStatusCollected, false},
	}

	for _, tc := range cases {
		order := LabOrder{LabOrderStatus: tc.from}
		assert.Equal(t, tc.ok, order.CanAdvanceTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOrderCancellation(t *testing.T) {
	cancellable := []string{LabOrderStatusPending, LabOrderStatusCollected, LabOrderStatusInProgress}
	for _, status := range cancellable {
		order := LabOrder{LabOrderStatus: status}
		assert.True(t, order.CanCancel(), "%s should be cancellable", status)
	}

	locked := []string{LabOrderStatusResulted, LabOrderStatusReviewed, LabOrderStatusCancelled}
	for _, status := range locked {
		order := LabOrder{LabOrderStatus: status}
		assert.False(t, order.CanCancel(), "%s should not be cancellable", status)
	}
}
