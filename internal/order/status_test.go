package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	t.Run("Forward edges are single-step", func(t *testing.T) {
		assert.True(t, CanTransition(StatusPending, StatusConfirmed))
		assert.True(t, CanTransition(StatusConfirmed, StatusShipped))
		assert.True(t, CanTransition(StatusShipped, StatusDelivered))

		// Skipping a step is not allowed.
		assert.False(t, CanTransition(StatusPending, StatusShipped))
		assert.False(t, CanTransition(StatusPending, StatusDelivered))
		assert.False(t, CanTransition(StatusConfirmed, StatusDelivered))
	})

	t.Run("Cancellation reachable from any non-terminal state", func(t *testing.T) {
		assert.True(t, CanTransition(StatusPending, StatusCancelled))
		assert.True(t, CanTransition(StatusConfirmed, StatusCancelled))
		assert.True(t, CanTransition(StatusShipped, StatusCancelled))
	})

	t.Run("Terminal states allow nothing", func(t *testing.T) {
		for _, to := range []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled} {
			assert.False(t, CanTransition(StatusDelivered, to), "DELIVERED -> %s", to)
			assert.False(t, CanTransition(StatusCancelled, to), "CANCELLED -> %s", to)
		}
	})

	t.Run("No backward movement", func(t *testing.T) {
		assert.False(t, CanTransition(StatusConfirmed, StatusPending))
		assert.False(t, CanTransition(StatusShipped, StatusConfirmed))
	})

	t.Run("Unknown status has no edges", func(t *testing.T) {
		assert.False(t, CanTransition(Status("PAID"), StatusConfirmed))
		assert.False(t, CanTransition(StatusPending, Status("PAID")))
	})
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.False(t, Status("PAID").Valid())

	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, Status("PAID").Terminal())
}
