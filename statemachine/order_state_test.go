package statemachine

import (
	"testing"

	"quickbite-api/apperr"
	"quickbite-api/models"

	"github.com/stretchr/testify/assert"
)

func TestCustomerCancelOnlyFromPending(t *testing.T) {
	assert.NoError(t, CanTransition(models.StatusPending, models.StatusCancelled, ActorCustomer))

	for _, from := range []models.OrderStatus{
		models.StatusPreparing, models.StatusOutForDelivery, models.StatusDelivered, models.StatusCancelled,
	} {
		err := CanTransition(from, models.StatusCancelled, ActorCustomer)
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition, from)
		assert.EqualError(t, err, "only pending orders can be cancelled")
	}
}

func TestRestaurantFollowsGraph(t *testing.T) {
	assert.NoError(t, CanTransition(models.StatusPending, models.StatusPreparing, ActorRestaurant))
	assert.NoError(t, CanTransition(models.StatusPreparing, models.StatusOutForDelivery, ActorRestaurant))
	assert.NoError(t, CanTransition(models.StatusOutForDelivery, models.StatusDelivered, ActorRestaurant))

	err := CanTransition(models.StatusPending, models.StatusDelivered, ActorRestaurant)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "PREPARING, CANCELLED")
}

func TestNothingLeavesTerminalOrReturnsToPending(t *testing.T) {
	for _, actor := range []Actor{ActorCustomer, ActorRestaurant, ActorAdmin} {
		for _, to := range []models.OrderStatus{models.StatusPending, models.StatusPreparing, models.StatusDelivered} {
			assert.Error(t, CanTransition(models.StatusDelivered, to, actor))
			assert.Error(t, CanTransition(models.StatusCancelled, to, actor))
			assert.Error(t, CanTransition(models.StatusPreparing, models.StatusPending, actor))
		}
	}
	assert.Empty(t, ValidTransitionsFrom(models.StatusDelivered))
	assert.Empty(t, ValidTransitionsFrom(models.StatusCancelled))
}

func TestCanOverride(t *testing.T) {
	assert.NoError(t, CanOverride(models.StatusPending, models.StatusDelivered))
	assert.NoError(t, CanOverride(models.StatusOutForDelivery, models.StatusCancelled))

	assert.ErrorIs(t, CanOverride(models.StatusDelivered, models.StatusCancelled), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, CanOverride(models.StatusPreparing, models.StatusPending), apperr.ErrInvalidTransition)
	assert.ErrorIs(t, CanOverride(models.StatusPreparing, models.StatusPreparing), apperr.ErrInvalidTransition)
}

func TestGetAllTransitionsIsACopy(t *testing.T) {
	all := GetAllTransitions()
	all[0].To = models.StatusDelivered
	assert.Equal(t, models.StatusPreparing, GetAllTransitions()[0].To)
}
