package statemachine

import (
	"strings"

	"quickbite-api/apperr"
	"quickbite-api/models"
)

// Actor is the party requesting a transition
type Actor string

const (
	ActorCustomer   Actor = "customer"
	ActorRestaurant Actor = "restaurant"
	ActorAdmin      Actor = "admin"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor Actor              `json:"actor"`
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Kitchen accepts the order
	{From: models.StatusPending, To: models.StatusPreparing, Actor: ActorRestaurant},
	{From: models.StatusPending, To: models.StatusPreparing, Actor: ActorAdmin},
	// Only a pending order may be cancelled by its customer
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorCustomer},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorRestaurant},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusOutForDelivery, Actor: ActorRestaurant},
	{From: models.StatusPreparing, To: models.StatusOutForDelivery, Actor: ActorAdmin},
	{From: models.StatusPreparing, To: models.StatusCancelled, Actor: ActorRestaurant},
	{From: models.StatusPreparing, To: models.StatusCancelled, Actor: ActorAdmin},
	{From: models.StatusOutForDelivery, To: models.StatusDelivered, Actor: ActorRestaurant},
	{From: models.StatusOutForDelivery, To: models.StatusDelivered, Actor: ActorAdmin},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

func IsTerminal(status models.OrderStatus) bool {
	return status == models.StatusDelivered || status == models.StatusCancelled
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor Actor) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	if actor == ActorCustomer && to == models.StatusCancelled {
		return apperr.New(apperr.KindInvalidTransition, "only pending orders can be cancelled")
	}
	return apperr.New(apperr.KindInvalidTransition,
		"cannot move order from %s to %s as %s; valid next states: %s",
		from, to, actor, describeValidFrom(from))
}

// CanOverride allows an admin to jump to any status except PENDING, as long
// as the order is not already terminal.
func CanOverride(from, to models.OrderStatus) error {
	switch {
	case IsTerminal(from):
		return apperr.New(apperr.KindInvalidTransition, "order is already %s", from)
	case to == models.StatusPending:
		return apperr.New(apperr.KindInvalidTransition, "orders cannot be moved back to %s", models.StatusPending)
	case from == to:
		return apperr.New(apperr.KindInvalidTransition, "order is already %s", from)
	}
	return nil
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}
