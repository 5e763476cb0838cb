package order

import (
	"fmt"
	"strings"

	"github.com/Skotchmaster/evocart/internal/domain"
)

type Status string

const (
	StatusPendingPayment Status = "Pending Payment"
	StatusPaid           Status = "Paid"
	StatusProcessing     Status = "Processing"
	StatusDeparture      Status = "Departure"
	StatusArrival        Status = "Arrival"
	StatusDelivered      Status = "Delivered"
	StatusCancelled      Status = "Cancelled"
)

var progress = map[Status]int{
	StatusPendingPayment: 10,
	StatusPaid:           25,
	StatusProcessing:     50,
	StatusDeparture:      70,
	StatusArrival:        85,
	StatusDelivered:      100,
	StatusCancelled:      0,
}

// ParseStatus accepts only the exact status names.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown order status %q", domain.ErrValidation, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := progress[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Progress is the display percentage of a status.
func (s Status) Progress() int {
	return progress[s]
}

// AdminSettable reports whether an admin may set s directly.
func (s Status) AdminSettable() bool {
	switch s {
	case StatusProcessing, StatusDeparture, StatusArrival, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type Actor int

const (
	ActorCustomer Actor = iota
	ActorAdmin
	ActorSystem
)

func (a Actor) String() string {
	switch a {
	case ActorCustomer:
		return "customer"
	case ActorAdmin:
		return "admin"
	case ActorSystem:
		return "system"
	}
	return "unknown"
}

// CanTransition decides whether actor may move an order from one status to
// another. Admins override the normal ordering but never write a no-op.
func CanTransition(from, to Status, actor Actor) bool {
	if !from.Valid() || !to.Valid() || from == to {
		return false
	}
	switch actor {
	case ActorCustomer:
		return from == StatusPendingPayment && to == StatusPaid
	case ActorAdmin:
		return to.AdminSettable()
	case ActorSystem:
		return from == StatusPendingPayment && to == StatusCancelled
	}
	return false
}
