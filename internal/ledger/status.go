package ledger

import (
	"fmt"
	"strings"

	"github.com/dairyline/milk-distributor/internal/apperr"
)

type Status string

const (
	StatusPlaced     Status = "PLACED"
	StatusPacked     Status = "PACKED"
	StatusDispatched Status = "DISPATCHED"
	StatusDelivered  Status = "DELIVERED"
)

// next holds the only status each status may move to.
var next = map[Status]Status{
	StatusPlaced:     StatusPacked,
	StatusPacked:     StatusDispatched,
	StatusDispatched: StatusDelivered,
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", apperr.InvalidArgument("Invalid status")
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusPlaced, StatusPacked, StatusDispatched, StatusDelivered:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered
}

// CanTransitionTo allows exactly one forward step.
func (s Status) CanTransitionTo(to Status) bool {
	n, ok := next[s]
	return ok && n == to
}

func (s Status) transitionTo(to Status) error {
	if !s.CanTransitionTo(to) {
		return apperr.InvalidArgument(fmt.Sprintf("Invalid status transition from %s to %s", s, to))
	}
	return nil
}
