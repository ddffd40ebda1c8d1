package workflows

import "fmt"

// StateMachine enforces status transitions of a record type.
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a state machine from an explicit transition table.
// States with no entry are unknown; states mapped to an empty list are terminal.
func NewStateMachine(transitions map[string][]string) *StateMachine {
	return &StateMachine{allowedTransitions: transitions}
}

// NewWorkOrderStateMachine returns the work order lifecycle.
func NewWorkOrderStateMachine() *StateMachine {
	return NewStateMachine(map[string][]string{
		"pending":     {"in_progress", "completed"},
		"in_progress": {"completed", "pending"},
		"completed":   {},
	})
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Transition returns an error describing why from -> to is not allowed.
func (sm *StateMachine) Transition(from, to string) error {
	if !sm.IsKnown(to) {
		return fmt.Errorf("unknown status %q", to)
	}
	if !sm.CanTransition(from, to) {
		return fmt.Errorf("cannot change status from %s to %s", from, to)
	}
	return nil
}

func (sm *StateMachine) IsKnown(status string) bool {
	_, ok := sm.allowedTransitions[status]
	return ok
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
