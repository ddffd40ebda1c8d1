package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkOrderTransitions(t *testing.T) {
	sm := NewWorkOrderStateMachine()

	tests := []struct {
		from, to string
		want     bool
	}{
		{"pending", "in_progress", true},
		{"pending", "completed", true},
		{"in_progress", "completed", true},
		{"in_progress", "pending", true},
		{"completed", "pending", false},
		{"completed", "in_progress", false},
		{"pending", "pending", false},
		{"archived", "pending", false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, sm.CanTransition(tt.from, tt.to))
		})
	}

	assert.Empty(t, sm.GetAllowedTransitions("completed"))
	assert.Empty(t, sm.GetAllowedTransitions("archived"))
	assert.ErrorContains(t, sm.Transition("pending", "archived"), "unknown status")
	assert.ErrorContains(t, sm.Transition("completed", "pending"), "cannot change status")
	assert.NoError(t, sm.Transition("pending", "in_progress"))
}
