package review

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

// Review events.
const (
	EventConfirm    = "confirm"
	EventAutoCommit = "auto_commit"
)

// Machine enforces the monotonic review transitions: pending_review moves
// to confirmed or auto_committed, both terminal.
type Machine struct {
	fsm *fsm.FSM
}

// NewMachine creates a review state machine at the given status.
func NewMachine(current string) *Machine {
	return &Machine{
		fsm: fsm.NewFSM(
			current,
			fsm.Events{
				{Name: EventConfirm, Src: []string{models.ReviewStatusPending}, Dst: models.ReviewStatusConfirmed},
				{Name: EventAutoCommit, Src: []string{models.ReviewStatusPending}, Dst: models.ReviewStatusAutoCommitted},
			},
			fsm.Callbacks{},
		),
	}
}

// Current returns the machine's status.
func (m *Machine) Current() string {
	return m.fsm.Current()
}

// Can reports whether the event is allowed from the current status.
func (m *Machine) Can(event string) bool {
	return m.fsm.Can(event)
}

// Trigger fires an event.
func (m *Machine) Trigger(event string) error {
	if err := m.fsm.Event(context.Background(), event); err != nil {
		return fmt.Errorf("review transition %s: %w", event, err)
	}
	return nil
}
