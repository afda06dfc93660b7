package review

import (
	"testing"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

func TestMachineTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current string
		event   string
		wantOK  bool
		wantDst string
	}{
		{"pending confirms", models.ReviewStatusPending, EventConfirm, true, models.ReviewStatusConfirmed},
		{"pending auto-commits", models.ReviewStatusPending, EventAutoCommit, true, models.ReviewStatusAutoCommitted},
		{"confirmed is terminal", models.ReviewStatusConfirmed, EventAutoCommit, false, models.ReviewStatusConfirmed},
		{"auto-committed is terminal", models.ReviewStatusAutoCommitted, EventConfirm, false, models.ReviewStatusAutoCommitted},
		{"manual never enters review", models.ReviewStatusManual, EventConfirm, false, models.ReviewStatusManual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(tt.current)
			if got := m.Can(tt.event); got != tt.wantOK {
				t.Fatalf("Can(%s) from %s = %v, want %v", tt.event, tt.current, got, tt.wantOK)
			}
			if tt.wantOK {
				if err := m.Trigger(tt.event); err != nil {
					t.Fatalf("Trigger(%s): %v", tt.event, err)
				}
			} else if err := m.Trigger(tt.event); err == nil {
				t.Fatalf("Trigger(%s) from %s did not fail", tt.event, tt.current)
			}
			if m.Current() != tt.wantDst {
				t.Fatalf("state = %s, want %s", m.Current(), tt.wantDst)
			}
		})
	}
}
