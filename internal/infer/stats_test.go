package infer

import "testing"

func TestPhaseAdvanceInOrder(t *testing.T) {
	st := NewStats(-1)
	order := []Phase{PhaseInputsRead, PhaseScheduled, PhaseExecuted, PhaseFinalized, PhaseCompleted}
	for _, next := range order {
		if err := st.Advance(next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}
	if st.Phase() != PhaseCompleted {
		t.Fatalf("expected completed, got %s", st.Phase())
	}
}

func TestPhaseSkipRejected(t *testing.T) {
	st := NewStats(-1)
	if err := st.Advance(PhaseScheduled); !IsMisuse(err) {
		t.Fatalf("expected misuse on skipped phase, got %v", err)
	}
	if st.Phase() != PhaseCreated {
		t.Fatalf("failed advance must not move the phase")
	}
}

func TestPhaseBackwardsRejected(t *testing.T) {
	st := NewStats(-1)
	if err := st.Advance(PhaseInputsRead); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := st.Advance(PhaseCreated); !IsMisuse(err) {
		t.Fatalf("expected misuse on backwards transition, got %v", err)
	}
}

func TestStatsDevice(t *testing.T) {
	if d := NewStats(3).Device(); d != 3 {
		t.Fatalf("expected device 3, got %d", d)
	}
}
