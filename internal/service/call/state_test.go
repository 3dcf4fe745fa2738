package call

import "testing"

func TestLifecycleTransitions(t *testing.T) {
	l := NewLifecycle("CA123")

	if got := l.State(); got != StateInitializing {
		t.Fatalf("initial state = %v, want INITIALIZING", got)
	}
	if l.IsActive() {
		t.Error("IsActive should be false while initializing")
	}

	if !l.Activate() {
		t.Fatal("Activate should succeed from INITIALIZING")
	}
	if got := l.State(); got != StateActive {
		t.Fatalf("state = %v, want ACTIVE", got)
	}
	if l.Activate() {
		t.Error("Activate should fail when already active")
	}

	if !l.BeginFinalize() {
		t.Fatal("BeginFinalize should succeed from ACTIVE")
	}
	if got := l.State(); got != StateFinalizing {
		t.Fatalf("state = %v, want FINALIZING", got)
	}
	if l.BeginFinalize() {
		t.Error("BeginFinalize should return false when already finalizing")
	}
	if l.Activate() {
		t.Error("Activate should fail while finalizing")
	}

	l.Close()
	if !l.IsClosed() {
		t.Error("IsClosed should be true after Close")
	}
	if l.BeginFinalize() {
		t.Error("BeginFinalize should return false after Close")
	}
}

func TestLifecycleFinalizeFromInitializing(t *testing.T) {
	l := NewLifecycle("CA456")
	if !l.BeginFinalize() {
		t.Fatal("BeginFinalize should succeed from INITIALIZING on setup failure")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateInitializing, "INITIALIZING"},
		{StateActive, "ACTIVE"},
		{StateFinalizing, "FINALIZING"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
