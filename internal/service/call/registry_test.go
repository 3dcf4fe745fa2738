package call

import (
	"errors"
	"testing"
)

func registrySession(callSid string) *Session {
	return &Session{
		callSid:   callSid,
		lifecycle: NewLifecycle(callSid),
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()

	s := registrySession("CA1")
	if err := r.Register(s); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := r.Get("CA1"); got != s {
		t.Errorf("Get returned %v, want the registered session", got)
	}
	if got := r.Get("CA2"); got != nil {
		t.Errorf("Get for unknown SID = %v, want nil", got)
	}
	if got := r.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(registrySession("CA1")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(registrySession("CA1")); !errors.Is(err, ErrDuplicateCall) {
		t.Errorf("second Register = %v, want ErrDuplicateCall", err)
	}
	if got := r.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(registrySession("CA1")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !r.Remove("CA1") {
		t.Error("Remove should return true for a registered session")
	}
	if r.Remove("CA1") {
		t.Error("second Remove should return false")
	}
	if got := r.Count(); got != 0 {
		t.Errorf("Count = %d, want 0", got)
	}
}
