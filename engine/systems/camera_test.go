package systems

import (
	"testing"

	"github.com/spaghettifunk/anima/engine/renderer/components"
)

func TestCameraSystemAcquireIncrementsReferenceCount(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 4})
	if err != nil {
		t.Fatalf("NewCameraSystem: %v", err)
	}

	first, err := cs.Acquire("player")
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	second, err := cs.Acquire("player")
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same camera instance back for repeat Acquire of the same name")
	}
	if cs.slots[cs.lookup["player"]].ReferenceCount != 2 {
		t.Fatalf("expected reference count 2 after two Acquire calls, got %d", cs.slots[cs.lookup["player"]].ReferenceCount)
	}
}

func TestCameraSystemAcquireDefaultNameReturnsDefaultCamera(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 4})
	if err != nil {
		t.Fatalf("NewCameraSystem: %v", err)
	}

	cam, err := cs.Acquire(components.DEFAULT_CAMERA_NAME)
	if err != nil {
		t.Fatalf("Acquire default: %v", err)
	}
	if cam != cs.defaultCamera {
		t.Fatalf("expected the default camera instance for DEFAULT_CAMERA_NAME")
	}
	if len(cs.lookup) != 0 {
		t.Fatalf("acquiring the default camera must not register a lookup slot")
	}
}

func TestCameraSystemAcquireFailsWhenSlotsExhausted(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 2})
	if err != nil {
		t.Fatalf("NewCameraSystem: %v", err)
	}

	if _, err := cs.Acquire("a"); err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	if _, err := cs.Acquire("b"); err != nil {
		t.Fatalf("Acquire b: %v", err)
	}
	if _, err := cs.Acquire("c"); err == nil {
		t.Fatalf("expected an error acquiring beyond MaxCameraCount, got nil")
	}
}

func TestCameraSystemReleaseRecyclesSlotForReuse(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 1})
	if err != nil {
		t.Fatalf("NewCameraSystem: %v", err)
	}

	if _, err := cs.Acquire("a"); err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	if _, err := cs.Acquire("b"); err == nil {
		t.Fatalf("expected slot exhaustion before release")
	}

	cs.Release("a")
	if _, ok := cs.lookup["a"]; ok {
		t.Fatalf("expected 'a' removed from lookup after its reference count hit zero")
	}

	if _, err := cs.Acquire("b"); err != nil {
		t.Fatalf("Acquire b after release of a: %v", err)
	}
}

func TestCameraSystemReleaseDefaultCameraIsNoop(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 4})
	if err != nil {
		t.Fatalf("NewCameraSystem: %v", err)
	}
	// Must not panic or mutate lookup state; the default camera is never registered.
	cs.Release(components.DEFAULT_CAMERA_NAME)
	if len(cs.lookup) != 0 {
		t.Fatalf("releasing the default camera name must not touch lookup state")
	}
}

func TestCameraSystemReleaseUnknownNameIsNoop(t *testing.T) {
	cs, err := NewCameraSystem(CameraSystemConfig{MaxCameraCount: 4})
	if err != nil {
		t.Fatalf("NewCameraSystem: %v", err)
	}
	cs.Release("never-acquired")
}
