package systems

import (
	"fmt"
	"testing"

	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func TestTextureSystemAcquireCachesByPath(t *testing.T) {
	ts := NewTextureSystem(DefaultTextureSystemConfig())

	calls := 0
	loadFn := func() (*metadata.Texture, error) {
		calls++
		return &metadata.Texture{Name: "a.png", CPUBytes: 1024, GPUBytes: 1024}, nil
	}

	if _, err := ts.Acquire("a.png", loadFn); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if _, err := ts.Acquire("a.png", loadFn); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if calls != 1 {
		t.Fatalf("loadFn called %d times, want 1 (second Acquire should hit cache)", calls)
	}
}

func TestTextureSystemEvictsUnusedUnderBudget(t *testing.T) {
	cfg := TextureSystemConfig{MaxTextureCount: 100, CPUBudgetBytes: 1500, GPUBudgetBytes: 1500}
	ts := NewTextureSystem(cfg)

	load := func(name string, bytes uint64) func() (*metadata.Texture, error) {
		return func() (*metadata.Texture, error) {
			return &metadata.Texture{Name: name, CPUBytes: bytes, GPUBytes: bytes, Resident: true}, nil
		}
	}

	if _, err := ts.Acquire("big.png", load("big.png", 1000)); err != nil {
		t.Fatalf("Acquire big: %v", err)
	}
	ts.Release("big.png") // refCount drops to zero, queued unused
	ts.DrainBecameUnused()

	if _, err := ts.Acquire("other.png", load("other.png", 1000)); err != nil {
		t.Fatalf("Acquire other: %v", err)
	}

	if ts.CPUBytesUsed() > cfg.CPUBudgetBytes {
		t.Fatalf("CPU usage %d exceeds budget %d after eviction should have run", ts.CPUBytesUsed(), cfg.CPUBudgetBytes)
	}
}

func TestTextureSystemActiveReferenceSurvivesTrim(t *testing.T) {
	cfg := TextureSystemConfig{MaxTextureCount: 100, CPUBudgetBytes: 100, GPUBudgetBytes: 100}
	ts := NewTextureSystem(cfg)

	load := func(name string, bytes uint64) func() (*metadata.Texture, error) {
		return func() (*metadata.Texture, error) {
			return &metadata.Texture{Name: name, CPUBytes: bytes, GPUBytes: bytes, Resident: true}, nil
		}
	}

	tex, err := ts.Acquire("kept.png", load("kept.png", 50))
	if err != nil {
		t.Fatalf("Acquire kept: %v", err)
	}
	// Never released: trimUsageLocked must not evict an entry still in
	// active use even though the budget is already exceeded.
	if _, err := ts.Acquire("other.png", load("other.png", 500)); err != nil {
		t.Fatalf("Acquire other: %v", err)
	}

	again, err := ts.Acquire("kept.png", func() (*metadata.Texture, error) {
		return nil, fmt.Errorf("loadFn should not be called, kept.png must still be resident")
	})
	if err != nil {
		t.Fatalf("re-Acquire kept.png: %v", err)
	}
	if again != tex {
		t.Fatalf("expected the same cached *Texture instance back")
	}
}
