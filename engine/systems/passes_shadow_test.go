package systems

import (
	"testing"

	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func TestComputeDynamicCascadesNearFarGeometricProgression(t *testing.T) {
	cfg := DefaultShadowSystemConfig()
	ss := NewShadowSystem(cfg)

	cascades := ss.ComputeDynamicCascades(math.Frustum{}, 0.1, math.NewVec3(0, -1, 0))
	if len(cascades) != cfg.DynamicCascadeCount {
		t.Fatalf("expected %d cascades, got %d", cfg.DynamicCascadeCount, len(cascades))
	}
	if cascades[0].Near != cfg.CascadeEpsilon {
		t.Fatalf("expected cascade 0 near = epsilon %f, got %f", cfg.CascadeEpsilon, cascades[0].Near)
	}
	for i := 1; i < len(cascades); i++ {
		if cascades[i].Near != cascades[i-1].Far {
			t.Fatalf("cascade %d near (%f) must equal cascade %d far (%f)", i, cascades[i].Near, i-1, cascades[i-1].Far)
		}
		if cascades[i].Far <= cascades[i].Near {
			t.Fatalf("cascade %d far (%f) must exceed near (%f)", i, cascades[i].Far, cascades[i].Near)
		}
	}
}

func TestShouldDrawInCascadeRejectsTinyObjects(t *testing.T) {
	cascade := DynamicCascade{
		Near:    0,
		Far:     1000, // wide slice so a tiny object fails the 0.2% threshold
		Frustum: math.Frustum{},
	}
	tiny := &metadata.Object{WorldAABB: math.Extents3D{Min: math.NewVec3(-0.01, -0.01, -0.01), Max: math.NewVec3(0.01, 0.01, 0.01)}}
	if ShouldDrawInCascade(tiny, cascade) {
		t.Fatalf("expected a pathologically small object to be skipped for this cascade's slice width")
	}
}

func TestShouldDrawInCascadeAcceptsSufficientlyLargeObjects(t *testing.T) {
	cascade := DynamicCascade{Near: 0, Far: 10, Frustum: math.Frustum{}}
	big := &metadata.Object{WorldAABB: math.Extents3D{Min: math.NewVec3(-1, -1, -1), Max: math.NewVec3(1, 1, 1)}}
	if !ShouldDrawInCascade(big, cascade) {
		t.Fatalf("expected a large, in-frustum object to be drawn in this cascade")
	}
}

func TestAdvanceStaticCyclesThroughCascadesAndSubsets(t *testing.T) {
	cfg := DefaultShadowSystemConfig()
	sc := NewStaticCascadeStack(cfg)

	seen := map[[2]int]bool{}
	for i := 0; i < cfg.StaticPeriod; i++ {
		cascadeIdx, subset, startOfRebuild := sc.AdvanceStatic(math.NewVec3(0, 0, 0))
		seen[[2]int{cascadeIdx, subset}] = true
		if subset == 0 != startOfRebuild {
			t.Fatalf("startOfRebuild must track subset==0, got subset=%d startOfRebuild=%v", subset, startOfRebuild)
		}
	}
	if len(seen) != cfg.StaticPeriod {
		t.Fatalf("expected %d distinct (cascade,subset) pairs over one full period, got %d", cfg.StaticPeriod, len(seen))
	}
}

func TestAdvanceStaticSwapsCurrentStackAfterFullPeriod(t *testing.T) {
	cfg := DefaultShadowSystemConfig()
	sc := NewStaticCascadeStack(cfg)

	startIsA := sc.currentIsA
	for i := 0; i < cfg.StaticPeriod; i++ {
		sc.AdvanceStatic(math.NewVec3(1, 2, 3))
	}
	if sc.currentIsA == startIsA {
		t.Fatalf("expected currentIsA to flip after a full StaticPeriod of frames")
	}
}

func TestShouldDrawInStaticSubsetMatchesRandomNumModulo(t *testing.T) {
	o := &metadata.Object{RandomNum: 5} // 5 & 3 == 1
	if !ShouldDrawInStaticSubset(o, 1) {
		t.Fatalf("expected object with RandomNum=5 to be drawn in subset 1")
	}
	if ShouldDrawInStaticSubset(o, 2) {
		t.Fatalf("expected object with RandomNum=5 not to be drawn in subset 2")
	}
}

func TestQuantizeTo10UnitSnapsToGrid(t *testing.T) {
	got := quantizeTo10Unit(math.NewVec3(14, -14, 25))
	want := math.NewVec3(10, -10, 30)
	if got != want {
		t.Fatalf("quantizeTo10Unit(14,-14,25) = %+v, want %+v", got, want)
	}
}
