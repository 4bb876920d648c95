package systems

import (
	"testing"

	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func TestSelectPrepassObjectsCullsByDistance(t *testing.T) {
	cfg := SSAOConfig{Enable: true, MaxDistance: 10, ResolutionDiv: 2}

	// A frustum whose AABB spans both objects, so only the distance
	// cutoff (not the frustum prefilter) decides which is selected.
	permissive := math.Frustum{AABB: math.Extents3D{Min: math.NewVec3(-1, -1, -1), Max: math.NewVec3(101, 1, 1)}}

	near := unitCubeAt(1, math.NewVec3(0, 0, 0))
	far := unitCubeAt(2, math.NewVec3(100, 0, 0))
	objects := map[uint32]*metadata.Object{near.ID: near, far.ID: far}

	got := SelectPrepassObjects(objects, permissive, math.NewVec3(0, 0, 0), cfg)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only the near object within MaxDistance selected, got %v", got)
	}
}

func TestSelectPrepassObjectsCullsOutsideFrustum(t *testing.T) {
	cfg := SSAOConfig{Enable: true, MaxDistance: 1000, ResolutionDiv: 2}
	offscreen := unitCubeAt(1, math.NewVec3(5, 0, 0))
	objects := map[uint32]*metadata.Object{offscreen.ID: offscreen}

	// Zero-value frustum only admits boxes overlapping the origin.
	got := SelectPrepassObjects(objects, math.Frustum{}, math.NewVec3(0, 0, 0), cfg)
	if len(got) != 0 {
		t.Fatalf("expected the offscreen object to be frustum-culled, got %v", got)
	}
}

func TestSelectPrepassObjectsEmptyWhenNothingInRange(t *testing.T) {
	cfg := DefaultSSAOConfig()
	far := unitCubeAt(1, math.NewVec3(1000, 0, 0))
	objects := map[uint32]*metadata.Object{far.ID: far}

	got := SelectPrepassObjects(objects, math.Frustum{}, math.NewVec3(0, 0, 0), cfg)
	if len(got) != 0 {
		t.Fatalf("expected no objects selected beyond MaxDistance, got %v", got)
	}
}
