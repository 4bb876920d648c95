package systems

import (
	"testing"

	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func unitCubeAt(id uint32, center math.Vec3) *metadata.Object {
	return &metadata.Object{
		ID: id,
		WorldAABB: math.Extents3D{
			Min: math.NewVec3(center.X-0.5, center.Y-0.5, center.Z-0.5),
			Max: math.NewVec3(center.X+0.5, center.Y+0.5, center.Z+0.5),
		},
	}
}

func TestSelectWaterObjectsCullsOutsideFrustum(t *testing.T) {
	scene := metadata.NewScene("test")
	inView := unitCubeAt(1, math.NewVec3(0, 0, 0))
	scene.Water[inView.ID] = inView

	frustum := math.Frustum{} // zero-value frustum admits anything overlapping its zero AABB
	got := SelectWaterObjects(scene, frustum)
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected water object 1 selected, got %v", got)
	}
}

func TestEffectiveCullModeFlipsOnNegativeDeterminant(t *testing.T) {
	mirrored := &metadata.Object{DeterminantSign: -1}
	if got := EffectiveCullMode(mirrored, metadata.FaceCullModeBack); got != metadata.FaceCullModeFront {
		t.Fatalf("expected Back to flip to Front for mirrored geometry, got %v", got)
	}

	normal := &metadata.Object{DeterminantSign: 1}
	if got := EffectiveCullMode(normal, metadata.FaceCullModeBack); got != metadata.FaceCullModeBack {
		t.Fatalf("expected Back unchanged for non-mirrored geometry, got %v", got)
	}
}

func TestSelectAlphaBlendedSortsBackToFront(t *testing.T) {
	scene := metadata.NewScene("test")
	near := unitCubeAt(1, math.NewVec3(1, 0, 0))
	far := unitCubeAt(2, math.NewVec3(10, 0, 0))
	near.DrawBatches = []metadata.BatchDrawInfo{{NumIndices: 3}}
	far.DrawBatches = []metadata.BatchDrawInfo{{NumIndices: 3}}
	scene.AlphaBlended[near.ID] = near
	scene.AlphaBlended[far.ID] = far

	items := SelectAlphaBlended(scene, math.Frustum{}, math.NewVec3(0, 0, 0))
	if len(items) != 2 {
		t.Fatalf("expected 2 draw items, got %d", len(items))
	}
	if items[0].obj.ID != 2 {
		t.Fatalf("expected farthest object (id 2) drawn first, got id %d", items[0].obj.ID)
	}
}

func TestBloomLevelSizeHalvesEachStepWithFloor(t *testing.T) {
	w0, h0 := BloomLevelSize(256, 256, 0)
	if w0 != 128 || h0 != 128 {
		t.Fatalf("step 0 = (%d,%d), want (128,128)", w0, h0)
	}
	w3, h3 := BloomLevelSize(256, 256, 3)
	if w3 != 16 || h3 != 16 {
		t.Fatalf("step 3 = (%d,%d), want (16,16)", w3, h3)
	}
	// Deep step must floor at 16, never reach 0.
	w10, h10 := BloomLevelSize(256, 256, 10)
	if w10 != 16 || h10 != 16 {
		t.Fatalf("step 10 = (%d,%d), want floored to (16,16)", w10, h10)
	}
}

func TestSortOverlaysOrdersByZDescending(t *testing.T) {
	a := &metadata.OverlayObject{ZOrder: 1}
	b := &metadata.OverlayObject{ZOrder: 5}
	c := &metadata.OverlayObject{ZOrder: 3}

	sorted := SortOverlays([]*metadata.OverlayObject{a, b, c})
	if sorted[0] != b || sorted[1] != c || sorted[2] != a {
		t.Fatalf("expected z-descending order [b,c,a], got %+v", sorted)
	}
}
