package systems

import (
	"testing"

	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func smallLight(id uint32, pos math.Vec3) *metadata.Light {
	return &metadata.Light{
		ID:       id,
		Position: pos,
		AABB: math.Extents3D{
			Min: math.NewVec3(pos.X-1, pos.Y-1, pos.Z-1),
			Max: math.NewVec3(pos.X+1, pos.Y+1, pos.Z+1),
		},
	}
}

func TestLightGridAssignsNearestLightsFirst(t *testing.T) {
	g := NewLightGrid()
	g.Insert(smallLight(1, math.NewVec3(0, 0, 0)))
	g.Insert(smallLight(2, math.NewVec3(5, 0, 0)))
	g.Insert(smallLight(3, math.NewVec3(1000, 1000, 1000))) // far outside the query cell span

	// Wide enough to intersect both light 1 and light 2's AABBs, centred
	// so light 1 is closer to the query centroid.
	box := math.Extents3D{Min: math.NewVec3(-6, -1, -1), Max: math.NewVec3(6, 1, 1)}
	out := g.AssignLights(box)

	if out[0] != 1 {
		t.Fatalf("expected nearest light (id 1) first, got %d", out[0])
	}
	if out[1] != 2 {
		t.Fatalf("expected second-nearest light (id 2) second, got %v", out)
	}
	for _, id := range out {
		if id == 3 {
			t.Fatalf("distant light 3 should not have been assigned: %v", out)
		}
	}
}

func TestLightGridRemoveStopsAssignment(t *testing.T) {
	g := NewLightGrid()
	l := smallLight(7, math.NewVec3(0, 0, 0))
	g.Insert(l)

	box := math.Extents3D{Min: math.NewVec3(-0.5, -0.5, -0.5), Max: math.NewVec3(0.5, 0.5, 0.5)}
	out := g.AssignLights(box)
	if out[0] != 7 {
		t.Fatalf("expected light 7 assigned before removal, got %v", out)
	}

	g.Remove(7)
	out = g.AssignLights(box)
	for _, id := range out {
		if id == 7 {
			t.Fatalf("light 7 still assigned after Remove: %v", out)
		}
	}
}

func TestLightGridAssignLightsEmptyWhenNoneNearby(t *testing.T) {
	g := NewLightGrid()
	g.Insert(smallLight(1, math.NewVec3(1000, 1000, 1000)))

	box := math.Extents3D{Min: math.NewVec3(-0.5, -0.5, -0.5), Max: math.NewVec3(0.5, 0.5, 0.5)}
	out := g.AssignLights(box)
	for _, id := range out {
		if id != -1 {
			t.Fatalf("expected no lights assigned, got %v", out)
		}
	}
}
