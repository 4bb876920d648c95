package systems

import (
	"testing"

	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func riggedObject() *metadata.Object {
	rig := &metadata.AnimationRig{
		Nodes: []metadata.JointNode{
			{Name: "root", ParentIndex: -1, InverseBind: math.NewMat4Identity()},
		},
		TopologicalOrder: []int32{0},
		JointNodes:       []int32{0},
		Animations: map[string]*metadata.Animation{
			"walk": {
				Name:     "walk",
				Duration: 1,
				Channels: []metadata.AnimationChannel{
					{
						NodeIndex: 0,
						Accessor: metadata.InputAccessor{
							Times:          []float32{0, 1},
							EquallySpaced:  true,
							SampleInterval: 1,
						},
						Keyframes: []metadata.Keyframe{
							{Time: 0, Translation: math.NewVec3(0, 0, 0), Rotation: math.NewQuatIdentity(), Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
							{Time: 1, Translation: math.NewVec3(10, 0, 0), Rotation: math.NewQuatIdentity(), Scale: math.Vec3{X: 1, Y: 1, Z: 1}},
						},
					},
				},
			},
		},
	}
	return &metadata.Object{
		Mesh: &metadata.Mesh{
			Rig: rig,
		},
		WorldAABB:        math.Extents3D{Min: math.NewVec3(-1, -1, -1), Max: math.NewVec3(1, 1, 1)},
		CurrentAnimation: "walk",
		JointMatrices:    make([]math.Mat4, 1),
	}
}

func TestEvaluateFrameProducesInterpolatedJointMatrix(t *testing.T) {
	as := NewAnimationSystem(AnimationSystemConfig{WorkerCount: 2})
	obj := riggedObject()

	as.EvaluateFrame([]*metadata.Object{obj}, math.Frustum{}, math.NewVec3(0, 0, 0), 0.5)

	m := obj.JointMatrices[0]
	// Halfway through the 0->10 translation channel, expect roughly x=5 in the translation column.
	if m.Data[12] < 4 || m.Data[12] > 6 {
		t.Fatalf("expected joint matrix translation.x near 5 at t=0.5, got %f", m.Data[12])
	}
}

func TestEvaluateFrameSkipsCulledAnimatedObjects(t *testing.T) {
	as := NewAnimationSystem(DefaultAnimationSystemConfig())
	obj := riggedObject()
	obj.WorldAABB = math.Extents3D{Min: math.NewVec3(1000, 1000, 1000), Max: math.NewVec3(1001, 1001, 1001)}

	frustum := math.Frustum{} // zero-value AABB: only overlaps the origin
	before := obj.JointMatrices[0]
	as.EvaluateFrame([]*metadata.Object{obj}, frustum, math.NewVec3(0, 0, 0), 0.5)

	if obj.JointMatrices[0] != before {
		t.Fatalf("expected a far-away, frustum-culled animated object to be skipped")
	}
}

func TestAnimationBlendFractionClampsAndSmoothsteps(t *testing.T) {
	obj := &metadata.Object{NextAnimation: "run", TransitionStart: 1, TransitionEnd: 2}

	if f := animationBlendFraction(obj, 0); f != 0 {
		t.Fatalf("expected 0 before TransitionStart, got %f", f)
	}
	if f := animationBlendFraction(obj, 3); f != 1 {
		t.Fatalf("expected 1 after TransitionEnd, got %f", f)
	}
	mid := animationBlendFraction(obj, 1.5)
	if mid <= 0 || mid >= 1 {
		t.Fatalf("expected a mid-transition fraction strictly between 0 and 1, got %f", mid)
	}
}

func TestAnimationBlendFractionZeroWithoutNextAnimation(t *testing.T) {
	obj := &metadata.Object{TransitionStart: 0, TransitionEnd: 1}
	if f := animationBlendFraction(obj, 0.5); f != 0 {
		t.Fatalf("expected 0 blend fraction with no NextAnimation set, got %f", f)
	}
}

func TestLookupKeyframeEquallySpacedArithmeticPath(t *testing.T) {
	accessor := metadata.InputAccessor{
		Times:          []float32{0, 1, 2, 3},
		EquallySpaced:  true,
		SampleInterval: 1,
	}
	loc := lookupKeyframe(accessor, 1.25)
	if loc.i0 != 1 || loc.i1 != 2 {
		t.Fatalf("expected keyframe bracket [1,2], got [%d,%d]", loc.i0, loc.i1)
	}
	if loc.frac < 0.24 || loc.frac > 0.26 {
		t.Fatalf("expected fractional offset ~0.25, got %f", loc.frac)
	}
}

func TestLookupKeyframeBinarySearchPath(t *testing.T) {
	accessor := metadata.InputAccessor{Times: []float32{0, 0.5, 3, 10}}
	loc := lookupKeyframe(accessor, 4)
	if loc.i0 != 2 || loc.i1 != 3 {
		t.Fatalf("expected keyframe bracket [2,3], got [%d,%d]", loc.i0, loc.i1)
	}
}

func TestLookupKeyframeClampsBeyondRange(t *testing.T) {
	accessor := metadata.InputAccessor{Times: []float32{0, 1, 2}}
	loc := lookupKeyframe(accessor, 100)
	if loc.i0 != 2 || loc.i1 != 2 {
		t.Fatalf("expected clamp to the last keyframe, got [%d,%d]", loc.i0, loc.i1)
	}
}
