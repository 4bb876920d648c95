package systems

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// AnimationSystemConfig controls the worker pool spec.md §4.4 describes:
// "distributed across a high-priority worker pool via a single atomic
// next-index counter".
type AnimationSystemConfig struct {
	WorkerCount int
}

func DefaultAnimationSystemConfig() AnimationSystemConfig {
	return AnimationSystemConfig{WorkerCount: 4}
}

type AnimationSystem struct {
	config AnimationSystemConfig
}

func NewAnimationSystem(config AnimationSystemConfig) *AnimationSystem {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	return &AnimationSystem{config: config}
}

// animScratch holds per-worker reusable scratch vectors so the parallel
// evaluation loop avoids per-object allocation, per spec.md §4.4.
type animScratch struct {
	nodeMatrices  []math.Mat4
	keyFrameLocs  []keyframeLoc
}

type keyframeLoc struct {
	i0, i1 int
	frac   float32
}

// EvaluateFrame computes joint matrices for every object in objects that
// is within the anim-shadow frustum (or has never been evaluated) and of
// sufficient projected screen size, per spec.md §4.4. cameraPos is used
// for the coarse screen-size estimate; frustum culls entirely-offscreen
// objects.
func (as *AnimationSystem) EvaluateFrame(objects []*metadata.Object, frustum math.Frustum, cameraPos math.Vec3, time float64) {
	var next int64
	n := int64(len(objects))

	var wg sync.WaitGroup
	for w := 0; w < as.config.WorkerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scratch := &animScratch{}
			for {
				i := atomic.AddInt64(&next, 1) - 1
				if i >= n {
					return
				}
				o := objects[i]
				if !as.shouldEvaluate(o, frustum, cameraPos) {
					continue
				}
				evaluateObject(o, scratch, time)
			}
		}()
	}
	wg.Wait()
}

// shouldEvaluate implements spec.md §4.4's visibility/size gate:
// "within the anim-shadow frustum ... and of sufficient projected screen
// size (roughly > 1% projected length); animated objects with empty
// joint_matrices are always processed once."
func (as *AnimationSystem) shouldEvaluate(o *metadata.Object, frustum math.Frustum, cameraPos math.Vec3) bool {
	if len(o.JointMatrices) == 0 {
		return true
	}
	if !frustum.IntersectsAABB(o.WorldAABB) {
		return false
	}
	diag := o.WorldAABB.Diagonal()
	dist := o.WorldAABB.Centroid().Sub(cameraPos).Length()
	if dist <= 0 {
		return true
	}
	const minProjectedFraction = 0.01
	return diag/dist > minProjectedFraction
}

func evaluateObject(o *metadata.Object, scratch *animScratch, time float64) {
	rig := o.Mesh.Rig
	if rig == nil {
		return
	}

	fraction := animationBlendFraction(o, time)

	animA := rig.Animations[o.CurrentAnimation]
	var animB *metadata.Animation
	if fraction > 0 {
		animB = rig.Animations[o.NextAnimation]
	}

	if cap(scratch.nodeMatrices) < len(rig.Nodes) {
		scratch.nodeMatrices = make([]math.Mat4, len(rig.Nodes))
	}
	nodeToObject := scratch.nodeMatrices[:len(rig.Nodes)]

	for _, nodeIdx := range rig.TopologicalOrder {
		node := rig.Nodes[nodeIdx]

		translation, rotation, scale := sampleNode(animA, animB, nodeIdx, fraction, time)
		if o.ProceduralRotation != nil {
			rotation = *o.ProceduralRotation
		}

		local := composeTRS(translation, rotation, scale)
		if node.RetargetAdjustment != nil {
			local = local.Mul(*node.RetargetAdjustment)
		}

		if node.ParentIndex < 0 {
			nodeToObject[nodeIdx] = local
		} else {
			nodeToObject[nodeIdx] = nodeToObject[node.ParentIndex].Mul(local)
		}
	}

	// Joint matrices: joint_matrices[j] = node_hierarchical_to_object[joint_nodes[j]] * inverse_bind[joint_nodes[j]].
	for j, nodeIdx := range rig.JointNodes {
		if j >= len(o.JointMatrices) {
			break
		}
		o.JointMatrices[j] = nodeToObject[nodeIdx].Mul(rig.Nodes[nodeIdx].InverseBind)
	}
}

// animationBlendFraction is a smoothstep of elapsed time within
// [TransitionStart, TransitionEnd], per spec.md §4.4 "Blending".
func animationBlendFraction(o *metadata.Object, time float64) float32 {
	if o.NextAnimation == "" || o.TransitionEnd <= o.TransitionStart {
		return 0
	}
	if time <= o.TransitionStart {
		return 0
	}
	if time >= o.TransitionEnd {
		return 1
	}
	t := float32((time - o.TransitionStart) / (o.TransitionEnd - o.TransitionStart))
	return t * t * (3 - 2*t)
}

func sampleNode(animA, animB *metadata.Animation, nodeIdx int32, fraction float32, time float64) (math.Vec3, math.Quaternion, math.Vec3) {
	t, r, s := sampleChannel(animA, nodeIdx, time)
	if fraction <= 0 || animB == nil {
		return t, r, s
	}
	t2, r2, s2 := sampleChannel(animB, nodeIdx, time)
	if fraction >= 1 {
		return t2, r2, s2
	}
	return lerpVec3(t, t2, fraction), nlerpQuat(r, r2, fraction), lerpVec3(s, s2, fraction)
}

func sampleChannel(anim *metadata.Animation, nodeIdx int32, time float64) (math.Vec3, math.Quaternion, math.Vec3) {
	if anim == nil {
		return math.NewVec3Zero(), math.NewQuatIdentity(), math.Vec3{X: 1, Y: 1, Z: 1}
	}
	t := math.NewVec3Zero()
	r := math.NewQuatIdentity()
	s := math.Vec3{X: 1, Y: 1, Z: 1}
	for _, ch := range anim.Channels {
		if ch.NodeIndex != nodeIdx {
			continue
		}
		loc := lookupKeyframe(ch.Accessor, float32(time))
		k0 := ch.Keyframes[loc.i0]
		k1 := ch.Keyframes[loc.i1]
		t = lerpVec3(k0.Translation, k1.Translation, loc.frac)
		r = nlerpQuat(k0.Rotation, k1.Rotation, loc.frac)
		s = lerpVec3(k0.Scale, k1.Scale, loc.frac)
	}
	return t, r, s
}

// lookupKeyframe implements spec.md §4.4's "Keyframe lookup": an O(1)
// arithmetic path for equally-spaced accessors, else a clamped
// upper_bound binary search.
func lookupKeyframe(accessor metadata.InputAccessor, time float32) keyframeLoc {
	n := len(accessor.Times)
	if n == 0 {
		return keyframeLoc{0, 0, 0}
	}
	if n == 1 {
		return keyframeLoc{0, 0, 0}
	}
	if time <= accessor.Times[0] {
		return keyframeLoc{0, 0, 0}
	}
	if time >= accessor.Times[n-1] {
		return keyframeLoc{n - 1, n - 1, 0}
	}
	if accessor.EquallySpaced && accessor.SampleInterval > 0 {
		f := (time - accessor.Times[0]) / accessor.SampleInterval
		i0 := int(f)
		if i0 >= n-1 {
			return keyframeLoc{n - 1, n - 1, 0}
		}
		return keyframeLoc{i0, i0 + 1, f - float32(i0)}
	}
	i1 := sort.Search(n, func(i int) bool { return accessor.Times[i] > time })
	if i1 <= 0 {
		return keyframeLoc{0, 0, 0}
	}
	if i1 >= n {
		return keyframeLoc{n - 1, n - 1, 0}
	}
	i0 := i1 - 1
	span := accessor.Times[i1] - accessor.Times[i0]
	if span <= 0 {
		return keyframeLoc{i0, i1, 0}
	}
	return keyframeLoc{i0, i1, (time - accessor.Times[i0]) / span}
}

func composeTRS(translation math.Vec3, rotation math.Quaternion, scale math.Vec3) math.Mat4 {
	t := math.NewMat4Translation(translation)
	r := rotation.ToMat4()
	s := math.NewMat4Identity()
	s.Data[0] = scale.X
	s.Data[5] = scale.Y
	s.Data[10] = scale.Z
	return t.Mul(r).Mul(s)
}

func lerpVec3(a, b math.Vec3, t float32) math.Vec3 {
	return math.Vec3{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
	}
}

// nlerpQuat is normalized-linear interpolation, per spec.md §4.4
// ("normalized linear interpolation between quaternions") rather than
// Slerp, matching the keyframe-blend cost budget.
func nlerpQuat(a, b math.Quaternion, t float32) math.Quaternion {
	// Take the short path: flip b if the dot product is negative.
	dot := a.X*b.X + a.Y*b.Y + a.Z*b.Z + a.W*b.W
	if dot < 0 {
		b = math.Quaternion{X: -b.X, Y: -b.Y, Z: -b.Z, W: -b.W}
	}
	r := math.Quaternion{
		X: a.X + (b.X-a.X)*t,
		Y: a.Y + (b.Y-a.Y)*t,
		Z: a.Z + (b.Z-a.Z)*t,
		W: a.W + (b.W-a.W)*t,
	}
	return r.Normalize()
}
