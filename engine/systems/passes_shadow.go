package systems

import (
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// ShadowSystemConfig mirrors spec.md §4.8's defaults: N small dynamic
// cascades and a 12-frame staggered static-cascade rebuild period.
type ShadowSystemConfig struct {
	DynamicCascadeCount int
	CascadeScale        float32 // getScale(): near_i+1 = near_i * scale
	CascadeEpsilon      float32 // near_0
	MaxShadowingDist    float32
	StaticCascadeCount  int
	StaticPeriod        int // frames
}

func DefaultShadowSystemConfig() ShadowSystemConfig {
	return ShadowSystemConfig{
		DynamicCascadeCount: 3,
		CascadeScale:        4.0,
		CascadeEpsilon:      0.1,
		MaxShadowingDist:    300.0,
		StaticCascadeCount:  3,
		StaticPeriod:        12,
	}
}

// DynamicCascade is one dynamic shadow cascade's derived state, per
// spec.md §4.8 "Dynamic cascades".
type DynamicCascade struct {
	Near, Far     float32
	TextureMatrix math.Mat4 // texture * bias * projection * view
	Frustum       math.Frustum
}

// StaticCascadeStack tracks the double-buffered "current"/"other"
// textures and the staggered rebuild schedule of spec.md §4.8 "Static
// cascades".
type StaticCascadeStack struct {
	config ShadowSystemConfig

	frame        uint64
	currentIsA   bool // true: stack A is "current", B is "other" being rebuilt
	centerA      [3]math.Vec3
	centerB      [3]math.Vec3
}

func NewStaticCascadeStack(config ShadowSystemConfig) *StaticCascadeStack {
	return &StaticCascadeStack{config: config, currentIsA: true}
}

// quantizeTo10Unit snaps p to a 10-unit grid, per spec.md §4.8 "quantized
// to a 10-unit grid to avoid shimmer".
func quantizeTo10Unit(p math.Vec3) math.Vec3 {
	const grid = 10.0
	round := func(v float32) float32 {
		if v >= 0 {
			return float32(int32(v/grid+0.5)) * grid
		}
		return float32(int32(v/grid-0.5)) * grid
	}
	return math.Vec3{X: round(p.X), Y: round(p.Y), Z: round(p.Z)}
}

// ShadowSystem is the Shadow Cascade Renderer of spec.md §4.8.
type ShadowSystem struct {
	config ShadowSystemConfig
	static *StaticCascadeStack
}

func NewShadowSystem(config ShadowSystemConfig) *ShadowSystem {
	return &ShadowSystem{config: config, static: NewStaticCascadeStack(config)}
}

// ComputeDynamicCascades derives each cascade's view slice, frustum, and
// texture matrix from the camera frustum and sun direction, per spec.md
// §4.8 "Dynamic cascades".
func (ss *ShadowSystem) ComputeDynamicCascades(camera math.Frustum, cameraNear float32, sunDir math.Vec3) []DynamicCascade {
	cascades := make([]DynamicCascade, ss.config.DynamicCascadeCount)
	near := ss.config.CascadeEpsilon
	for i := 0; i < ss.config.DynamicCascadeCount; i++ {
		far := near * ss.config.CascadeScale

		extruded := camera.ExtrudeTowardSun(sunDir, ss.config.MaxShadowingDist)
		textureMatrix := shadowTextureMatrix(extruded.AABB, sunDir)

		cascades[i] = DynamicCascade{
			Near:          near,
			Far:           far,
			TextureMatrix: textureMatrix,
			Frustum:       extruded,
		}
		near = far
	}
	return cascades
}

// shadowTextureMatrix builds texture*bias*projection*view for a
// sun-aligned orthographic projection enclosing aabb, per spec.md §4.8
// "Store the texture * bias * projection * view matrix for the shader
// to index."
func shadowTextureMatrix(aabb math.Extents3D, sunDir math.Vec3) math.Mat4 {
	center := aabb.Centroid()
	half := aabb.HalfExtents()
	radius := half.Length()

	eye := center.Add(sunDir.MulScalar(-radius * 2))
	view := lookAt(eye, center, math.NewVec3Up())
	proj := math.NewMat4Orthographic(-radius, radius, -radius, radius, 0.01, radius*4)

	bias := math.NewMat4Identity()
	bias.Data[0], bias.Data[5], bias.Data[10] = 0.5, 0.5, 0.5
	bias.Data[12], bias.Data[13], bias.Data[14] = 0.5, 0.5, 0.5

	return bias.Mul(proj).Mul(view)
}

func lookAt(eye, target, up math.Vec3) math.Mat4 {
	f := target.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)

	m := math.NewMat4Identity()
	m.Data[0], m.Data[4], m.Data[8] = s.X, s.Y, s.Z
	m.Data[1], m.Data[5], m.Data[9] = u.X, u.Y, u.Z
	m.Data[2], m.Data[6], m.Data[10] = -f.X, -f.Y, -f.Z
	m.Data[12] = -s.Dot(eye)
	m.Data[13] = -u.Dot(eye)
	m.Data[14] = f.Dot(eye)
	return m
}

// ShouldDrawInCascade reports whether o should be submitted to a
// dynamic cascade: frustum-culled and not pathologically small relative
// to the slice width, per spec.md §4.8 "Objects whose world-AABB span is
// less than ~0.2% of slice width are skipped."
func ShouldDrawInCascade(o *metadata.Object, cascade DynamicCascade) bool {
	if !cascade.Frustum.IntersectsAABB(o.WorldAABB) {
		return false
	}
	sliceWidth := cascade.Far - cascade.Near
	if sliceWidth <= 0 {
		return true
	}
	return o.WorldAABB.Diagonal()/sliceWidth >= 0.002
}

// AdvanceStatic runs one frame of spec.md §4.8's "Static cascades"
// staggered rebuild schedule: cascade_i = (frame%12)/4, object_subset =
// frame%4. Returns the cascade index and object subset to render this
// frame, plus whether this is a subset==0 "start of rebuild" frame.
func (sc *StaticCascadeStack) AdvanceStatic(cameraPos math.Vec3) (cascadeIdx int, objectSubset int, startOfRebuild bool) {
	period := sc.config.StaticPeriod
	if period <= 0 {
		period = 12
	}
	slot := int(sc.frame % uint64(period))
	cascadeIdx = slot / 4
	objectSubset = slot % 4
	startOfRebuild = objectSubset == 0

	if startOfRebuild && cascadeIdx < len(sc.centerB) {
		if sc.currentIsA {
			sc.centerB[cascadeIdx] = quantizeTo10Unit(cameraPos)
		} else {
			sc.centerA[cascadeIdx] = quantizeTo10Unit(cameraPos)
		}
	}

	sc.frame++
	if sc.frame%uint64(period) == 0 {
		// After `period` frames both stacks plus all cascades are
		// complete; swap so shaders now sample the freshly rebuilt one.
		sc.currentIsA = !sc.currentIsA
	}
	return
}

// ShouldDrawInStaticSubset implements "Objects whose random_num & 3 ==
// subset are drawn this frame into their cascade."
func ShouldDrawInStaticSubset(o *metadata.Object, subset int) bool {
	return int(o.RandomNum&3) == subset
}

// CurrentStaticCenter returns the volume center of the "current" (stable,
// sampled-from) stack for cascadeIdx, per the invariant that in-progress
// "other" updates never corrupt visible shadows.
func (sc *StaticCascadeStack) CurrentStaticCenter(cascadeIdx int) math.Vec3 {
	if cascadeIdx < 0 || cascadeIdx >= len(sc.centerA) {
		return math.NewVec3Zero()
	}
	if sc.currentIsA {
		return sc.centerA[cascadeIdx]
	}
	return sc.centerB[cascadeIdx]
}
