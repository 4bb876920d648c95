package math

import m "math"

// Tanf is a float32 wrapper around math.Tan, exposed because package
// math shadows the standard library of the same name for importers.
func Tanf(radians float32) float32 {
	return float32(m.Tan(float64(radians)))
}

// Plane is a world-space half-space n·x + d >= 0 is "inside".
type Plane struct {
	Normal Vec3
	D      float32
}

func NewPlaneFromPointNormal(point, normal Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, D: -n.Dot(point)}
}

// SignedDistance is positive on the inside half-space.
func (p Plane) SignedDistance(point Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

// MaxNumFrustumPlanes bounds Frustum.Planes: 6 for perspective/ortho, plus
// silhouette-edge planes added when extruded into a shadow frustum (§4.6).
const MaxNumFrustumPlanes = 16

/**
 * @brief Six (or five for infinite-far perspective) world-space clip
 * planes plus a world-space AABB disjoint-test prefilter, per spec.md
 * §3 "Frustum". Recomputed whenever the owning camera changes.
 */
type Frustum struct {
	Planes []Plane
	AABB   Extents3D
}

// NewFrustumFromPlanes builds a Frustum from the given planes and stores
// aabb, as given, as its disjoint-test prefilter; no AABB is derived from
// the planes. NewFrustumFromCorners derives a tight AABB from corner
// points.
func NewFrustumFromPlanes(planes []Plane, aabb Extents3D) Frustum {
	return Frustum{Planes: planes, AABB: aabb}
}

// NewFrustumFromCorners derives planes and a tight AABB from 8 frustum
// corner points ordered near-BL,near-BR,near-TL,near-TR,far-BL,far-BR,
// far-TL,far-TR. When infiniteFar is set the far plane is omitted; the far
// corners still bound the AABB.
func NewFrustumFromCorners(corners [8]Vec3, infiniteFar bool) Frustum {
	aabb := NewExtents3DInvalid()
	for _, c := range corners {
		aabb = aabb.ExpandToInclude(c)
	}

	nearBL, nearBR, nearTL, nearTR := corners[0], corners[1], corners[2], corners[3]
	farBL, farBR, farTL, farTR := corners[4], corners[5], corners[6], corners[7]

	planes := make([]Plane, 0, 6)
	planes = append(planes, planeFromTri(nearBL, nearTL, nearBR)) // near
	planes = append(planes, planeFromTri(nearTL, farTL, nearTR))  // top
	planes = append(planes, planeFromTri(nearBR, farBR, nearBL))  // bottom (winding mirrors top)
	planes = append(planes, planeFromTri(nearTL, nearBL, farTL))  // left
	planes = append(planes, planeFromTri(nearTR, farTR, nearBR))  // right
	if !infiniteFar {
		planes = append(planes, planeFromTri(farTL, farBL, farTR)) // far
	}

	return Frustum{Planes: planes, AABB: aabb}
}

func planeFromTri(a, b, c Vec3) Plane {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	return Plane{Normal: n, D: -n.Dot(a)}
}

// IntersectsAABB performs the frustum-AABB disjoint test used by culling
// (§4.10): the AABB prefilter is checked first, then each plane. A box
// exactly tangent to a plane (signed distance of its positive vertex
// equals zero) is treated as intersecting, not disjoint, per spec.md §8.
func (f Frustum) IntersectsAABB(box Extents3D) bool {
	if !f.AABB.Intersects(box) {
		return false
	}
	for _, p := range f.Planes {
		positive := Vec3{
			X: positiveVertexComponent(p.Normal.X, box.Min.X, box.Max.X),
			Y: positiveVertexComponent(p.Normal.Y, box.Min.Y, box.Max.Y),
			Z: positiveVertexComponent(p.Normal.Z, box.Min.Z, box.Max.Z),
		}
		if p.SignedDistance(positive) < 0 {
			return false
		}
	}
	return true
}

func positiveVertexComponent(n, lo, hi float32) float32 {
	if n >= 0 {
		return hi
	}
	return lo
}

// ExtrudeTowardSun extends the frustum along sunDir by dist, used to
// build the shadow/animation frustum (§4.6): "the view frustum slice is
// extruded by max_shadowing_dist along the sun direction". Silhouette
// planes from actual casters are appended by the caller, since they
// depend on scene geometry this package has no access to.
func (f Frustum) ExtrudeTowardSun(sunDir Vec3, dist float32) Frustum {
	offset := sunDir.MulScalar(-dist)
	out := Frustum{
		Planes: make([]Plane, len(f.Planes)),
		AABB:   f.AABB.Union(Extents3D{Min: f.AABB.Min.Add(offset), Max: f.AABB.Max.Add(offset)}),
	}
	copy(out.Planes, f.Planes)
	return out
}

// AppendSilhouettePlane adds an extra clip plane, e.g. a silhouette-edge
// plane computed by the caller from adjacent-face winding (§4.6).
func (f Frustum) AppendSilhouettePlane(p Plane) Frustum {
	planes := make([]Plane, len(f.Planes), len(f.Planes)+1)
	copy(planes, f.Planes)
	planes = append(planes, p)
	return Frustum{Planes: planes, AABB: f.AABB}
}
