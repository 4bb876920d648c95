package math

// NewExtents3DInvalid returns an extents value that Union-absorbs any
// point or extents it is merged with, used to accumulate a world AABB
// from a local one plus a transform.
func NewExtents3DInvalid() Extents3D {
	return Extents3D{
		Min: Vec3{X: math_MaxFloat32(), Y: math_MaxFloat32(), Z: math_MaxFloat32()},
		Max: Vec3{X: -math_MaxFloat32(), Y: -math_MaxFloat32(), Z: -math_MaxFloat32()},
	}
}

func math_MaxFloat32() float32 { return 3.402823466e+38 }

// Union returns the smallest extents enclosing both e and o.
func (e Extents3D) Union(o Extents3D) Extents3D {
	return Extents3D{
		Min: Vec3{X: minf(e.Min.X, o.Min.X), Y: minf(e.Min.Y, o.Min.Y), Z: minf(e.Min.Z, o.Min.Z)},
		Max: Vec3{X: maxf(e.Max.X, o.Max.X), Y: maxf(e.Max.Y, o.Max.Y), Z: maxf(e.Max.Z, o.Max.Z)},
	}
}

// ExpandToInclude grows e (if needed) so it contains p.
func (e Extents3D) ExpandToInclude(p Vec3) Extents3D {
	return Extents3D{
		Min: Vec3{X: minf(e.Min.X, p.X), Y: minf(e.Min.Y, p.Y), Z: minf(e.Min.Z, p.Z)},
		Max: Vec3{X: maxf(e.Max.X, p.X), Y: maxf(e.Max.Y, p.Y), Z: maxf(e.Max.Z, p.Z)},
	}
}

func (e Extents3D) Centroid() Vec3 {
	return Vec3{
		X: (e.Min.X + e.Max.X) * 0.5,
		Y: (e.Min.Y + e.Max.Y) * 0.5,
		Z: (e.Min.Z + e.Max.Z) * 0.5,
	}
}

func (e Extents3D) HalfExtents() Vec3 {
	return Vec3{
		X: (e.Max.X - e.Min.X) * 0.5,
		Y: (e.Max.Y - e.Min.Y) * 0.5,
		Z: (e.Max.Z - e.Min.Z) * 0.5,
	}
}

func (e Extents3D) Diagonal() float32 {
	d := e.Max.Sub(e.Min)
	return d.Length()
}

// Intersects reports whether the two AABBs overlap or touch. Tangency
// (shared boundary) counts as intersecting, per spec.md §8's
// "exactly tangent to a frustum plane is included" boundary rule,
// applied consistently to AABB-vs-AABB tests.
func (e Extents3D) Intersects(o Extents3D) bool {
	if e.Max.X < o.Min.X || e.Min.X > o.Max.X {
		return false
	}
	if e.Max.Y < o.Min.Y || e.Min.Y > o.Max.Y {
		return false
	}
	if e.Max.Z < o.Min.Z || e.Min.Z > o.Max.Z {
		return false
	}
	return true
}

// TransformAABB computes the world-space AABB of a local-space AABB
// under an affine transform, using the standard Arvo/Graphics-Gems
// running-sum method (O(1) instead of transforming all 8 corners).
// m.Data is laid out column-major, matching NewMat4Translation/Mul in
// functions.go, so column 3 (indices 12-14) is the translation.
func TransformAABB(local Extents3D, m Mat4) Extents3D {
	d := m.Data
	minV := Vec3{X: d[12], Y: d[13], Z: d[14]}
	maxV := minV

	loL := [3]float32{local.Min.X, local.Min.Y, local.Min.Z}
	hiL := [3]float32{local.Max.X, local.Max.Y, local.Max.Z}

	var outMin, outMax [3]float32
	outMin[0], outMax[0] = minV.X, maxV.X
	outMin[1], outMax[1] = minV.Y, maxV.Y
	outMin[2], outMax[2] = minV.Z, maxV.Z

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			a := d[col*4+row]
			lo, hi := termRange(a, loL[col], hiL[col])
			outMin[row] += lo
			outMax[row] += hi
		}
	}
	return Extents3D{
		Min: Vec3{X: outMin[0], Y: outMin[1], Z: outMin[2]},
		Max: Vec3{X: outMax[0], Y: outMax[1], Z: outMax[2]},
	}
}

func termRange(a, lo, hi float32) (float32, float32) {
	v0 := a * lo
	v1 := a * hi
	if v0 < v1 {
		return v0, v1
	}
	return v1, v0
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
