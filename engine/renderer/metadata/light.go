package metadata

import "github.com/spaghettifunk/anima/engine/math"

/**
 * @brief A directional cone light (spec.md §3 "Light"). Kept in a
 * spatial hash grid (engine/systems/lightgrid.go) keyed by world-space
 * cell, sized to enclose the light's illumination volume.
 */
type Light struct {
	ID uint32

	Position     math.Vec3
	Direction    math.Vec3
	ConeMinCosine float32
	MaxDistance  float32
	Intensity    math.Vec3

	AABB math.Extents3D
}

// Radius approximates the light's illumination volume as a sphere for
// grid-cell span calculations (base disc plus tip, per spec.md §4.5).
func (l *Light) Radius() float32 {
	return l.MaxDistance * 0.5
}

/** @brief One row of the GPU-resident `lights` table (spec.md §3). */
type LightGPUData struct {
	Position      math.Vec3
	Direction     math.Vec3
	ConeMinCosine float32
	Intensity     math.Vec3
}
