package systems

import (
	"sort"
	"sync"

	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// LightGridCellSide and LightGridBucketCount are spec.md §4.5's
// "uniform-spaced hash grid (cell side ≈ 64 units, ~1024 buckets)".
const (
	LightGridCellSide     = 64.0
	LightGridBucketCount  = 1024
	lightGridMaxCellSpan  = 32 // caps enumeration span for pathological AABBs
)

type cellCoord struct{ X, Y, Z int32 }

func (c cellCoord) hash() uint32 {
	// Standard spatial hash mixing (x*p1 ^ y*p2 ^ z*p3) mod bucket count.
	h := uint32(c.X)*73856093 ^ uint32(c.Y)*19349663 ^ uint32(c.Z)*83492791
	return h % LightGridBucketCount
}

func cellOf(p math.Vec3) cellCoord {
	return cellCoord{
		X: int32(floorDiv(p.X, LightGridCellSide)),
		Y: int32(floorDiv(p.Y, LightGridCellSide)),
		Z: int32(floorDiv(p.Z, LightGridCellSide)),
	}
}

func floorDiv(v, cellSide float32) float32 {
	d := v / cellSide
	if d < 0 {
		return d - 1
	}
	return d
}

// LightGrid is the spatial hash grid of spec.md §4.5, answering "which
// lights touch this object's AABB" in O(cells touched).
type LightGrid struct {
	mu      sync.Mutex
	buckets map[uint32][]uint32 // hash -> light IDs occupying any cell in that bucket
	lights  map[uint32]*metadata.Light
}

func NewLightGrid() *LightGrid {
	return &LightGrid{
		buckets: make(map[uint32][]uint32),
		lights:  make(map[uint32]*metadata.Light),
	}
}

// Insert adds or reindexes a light, sized to enclose its illumination
// volume (base disc plus tip, per spec.md §4.5).
func (g *LightGrid) Insert(l *metadata.Light) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeFromCellsLocked(l.ID)
	g.lights[l.ID] = l
	g.insertIntoCellsLocked(l)
}

func (g *LightGrid) Remove(id uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeFromCellsLocked(id)
	delete(g.lights, id)
}

func (g *LightGrid) forEachCell(box math.Extents3D, fn func(c cellCoord)) {
	minC := cellOf(box.Min)
	maxC := cellOf(box.Max)
	if maxC.X-minC.X > lightGridMaxCellSpan {
		maxC.X = minC.X + lightGridMaxCellSpan
	}
	if maxC.Y-minC.Y > lightGridMaxCellSpan {
		maxC.Y = minC.Y + lightGridMaxCellSpan
	}
	if maxC.Z-minC.Z > lightGridMaxCellSpan {
		maxC.Z = minC.Z + lightGridMaxCellSpan
	}
	for x := minC.X; x <= maxC.X; x++ {
		for y := minC.Y; y <= maxC.Y; y++ {
			for z := minC.Z; z <= maxC.Z; z++ {
				fn(cellCoord{x, y, z})
			}
		}
	}
}

func (g *LightGrid) insertIntoCellsLocked(l *metadata.Light) {
	g.forEachCell(l.AABB, func(c cellCoord) {
		h := c.hash()
		g.buckets[h] = appendUnique(g.buckets[h], l.ID)
	})
}

func (g *LightGrid) removeFromCellsLocked(id uint32) {
	old, ok := g.lights[id]
	if !ok {
		return
	}
	g.forEachCell(old.AABB, func(c cellCoord) {
		h := c.hash()
		g.buckets[h] = removeValue(g.buckets[h], id)
	})
}

func appendUnique(s []uint32, v uint32) []uint32 {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func removeValue(s []uint32, v uint32) []uint32 {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// AssignLights implements spec.md §4.5 steps 1-4: enumerate cells
// overlapping the AABB, gather lights whose AABB touches it, sort by
// squared distance to the centroid, and fill up to MaxNumLightIndices
// slots deduplicated, with the remainder left at -1.
func (g *LightGrid) AssignLights(box math.Extents3D) [metadata.MaxNumLightIndices]int32 {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out [metadata.MaxNumLightIndices]int32
	for i := range out {
		out[i] = -1
	}

	candidateSet := make(map[uint32]*metadata.Light)
	g.forEachCell(box, func(c cellCoord) {
		for _, id := range g.buckets[c.hash()] {
			if l, ok := g.lights[id]; ok && l.AABB.Intersects(box) {
				candidateSet[id] = l
			}
		}
	})

	if len(candidateSet) == 0 {
		return out
	}

	centroid := box.Centroid()
	type scored struct {
		id   uint32
		dist float32
	}
	scoredList := make([]scored, 0, len(candidateSet))
	for id, l := range candidateSet {
		d := l.Position.Sub(centroid)
		scoredList = append(scoredList, scored{id: id, dist: d.X*d.X + d.Y*d.Y + d.Z*d.Z})
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].dist < scoredList[j].dist })

	n := 0
	for _, s := range scoredList {
		if n >= metadata.MaxNumLightIndices {
			break
		}
		out[n] = int32(s.id)
		n++
	}
	return out
}

// ReindexAffected re-runs step 1-4 for every object whose AABB
// intersects the light's AABB, per spec.md §4.5 "When a light is
// inserted, moved, or removed...". The caller supplies the scan set
// since the grid does not itself own objects.
func (g *LightGrid) ReindexAffected(lightAABB math.Extents3D, objects map[uint32]*metadata.Object, reassign func(o *metadata.Object)) {
	for _, o := range objects {
		if o.WorldAABB.Intersects(lightAABB) {
			reassign(o)
		}
	}
}
