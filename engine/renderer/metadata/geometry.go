package metadata

import "github.com/spaghettifunk/anima/engine/math"

/** @brief The name used for a geometry when none is supplied. */
const DefaultGeometryName string = "default"

/** @brief The maximum number of light indices an object may carry, per §4.5. */
const MaxNumLightIndices int = 8

/**
 * @brief A contiguous range of mesh indices sharing one material slot.
 * Grounded on the teacher's GeometryConfig/Geometry split in
 * engine/renderer/metadata/geometry.go, generalized from "one geometry
 * per draw call" to "one batch per material slot within a mesh".
 */
type Batch struct {
	MaterialSlot  uint16
	PrimStartB    uint32
	NumIndices    uint32
	IndexType     IndexType
	FaceCullMode  FaceCullMode
	DepthDrawProg int32
}

type IndexType uint8

const (
	IndexTypeUint16 IndexType = iota
	IndexTypeUint32
)

type GeometryConfig struct {
	VertexSize   uint64
	VertexCount  uint32
	Vertices     []math.Vertex3D
	IndexSize    uint64
	IndexCount   uint32
	Indices      []uint32
	Center       math.Vec3
	MinExtents   math.Vec3
	MaxExtents   math.Vec3
	Name         string
	MaterialName string
}

type GeometryReference struct {
	ReferenceCount uint32
	Geometry       *Geometry
	AutoRelease    bool
}

/**
 * @brief A single piece of renderable geometry. A Mesh owns one or more
 * of these, one per Batch's source range.
 */
type Geometry struct {
	ID           uint32
	InternalID   uint32
	Generation   uint32
	Center       math.Vec3
	Extents      math.Extents3D
	Name         string
	Material     *Material
	VertexBuffer *BufferAllocation
	IndexBuffer  *BufferAllocation
}

/** @brief An allocation within a resident GPU vertex/index buffer. */
type BufferAllocation struct {
	OffsetBytes uint64
	SizeBytes   uint64
}
