package metadata

import (
	"github.com/spaghettifunk/anima/engine/math"
)

/** @brief Per-object behavior flags, per spec.md §3. */
type ObjectFlags uint8

const (
	ObjectFlagAlwaysVisible ObjectFlags = 1 << iota
	ObjectFlagDrawToMask
	ObjectFlagIsImposter
)

/**
 * @brief The bitfield stored per batch: program index (low bits),
 * face-culling bits, material behavior bits, and the program-built bit
 * (spec.md §3 invariants, §9 "program-built bit").
 */
type ProgramIndexAndFlags uint32

const (
	pifProgramIndexBits = 20
	pifProgramIndexMask = (1 << pifProgramIndexBits) - 1

	PIFFaceCullFront    ProgramIndexAndFlags = 1 << 20
	PIFFaceCullBack     ProgramIndexAndFlags = 1 << 21
	PIFTransparent      ProgramIndexAndFlags = 1 << 22
	PIFWater            ProgramIndexAndFlags = 1 << 23
	PIFDecal            ProgramIndexAndFlags = 1 << 24
	PIFAlphaBlend       ProgramIndexAndFlags = 1 << 25
	PIFProgramBuilt     ProgramIndexAndFlags = 1 << 26
)

func NewProgramIndexAndFlags(programIndex int32, flags ProgramIndexAndFlags) ProgramIndexAndFlags {
	return ProgramIndexAndFlags(uint32(programIndex)&pifProgramIndexMask) | (flags &^ pifProgramIndexMask)
}

func (p ProgramIndexAndFlags) ProgramIndex() int32 { return int32(uint32(p) & pifProgramIndexMask) }
func (p ProgramIndexAndFlags) Has(f ProgramIndexAndFlags) bool {
	return p&f != 0
}
func (p ProgramIndexAndFlags) WithBuilt(built bool) ProgramIndexAndFlags {
	if built {
		return p | PIFProgramBuilt
	}
	return p &^ PIFProgramBuilt
}

/**
 * @brief A denormalized, precomputed summary of everything the
 * sort-and-draw inner loop needs about one batch (spec.md §9 "Hot data
 * layout"), rebuilt by SceneSystem.RebuildDerivedState whenever a material or mesh
 * changes.
 */
type BatchDrawInfo struct {
	ProgramIndexAndFlags ProgramIndexAndFlags
	VAOAndVBOKey         uint64
	MaterialIndex        uint32
	PrimStartOffsetB     uint32
	NumIndices           uint32
	IndexType            IndexType
}

// SortKey packs (program_index, face_cull_bits, vao_and_vbo_key,
// index_type_bits) into a 32-bit key in decreasing significance, per
// spec.md §4.10, so a radix sort on this value minimizes state changes.
func (b BatchDrawInfo) SortKey() uint32 {
	programIdx := uint32(b.ProgramIndexAndFlags.ProgramIndex()) & 0x3FF // 10 bits
	cull := uint32(0)
	if b.ProgramIndexAndFlags.Has(PIFFaceCullFront) {
		cull = 1
	} else if b.ProgramIndexAndFlags.Has(PIFFaceCullBack) {
		cull = 2
	}
	vaoKey := uint32(b.VAOAndVBOKey) & 0xFFFF // 16 bits, low bits of the VAO/VBO identity
	idxType := uint32(0)
	if b.IndexType == IndexTypeUint32 {
		idxType = 1
	}
	return (programIdx << 19) | (cull << 17) | (vaoKey << 1) | idxType
}

/**
 * @brief A renderable world entity (spec.md §3 "Object").
 */
type Object struct {
	ID uint32

	WorldTransform  math.Mat4
	NormalMatrix    math.Mat4
	DeterminantSign float32

	LocalAABB math.Extents3D
	WorldAABB math.Extents3D

	Mesh      *Mesh
	Materials []*Material

	InstanceTransforms []math.Mat4

	JointMatrices          []math.Mat4
	JointMatricesBaseIndex int32
	JointCount             int32

	Flags ObjectFlags

	PerObVertIndex uint32
	MaterialIndex  []uint32

	DepthDrawBatches []BatchDrawInfo
	DrawBatches      []BatchDrawInfo

	LightIndices [MaxNumLightIndices]int32

	// Animation state, per spec.md §4.4.
	CurrentAnimation  string
	NextAnimation     string
	TransitionStart   float64
	TransitionEnd     float64
	ProceduralRotation *math.Quaternion

	RandomNum uint32
}

func (o *Object) HasFlag(f ObjectFlags) bool { return o.Flags&f != 0 }

func (o *Object) IsAnimated() bool { return len(o.JointMatrices) > 0 }

/**
 * @brief Per-object, per-material, per-joint-block GPU-resident table
 * row (spec.md §3 "per_object_vert_data").
 */
type PerObjectVertData struct {
	ModelMatrix  math.Mat4
	NormalMatrix math.Mat4
	LightIndices [MaxNumLightIndices]int32
	UVScale      math.Vec2
	DequantScale math.Vec3
	DequantTrans math.Vec3
	DepthBias    float32
}

/** @brief One indirection row for MDI, per spec.md §3/§9. */
type ObAndMatIndices struct {
	PerObIndex    uint32
	JointBaseIndex int32
	MaterialIndex uint32
}
