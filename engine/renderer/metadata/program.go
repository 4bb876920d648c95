package metadata

import "fmt"

/**
 * @brief The boolean feature bits that select a shader program variant.
 * Ported from original_source/opengl/OpenGLProgram.h's ProgramKeyArgs;
 * field names and the bit layout in rebuildKeyVal are kept faithful to
 * that source so the packed key matches the uniform-selection logic it
 * was distilled from.
 */
type ProgramKeyArgs struct {
	AlphaTest              bool
	VertColours            bool
	InstanceMatrices       bool
	Lightmapping           bool
	GenPlanarUVs           bool
	DrawPlanarUVGrid       bool
	ConvertAlbedoFromSRGB  bool
	Skinning               bool
	Imposter               bool
	Imposterable           bool
	UseWindVertShader      bool
	DoubleSided            bool
	MaterialiseEffect      bool
	Geomorphing            bool
	Terrain                bool
	Decal                  bool
	ParticipatingMedia     bool
	VertTangents           bool
}

/**
 * @brief Identifies one compiled program variant: a named shader family
 * plus its feature mask, per spec.md §4.1.
 */
type ProgramKey struct {
	ProgramName string
	ProgramKeyArgs

	keyVal uint32
}

func NewProgramKey(name string, args ProgramKeyArgs) ProgramKey {
	k := ProgramKey{ProgramName: name, ProgramKeyArgs: args}
	k.RebuildKeyVal()
	return k
}

// RebuildKeyVal packs the boolean flags into a dense bitfield, in the
// same bit order as glare-core's OpenGLProgram.h ProgramKey::rebuildKeyVal.
func (k *ProgramKey) RebuildKeyVal() {
	var v uint32
	if k.AlphaTest {
		v |= 1
	}
	if k.VertColours {
		v |= 2
	}
	if k.InstanceMatrices {
		v |= 4
	}
	if k.Lightmapping {
		v |= 8
	}
	if k.GenPlanarUVs {
		v |= 16
	}
	if k.DrawPlanarUVGrid {
		v |= 32
	}
	if k.ConvertAlbedoFromSRGB {
		v |= 64
	}
	if k.Skinning {
		v |= 128
	}
	if k.Imposterable {
		v |= 256
	}
	if k.UseWindVertShader {
		v |= 512
	}
	if k.DoubleSided {
		v |= 1024
	}
	if k.MaterialiseEffect {
		v |= 2048
	}
	if k.Geomorphing {
		v |= 4096
	}
	if k.Terrain {
		v |= 8192
	}
	if k.Imposter {
		v |= 16384
	}
	if k.Decal {
		v |= 32768
	}
	if k.ParticipatingMedia {
		v |= 65536
	}
	if k.VertTangents {
		v |= 131072
	}
	k.keyVal = v
}

func (k ProgramKey) KeyVal() uint32 { return k.keyVal }

// Less orders keys by name first, then by packed feature bits, mirroring
// ProgramKey::operator< in the original source.
func (k ProgramKey) Less(other ProgramKey) bool {
	if k.ProgramName != other.ProgramName {
		return k.ProgramName < other.ProgramName
	}
	return k.keyVal < other.keyVal
}

// DepthKey normalizes bits that have no effect on a depth-only draw
// (lightmapping, vertex colours, planar UV grid), per getDepthDrawProgram.
func (k ProgramKey) DepthKey() ProgramKey {
	dk := k
	dk.Lightmapping = false
	dk.VertColours = false
	dk.DrawPlanarUVGrid = false
	dk.RebuildKeyVal()
	return dk
}

/**
 * @brief Fixed texture-unit sampler uniform locations, per spec.md §6 and
 * faithfully matching original_source/opengl/OpenGLProgram.h's
 * UniformLocations field names.
 */
type UniformLocations struct {
	DynamicDepthTexLocation    int32
	StaticDepthTexLocation     int32
	CosineEnvTexLocation       int32
	SpecularEnvTexLocation     int32
	BlueNoiseTexLocation       int32
	FBMTexLocation             int32
	DiffuseTexLocation         int32
	LightmapTexLocation        int32
	BackfaceAlbedoTexLocation  int32
	TransmissionTexLocation    int32
	MetallicRoughnessTexLocation int32
	EmissionTexLocation        int32
	NormalMapLocation          int32
	MainColourTextureLocation  int32
	MainNormalTextureLocation  int32
	MainDepthTextureLocation   int32
	CirrusTexLocation          int32
	CausticTexALocation        int32
	CausticTexBLocation        int32
	Detail0TexLocation         int32
	Detail1TexLocation         int32
	Detail2TexLocation         int32
	Detail3TexLocation         int32
	DetailHeightmap0Location   int32
	AuroraTexLocation          int32
	SSAOTexLocation            int32
	SSAOSpecularTexLocation    int32
	PrepassColourTexLocation   int32
	PrepassNormalTexLocation   int32
	PrepassDepthTexLocation    int32
	ShadowTextureMatrixLocation int32
	NumBlobPositionsLocation   int32
	BlobPositionsLocation      int32
	WaterColourTextureLocation int32
	SnowIceNormalMapLocation   int32
}

/** @brief The single UserUniformInfo entry for a custom material uniform. */
type UserUniformInfo struct {
	Location    int32
	Index       int32
	UniformType UserUniformType
}

type ProgramState uint8

const (
	ProgramStateBuilding ProgramState = iota
	ProgramStateBuiltOK
	ProgramStateFailedFallback
)

/**
 * @brief One compiled+linked shader program variant and its post-link
 * binding metadata (spec.md §4.1 "Post-link binding").
 */
type Program struct {
	Index int32
	Key   ProgramKey

	State ProgramState

	ModelMatrixLoc  int32
	ViewMatrixLoc   int32
	ProjMatrixLoc   int32
	NormalMatrixLoc int32
	JointMatrixLoc  int32
	TimeLoc         int32
	ColourLoc       int32

	Uniforms UniformLocations

	UserUniformInfos []UserUniformInfo

	UsesPhongUniforms       bool
	IsDepthDraw             bool
	IsDepthDrawWithAlphaTest bool
	IsOutline               bool

	InternalData interface{}
}

func (p *Program) IsBuilt() bool { return p.State == ProgramStateBuiltOK }

// ---- Shader stage / attribute / uniform configuration, shared with the
// .shadercfg TOML loader in engine/assets/loaders/shader.go. ----

type ShaderStage int

const (
	ShaderStageVertex   ShaderStage = 0x00000001
	ShaderStageGeometry ShaderStage = 0x00000002
	ShaderStageFragment ShaderStage = 0x00000004
	ShaderStageCompute  ShaderStage = 0x00000008
)

func ShaderStageFromString(s string) (ShaderStage, error) {
	switch s {
	case "vertex", "vert":
		return ShaderStageVertex, nil
	case "geometry", "geom":
		return ShaderStageGeometry, nil
	case "fragment", "frag":
		return ShaderStageFragment, nil
	case "compute":
		return ShaderStageCompute, nil
	}
	return 0, fmt.Errorf("string '%s' is not a valid ShaderStage", s)
}

type ShaderAttributeType uint

const (
	ShaderAttribTypeFloat32 ShaderAttributeType = iota
	ShaderAttribTypeFloat32_2
	ShaderAttribTypeFloat32_3
	ShaderAttribTypeFloat32_4
	ShaderAttribTypeMatrix4
	ShaderAttribTypeInt8
	ShaderAttribTypeUint8
	ShaderAttribTypeInt16
	ShaderAttribTypeUint16
	ShaderAttribTypeInt32
	ShaderAttribTypeUint32
)

// ShaderAttributeTypeFromString maps a .shadercfg attribute type string to
// its enum value and byte size. Earlier revisions of this lookup matched
// every case against an empty string; this one matches the actual name.
func ShaderAttributeTypeFromString(s string) (ShaderAttributeType, uint8, error) {
	switch s {
	case "f32":
		return ShaderAttribTypeFloat32, 4, nil
	case "vec2":
		return ShaderAttribTypeFloat32_2, 8, nil
	case "vec3":
		return ShaderAttribTypeFloat32_3, 12, nil
	case "vec4":
		return ShaderAttribTypeFloat32_4, 16, nil
	case "mat4":
		return ShaderAttribTypeMatrix4, 64, nil
	case "i8":
		return ShaderAttribTypeInt8, 1, nil
	case "u8":
		return ShaderAttribTypeUint8, 1, nil
	case "i16":
		return ShaderAttribTypeInt16, 2, nil
	case "u16":
		return ShaderAttribTypeUint16, 2, nil
	case "i32":
		return ShaderAttribTypeInt32, 4, nil
	case "u32":
		return ShaderAttribTypeUint32, 4, nil
	}
	return 0, 0, fmt.Errorf("string '%s' is not a valid ShaderAttributeType", s)
}

type ShaderUniformType uint

const (
	ShaderUniformTypeFloat32 ShaderUniformType = iota
	ShaderUniformTypeFloat32_2
	ShaderUniformTypeFloat32_3
	ShaderUniformTypeFloat32_4
	ShaderUniformTypeInt8
	ShaderUniformTypeUint8
	ShaderUniformTypeInt16
	ShaderUniformTypeUint16
	ShaderUniformTypeInt32
	ShaderUniformTypeUint32
	ShaderUniformTypeMatrix4
	ShaderUniformTypeSampler
	ShaderUniformTypeCustom ShaderUniformType = 255
)

func ShaderUniformTypeFromString(s string) (ShaderUniformType, uint8, error) {
	switch s {
	case "f32":
		return ShaderUniformTypeFloat32, 4, nil
	case "vec2":
		return ShaderUniformTypeFloat32_2, 8, nil
	case "vec3":
		return ShaderUniformTypeFloat32_3, 12, nil
	case "vec4":
		return ShaderUniformTypeFloat32_4, 16, nil
	case "i8":
		return ShaderUniformTypeInt8, 1, nil
	case "u8":
		return ShaderUniformTypeUint8, 1, nil
	case "i16":
		return ShaderUniformTypeInt16, 2, nil
	case "u16":
		return ShaderUniformTypeUint16, 2, nil
	case "i32":
		return ShaderUniformTypeInt32, 4, nil
	case "u32":
		return ShaderUniformTypeUint32, 4, nil
	case "mat4":
		return ShaderUniformTypeMatrix4, 64, nil
	case "sampler":
		return ShaderUniformTypeSampler, 0, nil
	case "custom":
		return ShaderUniformTypeCustom, 0, nil
	}
	return 0, 0, fmt.Errorf("string '%s' is not a valid ShaderUniformType", s)
}

func CullModeFromString(s string) (FaceCullMode, error) {
	switch s {
	case "none":
		return FaceCullModeNone, nil
	case "front":
		return FaceCullModeFront, nil
	case "back", "":
		return FaceCullModeBack, nil
	case "front_and_back":
		return FaceCullModeFrontAndBack, nil
	}
	return 0, fmt.Errorf("string '%s' is not a valid FaceCullMode", s)
}

type ShaderScope int

const (
	ShaderScopeGlobal ShaderScope = iota
	ShaderScopeInstance
	ShaderScopeLocal
)

type ShaderAttributeConfig struct {
	Name                string
	Size                uint8
	ShaderAttributeType ShaderAttributeType
}

type ShaderUniformConfig struct {
	Name              string
	Size              uint8
	Location          uint32
	ShaderUniformType ShaderUniformType
	Scope             ShaderScope
}

/**
 * @brief Configuration for a named shader family, typically loaded from
 * a .shadercfg resource file (engine/assets/loaders/shader.go). The
 * program variant cache (engine/systems/programs.go) compiles one
 * Program per distinct ProgramKey built against this config.
 */
type ShaderConfig struct {
	Name           string
	CullMode       FaceCullMode
	Attributes     []*ShaderAttributeConfig
	Uniforms       []*ShaderUniformConfig
	RenderpassName string
	Stages         []ShaderStage
	StageNames     []string
	StageFilenames []string
}
