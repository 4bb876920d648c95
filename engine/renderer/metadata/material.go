package metadata

import "github.com/spaghettifunk/anima/engine/math"

const MaterialNameMaxLength int = 256

/** @brief The name used for a material when none is supplied. */
const DefaultMaterialName string = "default"

/**
 * @brief On-disk material description (.amt), parsed by
 * engine/assets/loaders/material.go. Kept flat and string-keyed in the
 * teacher's style rather than a richer config tree.
 */
type MaterialConfig struct {
	Name            string
	ShaderName      string
	DiffuseColour   math.Vec4
	Shininess       float32
	DiffuseMapName  string
	SpecularMapName string
	NormalMapName   string
	AutoRelease     bool
}

/** @brief Behavioral flags resolved at material admission, per spec §3/§4.3. */
type MaterialBehaviorFlags uint32

const (
	MaterialFlagTransparent MaterialBehaviorFlags = 1 << iota
	MaterialFlagAlphaBlend
	MaterialFlagDecal
	MaterialFlagWater
	MaterialFlagParticipatingMedia
	MaterialFlagSimpleDoubleSided
	MaterialFlagFancyDoubleSided
	MaterialFlagUseWindVertShader
	MaterialFlagImposter
	MaterialFlagMaterialiseEffect
)

/** @brief Packed feature bits consulted by the program variant cache (§4.1). */
type MaterialUniformFlags uint32

const (
	UniformFlagHasAlbedoTex MaterialUniformFlags = 1 << iota
	UniformFlagHasMetallicRoughnessTex
	UniformFlagHasEmissionTex
	UniformFlagHasNormalTex
	UniformFlagHasTransmissionTex
	UniformFlagHasLightmap
)

/** @brief A single named user-supplied shader uniform (§3 expansion). */
type UserUniformType uint8

const (
	UserUniformVec2 UserUniformType = iota
	UserUniformVec3
	UserUniformInt
	UserUniformFloat
	UserUniformSampler2D
)

type UserUniformValue struct {
	Name  string
	Type  UserUniformType
	Vec2  math.Vec2
	Vec3  math.Vec3
	Int   int32
	Float float32
}

/**
 * @brief Appearance description for a batch of geometry (spec.md §3).
 * Resolved program references are attached on admission or whenever a
 * behavioral flag changes (see engine/systems/programs.go AssignProgram).
 */
type Material struct {
	ID         uint32
	Generation uint32
	InternalID uint32
	Name       string

	DiffuseColour math.Vec4
	DiffuseMap    *TextureMap
	AlbedoMatrix  math.Mat4

	MetallicRoughnessMap *TextureMap
	EmissionMap          *TextureMap
	EmissionScale        float32
	NormalMap            *TextureMap
	TransmissionMap      *TextureMap
	LightMap             *TextureMap

	Shininess float32
	Roughness float32
	Metallic  float32

	UniformFlags  MaterialUniformFlags
	BehaviorFlags MaterialBehaviorFlags

	UserUniforms []UserUniformValue

	MaterialiseLowerZ float32
	MaterialiseUpperZ float32
	MaterialiseStart  float64

	ShaderID      uint32
	DepthProgramID int32

	RenderFrameNumber uint64
}

func (m *Material) HasFlag(f MaterialBehaviorFlags) bool {
	return m.BehaviorFlags&f != 0
}

type MaterialReference struct {
	ReferenceCount uint32
	Handle         uint32
	AutoRelease    bool
}

type MaterialSystemConfig struct {
	MaxMaterialCount uint32
}
