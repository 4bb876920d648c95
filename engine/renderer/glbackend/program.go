package glbackend

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// ShaderSourceProvider resolves a program family name to its GLSL
// sources, decoupling glbackend from the asset-loading system
// (engine/assets/loaders/shader.go owns .shadercfg parsing; this is the
// next stage down, per spec.md §2 dependency item 1).
type ShaderSourceProvider interface {
	VertexSource(programFamily string) (string, error)
	FragmentSource(programFamily string) (string, error)
	GeometrySource(programFamily string) (string, bool, error)
}

// ProgramCompiler implements engine/systems.ProgramCompiler over a real
// OpenGL context, compiling a ProgramKey's feature flags into #define
// preprocessor directives the same way original_source/opengl's program
// cache selects code paths per variant.
type ProgramCompiler struct {
	ctx     *Context
	sources ShaderSourceProvider
}

func NewProgramCompiler(ctx *Context, sources ShaderSourceProvider) *ProgramCompiler {
	return &ProgramCompiler{ctx: ctx, sources: sources}
}

func (pc *ProgramCompiler) Compile(key metadata.ProgramKey) (*metadata.Program, error) {
	defines := keyDefines(key)

	vsSrc, err := pc.sources.VertexSource(key.ProgramName)
	if err != nil {
		return nil, fmt.Errorf("loading vertex source for '%s': %w", key.ProgramName, err)
	}
	fsSrc, err := pc.sources.FragmentSource(key.ProgramName)
	if err != nil {
		return nil, fmt.Errorf("loading fragment source for '%s': %w", key.ProgramName, err)
	}

	vs, err := compileStage(gl.VERTEX_SHADER, injectDefines(vsSrc, defines))
	if err != nil {
		return nil, fmt.Errorf("vertex shader '%s': %w", key.ProgramName, err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileStage(gl.FRAGMENT_SHADER, injectDefines(fsSrc, defines))
	if err != nil {
		return nil, fmt.Errorf("fragment shader '%s': %w", key.ProgramName, err)
	}
	defer gl.DeleteShader(fs)

	progID := gl.CreateProgram()
	gl.AttachShader(progID, vs)
	gl.AttachShader(progID, fs)

	if gsSrc, ok, gerr := pc.sources.GeometrySource(key.ProgramName); gerr == nil && ok {
		gs, gerr2 := compileStage(gl.GEOMETRY_SHADER, injectDefines(gsSrc, defines))
		if gerr2 != nil {
			return nil, fmt.Errorf("geometry shader '%s': %w", key.ProgramName, gerr2)
		}
		defer gl.DeleteShader(gs)
		gl.AttachShader(progID, gs)
	}

	gl.LinkProgram(progID)
	var status int32
	gl.GetProgramiv(progID, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		logLen := int32(0)
		gl.GetProgramiv(progID, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(progID, logLen, nil, gl.Str(log))
		gl.DeleteProgram(progID)
		return nil, fmt.Errorf("link failure for program '%s': %s", key.ProgramName, log)
	}

	return bindProgram(progID, key), nil
}

func bindProgram(progID uint32, key metadata.ProgramKey) *metadata.Program {
	p := &metadata.Program{Key: key, State: metadata.ProgramStateBuiltOK}

	p.ModelMatrixLoc = uniformLoc(progID, "model_matrix")
	p.ViewMatrixLoc = uniformLoc(progID, "view_matrix")
	p.ProjMatrixLoc = uniformLoc(progID, "proj_matrix")
	p.NormalMatrixLoc = uniformLoc(progID, "normal_matrix")
	p.JointMatrixLoc = uniformLoc(progID, "joint_matrices")
	p.TimeLoc = uniformLoc(progID, "time")
	p.ColourLoc = uniformLoc(progID, "colour")

	p.Uniforms = metadata.UniformLocations{
		DynamicDepthTexLocation:     uniformLoc(progID, "dynamic_depth_tex"),
		StaticDepthTexLocation:      uniformLoc(progID, "static_depth_tex"),
		CosineEnvTexLocation:        uniformLoc(progID, "cosine_env_tex"),
		SpecularEnvTexLocation:      uniformLoc(progID, "specular_env_tex"),
		BlueNoiseTexLocation:        uniformLoc(progID, "blue_noise_tex"),
		FBMTexLocation:              uniformLoc(progID, "fbm_tex"),
		DiffuseTexLocation:          uniformLoc(progID, "diffuse_tex"),
		LightmapTexLocation:         uniformLoc(progID, "lightmap_tex"),
		BackfaceAlbedoTexLocation:   uniformLoc(progID, "backface_albedo_tex"),
		TransmissionTexLocation:     uniformLoc(progID, "transmission_tex"),
		MetallicRoughnessTexLocation: uniformLoc(progID, "metallic_roughness_tex"),
		EmissionTexLocation:         uniformLoc(progID, "emission_tex"),
		NormalMapLocation:           uniformLoc(progID, "normal_map"),
		MainColourTextureLocation:   uniformLoc(progID, "main_colour_tex"),
		MainNormalTextureLocation:   uniformLoc(progID, "main_normal_tex"),
		MainDepthTextureLocation:    uniformLoc(progID, "main_depth_tex"),
		CirrusTexLocation:           uniformLoc(progID, "cirrus_tex"),
		CausticTexALocation:         uniformLoc(progID, "caustic_tex_a"),
		CausticTexBLocation:         uniformLoc(progID, "caustic_tex_b"),
		Detail0TexLocation:          uniformLoc(progID, "detail0_tex"),
		Detail1TexLocation:          uniformLoc(progID, "detail1_tex"),
		Detail2TexLocation:          uniformLoc(progID, "detail2_tex"),
		Detail3TexLocation:          uniformLoc(progID, "detail3_tex"),
		DetailHeightmap0Location:    uniformLoc(progID, "detail_heightmap0"),
		AuroraTexLocation:           uniformLoc(progID, "aurora_tex"),
		SSAOTexLocation:             uniformLoc(progID, "ssao_tex"),
		SSAOSpecularTexLocation:     uniformLoc(progID, "ssao_specular_tex"),
		PrepassColourTexLocation:    uniformLoc(progID, "prepass_colour_tex"),
		PrepassNormalTexLocation:    uniformLoc(progID, "prepass_normal_tex"),
		PrepassDepthTexLocation:     uniformLoc(progID, "prepass_depth_tex"),
		ShadowTextureMatrixLocation: uniformLoc(progID, "shadow_texture_matrix"),
		NumBlobPositionsLocation:    uniformLoc(progID, "num_blob_positions"),
		BlobPositionsLocation:       uniformLoc(progID, "blob_positions"),
		WaterColourTextureLocation:  uniformLoc(progID, "water_colour_tex"),
		SnowIceNormalMapLocation:    uniformLoc(progID, "snow_ice_normal_map"),
	}

	p.UsesPhongUniforms = key.ProgramName == "phong"
	p.IsDepthDraw = key.ProgramName == "depth"
	p.IsDepthDrawWithAlphaTest = p.IsDepthDraw && key.AlphaTest
	p.IsOutline = key.ProgramName == "outline"
	p.InternalData = progID

	bindUniformBlocks(progID)
	return p
}

// uniformLoc returns -1 (the standard "absent" sentinel) rather than an
// error when a program doesn't declare a given uniform; most variants
// only use a handful of the full UniformLocations set.
func uniformLoc(progID uint32, name string) int32 {
	return gl.GetUniformLocation(progID, gl.Str(name+"\x00"))
}

// bindUniformBlocks binds the fixed uniform-block binding points named
// in spec.md §4.1's post-link contract.
func bindUniformBlocks(progID uint32) {
	blocks := []string{
		"PhongUniforms", "SharedVertUniforms", "PerObjectVertUniforms",
		"DepthUniforms", "MaterialCommonUniforms", "LightDataStorage",
		"JointMatrixUniforms", "ObJointAndMatIndices",
	}
	for i, name := range blocks {
		idx := gl.GetUniformBlockIndex(progID, gl.Str(name+"\x00"))
		if idx != gl.INVALID_INDEX {
			gl.UniformBlockBinding(progID, idx, uint32(i))
		}
	}
}

func compileStage(stageType uint32, source string) (uint32, error) {
	shader := gl.CreateShader(stageType)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%s", log)
	}
	return shader, nil
}

func injectDefines(source string, defines []string) string {
	if len(defines) == 0 {
		return source
	}
	var b strings.Builder
	b.WriteString("#version 410\n")
	for _, d := range defines {
		b.WriteString("#define ")
		b.WriteString(d)
		b.WriteString("\n")
	}
	b.WriteString(source)
	return b.String()
}

// keyDefines maps a ProgramKey's feature bits to #define names, the GLSL
// analogue of original_source/opengl's per-variant code generation.
func keyDefines(key metadata.ProgramKey) []string {
	var defines []string
	add := func(flag bool, name string) {
		if flag {
			defines = append(defines, name)
		}
	}
	add(key.AlphaTest, "ALPHA_TEST_ENABLED")
	add(key.VertColours, "VERT_COLOURS_ENABLED")
	add(key.InstanceMatrices, "INSTANCE_MATRICES_ENABLED")
	add(key.Lightmapping, "LIGHTMAPPING_ENABLED")
	add(key.GenPlanarUVs, "GEN_PLANAR_UVS_ENABLED")
	add(key.DrawPlanarUVGrid, "DRAW_PLANAR_UV_GRID_ENABLED")
	add(key.ConvertAlbedoFromSRGB, "CONVERT_ALBEDO_FROM_SRGB_ENABLED")
	add(key.Skinning, "SKINNING_ENABLED")
	add(key.Imposter, "IMPOSTER_ENABLED")
	add(key.Imposterable, "IMPOSTERABLE_ENABLED")
	add(key.UseWindVertShader, "USE_WIND_VERT_SHADER_ENABLED")
	add(key.DoubleSided, "DOUBLE_SIDED_ENABLED")
	add(key.MaterialiseEffect, "MATERIALISE_EFFECT_ENABLED")
	add(key.Geomorphing, "GEOMORPHING_ENABLED")
	add(key.Terrain, "TERRAIN_ENABLED")
	add(key.Decal, "DECAL_ENABLED")
	add(key.ParticipatingMedia, "PARTICIPATING_MEDIA_ENABLED")
	add(key.VertTangents, "VERT_TANGENTS_ENABLED")
	return defines
}
