package systems

import (
	"sort"

	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/glbackend"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// GL enum values the post-process targets are created with, kept local
// the way passes_ssao.go's glRED/glR8/glUnsignedByte are.
const (
	glRGBA           = 0x1908
	glRGBA8          = 0x8058
	glColorBufferBit = 0x4000
)

// WaterDecalConfig groups the two blit-then-draw subpasses of spec.md
// §4.11/§4.7 step 12, both of which read a copy of the opaque result.
type WaterDecalConfig struct {
	WaterLevel float32
}

// SelectWaterObjects returns the scene's water set, frustum-culled, for
// spec.md §4.11 "Water Pass". Face culling for each object must respect
// its transform determinant sign ("back-face and front-face culling both
// respect the object's transform determinant sign").
func SelectWaterObjects(scene *metadata.Scene, frustum math.Frustum) []*metadata.Object {
	out := make([]*metadata.Object, 0, len(scene.Water))
	for _, o := range scene.Water {
		if frustum.IntersectsAABB(o.WorldAABB) {
			out = append(out, o)
		}
	}
	return out
}

// EffectiveCullMode flips front/back when the world transform's
// determinant is negative (mirrored geometry), per spec.md §4.11 and the
// admission-time re-run rule in §4.3 ("transform sign flips the
// determinant").
func EffectiveCullMode(o *metadata.Object, mode metadata.FaceCullMode) metadata.FaceCullMode {
	if o.DeterminantSign >= 0 {
		return mode
	}
	switch mode {
	case metadata.FaceCullModeFront:
		return metadata.FaceCullModeBack
	case metadata.FaceCullModeBack:
		return metadata.FaceCullModeFront
	default:
		return mode
	}
}

func SelectDecalObjects(scene *metadata.Scene, frustum math.Frustum) []*metadata.Object {
	out := make([]*metadata.Object, 0, len(scene.Decal))
	for _, o := range scene.Decal {
		if frustum.IntersectsAABB(o.WorldAABB) {
			out = append(out, o)
		}
	}
	return out
}

// SelectAlphaBlended gathers the participating-media/text alpha-blend
// set and hands back the §4.10 back-to-front sort.
func SelectAlphaBlended(scene *metadata.Scene, frustum math.Frustum, cameraPos math.Vec3) []drawItem {
	items := make([]drawItem, 0)
	for _, o := range scene.AlphaBlended {
		if !frustum.IntersectsAABB(o.WorldAABB) {
			continue
		}
		for _, b := range o.DrawBatches {
			items = append(items, drawItem{batch: b, obj: o})
		}
	}
	return SortAlphaBlended(items, cameraPos)
}

// SelectTransparent returns the scene's transparent objects that pass
// the frustum test, for the transparent pass.
func SelectTransparent(scene *metadata.Scene, frustum math.Frustum) []*metadata.Object {
	out := make([]*metadata.Object, 0, len(scene.Transparent))
	for _, o := range scene.Transparent {
		if frustum.IntersectsAABB(o.WorldAABB) {
			out = append(out, o)
		}
	}
	return out
}

func SelectAlwaysVisible(scene *metadata.Scene) []*metadata.Object {
	out := make([]*metadata.Object, 0, len(scene.AlwaysVisible))
	for _, o := range scene.AlwaysVisible {
		out = append(out, o)
	}
	return out
}

// --- Selection outline, spec.md §4.12 ---

// outlineProgramKey names the flat-color silhouette program the outline
// pass draws selected objects with; the edge itself comes from drawing
// at a fixed depth offset so the silhouette peeks out from behind the
// already-shaded object, the cheapest of the standard stencil/silhouette
// outline techniques and the one that needs no extra render target.
var outlineProgramKey = metadata.NewProgramKey("outline", metadata.ProgramKeyArgs{})

// SelectOutlineObjects resolves which objects participate in the
// selection outline of spec.md §4.12 from the caller-selected object
// IDs.
func SelectOutlineObjects(scene *metadata.Scene, selectedIDs map[uint32]bool) []*metadata.Object {
	out := make([]*metadata.Object, 0, len(selectedIDs))
	for id := range selectedIDs {
		if o, ok := scene.Objects[id]; ok {
			out = append(out, o)
		} else if o, ok := scene.AlwaysVisible[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// DrawOutline renders the silhouette program over each selected object's
// depth-draw batches, depth-tested against but not writing the already
// drawn scene so the outline program's own edge-thickening shows through
// on the object's rim.
func DrawOutline(ctx *glbackend.Context, programs *ProgramSystem, objects []*metadata.Object) {
	if len(objects) == 0 {
		return
	}
	prog := programs.GetProgram(outlineProgramKey)
	if !prog.IsBuilt() {
		return
	}
	ctx.SetDepthTest(true, false)
	ctx.UseProgram(uint32(prog.Index))
	for _, obj := range objects {
		for _, b := range obj.DepthDrawBatches {
			indexType := uint32(0x1403) // GL_UNSIGNED_SHORT
			if b.IndexType == metadata.IndexTypeUint32 {
				indexType = 0x1405 // GL_UNSIGNED_INT
			}
			ctx.DrawIndexed(indexType, int32(b.NumIndices), uint64(b.PrimStartOffsetB), 0, 1)
		}
	}
	ctx.SetDepthTest(true, true)
}

// --- Post-process chain, spec.md §4.13 ---

// BloomConfig is the N-step downsample/blur chain.
type BloomConfig struct {
	Enable     bool
	StepCount  int
	Strength   float32
}

// BloomLevelSize computes step i's target size, halving each step from
// the pre-bloom color, per spec.md §4.13 "gather-downsize into a
// half-size target" and "Each intermediate is sized to max(16, ...)".
func BloomLevelSize(baseW, baseH int32, step int) (int32, int32) {
	w, h := baseW, baseH
	for i := 0; i <= step; i++ {
		w = maxInt32(16, w/2)
		h = maxInt32(16, h/2)
	}
	return w, h
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// DOFConfig parameterizes the bokeh blur of spec.md §4.13.
type DOFConfig struct {
	Strength      float32
	FocusDistance float32
}

func (c DOFConfig) Enabled() bool { return c.Strength > 0 }

// FinalImagingParams are the uniforms the single final-imaging fragment
// pass needs: sum all blur levels with bloom_strength, apply exposure
// and saturation, per spec.md §4.13 "Final imaging".
type FinalImagingParams struct {
	BloomStrength float32
	Exposure      float32
	Saturation    float32
}

func NewFinalImagingParams(scene *metadata.Scene) FinalImagingParams {
	return FinalImagingParams{
		BloomStrength: scene.BloomStrength,
		Exposure:      scene.Exposure,
		Saturation:    scene.Saturation,
	}
}

// bloomDownsampleProgramKey, dofProgramKey, and finalImagingProgramKey
// name the three screen-space program families spec.md §4.13's
// post-process chain runs, resolved through the same async Program
// Variant Cache every other pass draws through (see passes_ssao.go's
// DispatchSSAO for the pattern this mirrors).
var (
	bloomDownsampleProgramKey = metadata.NewProgramKey("bloom_downsample", metadata.ProgramKeyArgs{})
	dofProgramKey             = metadata.NewProgramKey("dof", metadata.ProgramKeyArgs{})
	finalImagingProgramKey    = metadata.NewProgramKey("final_imaging", metadata.ProgramKeyArgs{})
)

type bloomLevel struct {
	fb   glbackend.FramebufferHandle
	tex  glbackend.TextureHandle
	w, h int32
}

// PostProcessTargets are the offscreen captures the post-process chain
// reads from and writes into: a full-resolution copy of the shaded
// scene (blitted from the default framebuffer once opaque-through-
// always-visible draws have landed), a DOF blur target the same size,
// and the bloom chain's N halving-size levels, per spec.md §4.13.
type PostProcessTargets struct {
	Width, Height int32

	sceneFB  glbackend.FramebufferHandle
	sceneTex glbackend.TextureHandle

	dofFB  glbackend.FramebufferHandle
	dofTex glbackend.TextureHandle

	bloomLevels []bloomLevel
}

func NewPostProcessTargets(ctx *glbackend.Context, viewportW, viewportH int32, bloom BloomConfig) PostProcessTargets {
	sceneTex := ctx.CreateTexture2D(viewportW, viewportH, glRGBA8, glRGBA, glUnsignedByte, nil)
	sceneFB := ctx.CreateFramebuffer(viewportW, viewportH)
	ctx.AttachColorTexture(sceneFB, 0, sceneTex)

	dofTex := ctx.CreateTexture2D(viewportW, viewportH, glRGBA8, glRGBA, glUnsignedByte, nil)
	dofFB := ctx.CreateFramebuffer(viewportW, viewportH)
	ctx.AttachColorTexture(dofFB, 0, dofTex)

	levels := make([]bloomLevel, 0, bloom.StepCount)
	for i := 0; i < bloom.StepCount; i++ {
		w, h := BloomLevelSize(viewportW, viewportH, i)
		tex := ctx.CreateTexture2D(w, h, glRGBA8, glRGBA, glUnsignedByte, nil)
		fb := ctx.CreateFramebuffer(w, h)
		ctx.AttachColorTexture(fb, 0, tex)
		levels = append(levels, bloomLevel{fb: fb, tex: tex, w: w, h: h})
	}

	return PostProcessTargets{
		Width: viewportW, Height: viewportH,
		sceneFB: sceneFB, sceneTex: sceneTex,
		dofFB: dofFB, dofTex: dofTex,
		bloomLevels: levels,
	}
}

func (t PostProcessTargets) Release(ctx *glbackend.Context) {
	ctx.DeleteFramebuffer(t.sceneFB)
	ctx.DeleteTexture(t.sceneTex)
	ctx.DeleteFramebuffer(t.dofFB)
	ctx.DeleteTexture(t.dofTex)
	for _, lvl := range t.bloomLevels {
		ctx.DeleteFramebuffer(lvl.fb)
		ctx.DeleteTexture(lvl.tex)
	}
}

// CaptureScene blits the default framebuffer's color buffer (already
// carrying every opaque-through-always-visible draw this frame) into
// sceneTex, giving the bloom/DOF/final-imaging fragment passes below
// something to sample.
func (t PostProcessTargets) CaptureScene(ctx *glbackend.Context) {
	defaultFB := glbackend.FramebufferHandle{Width: t.Width, Height: t.Height}
	ctx.BlitFramebuffer(defaultFB, t.sceneFB, glColorBufferBit)
}

// DispatchBloom runs the N-step gather-downsample chain of spec.md
// §4.13, sampling sceneTex into level 0 and each subsequent level from
// the one before it. Returns the smallest level's texture, the bloom
// contribution DispatchFinalImaging composites back in. If the program
// is still building or bloom is disabled, sceneTex is returned unchanged
// so the final pass still has a valid texture to sample.
func DispatchBloom(ctx *glbackend.Context, programs *ProgramSystem, targets PostProcessTargets, cfg BloomConfig) glbackend.TextureHandle {
	if !cfg.Enable || len(targets.bloomLevels) == 0 {
		return targets.sceneTex
	}
	prog := programs.GetProgram(bloomDownsampleProgramKey)
	if !prog.IsBuilt() {
		return targets.sceneTex
	}
	ctx.SetDepthTest(false, false)
	ctx.UseProgram(uint32(prog.Index))
	src := targets.sceneTex
	for _, lvl := range targets.bloomLevels {
		ctx.BindFramebuffer(lvl.fb)
		ctx.BindTextureUnit(0, src)
		ctx.DrawFullscreenTriangle()
		src = lvl.tex
	}
	return src
}

// DispatchDOF runs the bokeh-blur fragment pass of spec.md §4.13 over
// sceneTex into targets.dofFB. Returns sceneTex unchanged when DOF is
// disabled or the program hasn't finished building, so callers always
// get back a valid texture to composite.
func DispatchDOF(ctx *glbackend.Context, programs *ProgramSystem, targets PostProcessTargets, cfg DOFConfig) glbackend.TextureHandle {
	if !cfg.Enabled() {
		return targets.sceneTex
	}
	prog := programs.GetProgram(dofProgramKey)
	if !prog.IsBuilt() {
		return targets.sceneTex
	}
	ctx.BindFramebuffer(targets.dofFB)
	ctx.SetDepthTest(false, false)
	ctx.UseProgram(uint32(prog.Index))
	ctx.BindTextureUnit(0, targets.sceneTex)
	ctx.DrawFullscreenTriangle()
	return targets.dofTex
}

// DispatchFinalImaging composites the DOF/bloom results back onto the
// default framebuffer: sum all blur levels with bloom_strength, apply
// exposure and saturation, per spec.md §4.13 "Final imaging". This is
// the last write to the default framebuffer before overlays.
func DispatchFinalImaging(ctx *glbackend.Context, programs *ProgramSystem, params FinalImagingParams, baseTex, bloomTex glbackend.TextureHandle, viewportW, viewportH int32) {
	prog := programs.GetProgram(finalImagingProgramKey)
	if !prog.IsBuilt() {
		return
	}
	ctx.BindDefaultFramebuffer(viewportW, viewportH)
	ctx.SetDepthTest(false, false)
	ctx.UseProgram(uint32(prog.Index))
	ctx.BindTextureUnit(0, baseTex)
	ctx.BindTextureUnit(1, bloomTex)
	ctx.DrawFullscreenTriangle()
}

// --- UI overlay pass, spec.md §4.14 ---

// SortOverlays orders overlay objects by z-translation descending
// (painter's algorithm), per spec.md §4.14.
func SortOverlays(overlays []*metadata.OverlayObject) []*metadata.OverlayObject {
	out := make([]*metadata.OverlayObject, len(overlays))
	copy(out, overlays)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZOrder > out[j].ZOrder
	})
	return out
}

// The Overlay* constants are the glBlendFuncSeparate factors of spec.md
// §4.14: "RGB blends as normal alpha-over but the destination alpha
// accumulates to 1". Values are the standard GL blend-factor enums,
// resolved by the caller's glbackend.Context.SetBlendSeparate.
const (
	OverlaySrcRGB   = 0x0302 // GL_SRC_ALPHA
	OverlayDstRGB   = 0x0303 // GL_ONE_MINUS_SRC_ALPHA
	OverlaySrcAlpha = 0x0001 // GL_ONE
	OverlayDstAlpha = 0x0001 // GL_ONE
)
