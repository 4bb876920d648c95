package systems

import (
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/glbackend"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// GL enum values the occlusion/blur attachments are created with. Passed
// straight through to glbackend.Context.CreateTexture2D, which otherwise
// has no reason to depend on a specific format; kept local the way
// passes_post.go's OverlaySrc*/OverlayDst* blend constants are.
const (
	glRED          = 0x1903
	glR8           = 0x8229
	glUnsignedByte = 0x1401
)

// SSAOConfig matches spec.md §4.9's half-resolution, near-camera-only
// scope: "a limited set (opaque, near camera, within 80 units)".
type SSAOConfig struct {
	Enable        bool
	MaxDistance   float32
	ResolutionDiv int // 2 = half resolution
}

func DefaultSSAOConfig() SSAOConfig {
	return SSAOConfig{Enable: true, MaxDistance: 80.0, ResolutionDiv: 2}
}

// SelectPrepassObjects filters objects into the SSAO prepass subset:
// frustum-visible and with AABB centroid within MaxDistance of the
// camera. Material opacity is not checked; transparent objects passed in
// are selected like opaque ones.
func SelectPrepassObjects(objects map[uint32]*metadata.Object, frustum math.Frustum, cameraPos math.Vec3, cfg SSAOConfig) []*metadata.Object {
	out := make([]*metadata.Object, 0, len(objects))
	maxDistSq := cfg.MaxDistance * cfg.MaxDistance
	for _, o := range objects {
		if !frustum.IntersectsAABB(o.WorldAABB) {
			continue
		}
		d := o.WorldAABB.Centroid().Sub(cameraPos)
		if d.X*d.X+d.Y*d.Y+d.Z*d.Z > maxDistSq {
			continue
		}
		out = append(out, o)
	}
	return out
}

// SSAOPrepassTargets names the prepass attachments of spec.md §4.9: a
// raw occlusion target the SSAO program writes to, and a blurred target
// the blur program resolves it into, both single-channel and sized at
// ResolutionDiv of the main viewport.
type SSAOPrepassTargets struct {
	Width, Height int32

	occlusionFB  glbackend.FramebufferHandle
	occlusionTex glbackend.TextureHandle
	blurredFB    glbackend.FramebufferHandle
	blurredTex   glbackend.TextureHandle
}

func NewSSAOPrepassTargets(ctx *glbackend.Context, viewportW, viewportH int32, cfg SSAOConfig) SSAOPrepassTargets {
	div := cfg.ResolutionDiv
	if div <= 0 {
		div = 1
	}
	w, h := viewportW/int32(div), viewportH/int32(div)

	occTex := ctx.CreateTexture2D(w, h, glR8, glRED, glUnsignedByte, nil)
	occFB := ctx.CreateFramebuffer(w, h)
	ctx.AttachColorTexture(occFB, 0, occTex)

	blurTex := ctx.CreateTexture2D(w, h, glR8, glRED, glUnsignedByte, nil)
	blurFB := ctx.CreateFramebuffer(w, h)
	ctx.AttachColorTexture(blurFB, 0, blurTex)

	return SSAOPrepassTargets{
		Width: w, Height: h,
		occlusionFB: occFB, occlusionTex: occTex,
		blurredFB: blurFB, blurredTex: blurTex,
	}
}

func (t SSAOPrepassTargets) Release(ctx *glbackend.Context) {
	ctx.DeleteFramebuffer(t.occlusionFB)
	ctx.DeleteTexture(t.occlusionTex)
	ctx.DeleteFramebuffer(t.blurredFB)
	ctx.DeleteTexture(t.blurredTex)
}

// BlurredTexture is the final, screen-space ambient-occlusion factor
// consumed by the opaque pass's lighting program (bound as an input
// texture unit alongside the G-buffer).
func (t SSAOPrepassTargets) BlurredTexture() glbackend.TextureHandle { return t.blurredTex }

// ssaoProgramKey and ssaoBlurProgramKey name the two screen-space
// program families of spec.md §4.9: one computes raw occlusion from the
// depth/normal prepass, the other denoises it.
var (
	ssaoProgramKey     = metadata.NewProgramKey("ssao", metadata.ProgramKeyArgs{})
	ssaoBlurProgramKey = metadata.NewProgramKey("ssao_blur", metadata.ProgramKeyArgs{})
)

// DispatchSSAO runs the two-pass occlusion compute and blur of spec.md
// §4.9 as full-screen fragment passes (the GL 4.1 core profile this
// backend targets has no compute-shader stage; a full-screen triangle
// into a small offscreen target is the GL-native equivalent every
// deferred SSAO implementation before compute shaders used). Both
// programs must already resolve through programs, the same async Program
// Variant Cache every other pass draws through; if either is still
// building this frame, the previous frame's occlusion buffer is left
// bound unchanged.
func DispatchSSAO(ctx *glbackend.Context, programs *ProgramSystem, targets SSAOPrepassTargets) {
	ssao := programs.GetProgram(ssaoProgramKey)
	blur := programs.GetProgram(ssaoBlurProgramKey)
	if !ssao.IsBuilt() || !blur.IsBuilt() {
		return
	}

	ctx.BindFramebuffer(targets.occlusionFB)
	ctx.SetDepthTest(false, false)
	ctx.UseProgram(uint32(ssao.Index))
	ctx.DrawFullscreenTriangle()

	ctx.BindFramebuffer(targets.blurredFB)
	ctx.UseProgram(uint32(blur.Index))
	ctx.BindTextureUnit(0, targets.occlusionTex)
	ctx.DrawFullscreenTriangle()
}
