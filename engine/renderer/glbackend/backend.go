package glbackend

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"github.com/spaghettifunk/anima/engine/core"
)

// Context is the low-level GPU wrapper collaborator spec.md §2's
// dependency order calls out as external ("buffer handle, texture
// handle, framebuffer handle, shader compile"). Everything in
// engine/systems builds on this rather than calling gl directly, the
// same boundary the teacher drew around its (now-removed) Vulkan
// RendererBackend interface.
type Context struct {
	initialized  bool
	emptyVAO     uint32
	emptyVAOInit bool
}

func NewContext() (*Context, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	core.LogInfo("OpenGL version: %s", gl.GoStr(gl.GetString(gl.VERSION)))
	return &Context{initialized: true}, nil
}

// BufferHandle wraps a GL buffer object (VBO/IBO/UBO/SSBO).
type BufferHandle struct {
	ID     uint32
	Target uint32
	Size   uint64
}

func (c *Context) CreateBuffer(target uint32, sizeBytes uint64, data unsafe.Pointer) BufferHandle {
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(target, id)
	gl.BufferData(target, int(sizeBytes), data, gl.DYNAMIC_DRAW)
	return BufferHandle{ID: id, Target: target, Size: sizeBytes}
}

func (c *Context) UpdateBuffer(b BufferHandle, offset, size uint64, data unsafe.Pointer) {
	gl.BindBuffer(b.Target, b.ID)
	gl.BufferSubData(b.Target, int(offset), int(size), data)
}

// ExpandBuffer grows a buffer to newSizeBytes via GPU-to-GPU copy,
// preserving the live region; the caller chooses the new size.
func (c *Context) ExpandBuffer(old BufferHandle, newSizeBytes uint64) BufferHandle {
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, id)
	gl.BufferData(gl.COPY_WRITE_BUFFER, int(newSizeBytes), nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.COPY_READ_BUFFER, old.ID)
	gl.CopyBufferSubData(gl.COPY_READ_BUFFER, gl.COPY_WRITE_BUFFER, 0, 0, int(old.Size))
	gl.DeleteBuffers(1, &old.ID)
	return BufferHandle{ID: id, Target: old.Target, Size: newSizeBytes}
}

func (c *Context) DeleteBuffer(b BufferHandle) {
	id := b.ID
	gl.DeleteBuffers(1, &id)
}

// BindUniformBlock binds a UBO/SSBO to a fixed binding point, per
// spec.md §4.1 "Named uniform blocks bound to fixed binding points".
func (c *Context) BindUniformBlock(b BufferHandle, bindingPoint uint32, isStorage bool) {
	target := uint32(gl.UNIFORM_BUFFER)
	if isStorage {
		target = gl.SHADER_STORAGE_BUFFER
	}
	gl.BindBufferBase(target, bindingPoint, b.ID)
}

// TextureHandle wraps a GL texture object.
type TextureHandle struct {
	ID     uint32
	Target uint32
}

func (c *Context) CreateTexture2D(width, height int32, internalFormat, format, dataType uint32, data unsafe.Pointer) TextureHandle {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(internalFormat), width, height, 0, format, dataType, data)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	return TextureHandle{ID: id, Target: gl.TEXTURE_2D}
}

func (c *Context) BindTextureUnit(unit uint32, t TextureHandle) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(t.Target, t.ID)
}

func (c *Context) DeleteTexture(t TextureHandle) {
	id := t.ID
	gl.DeleteTextures(1, &id)
}

// FramebufferHandle wraps a GL FBO plus its attachments, sized to the
// viewport and reallocated only on resize, per spec.md §4.13.
type FramebufferHandle struct {
	ID          uint32
	Width       int32
	Height      int32
	Attachments []TextureHandle
}

func (c *Context) CreateFramebuffer(width, height int32) FramebufferHandle {
	var id uint32
	gl.GenFramebuffers(1, &id)
	return FramebufferHandle{ID: id, Width: width, Height: height}
}

func (c *Context) AttachColorTexture(fb FramebufferHandle, index uint32, t TextureHandle) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.ID)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+index, t.Target, t.ID, 0)
}

func (c *Context) AttachDepthTexture(fb FramebufferHandle, t TextureHandle) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.ID)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, t.Target, t.ID, 0)
}

func (c *Context) BindFramebuffer(fb FramebufferHandle) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.ID)
	gl.Viewport(0, 0, fb.Width, fb.Height)
}

func (c *Context) BindDefaultFramebuffer(width, height int32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, width, height)
}

func (c *Context) BlitFramebuffer(src, dst FramebufferHandle, mask uint32) {
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, src.ID)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, dst.ID)
	gl.BlitFramebuffer(0, 0, src.Width, src.Height, 0, 0, dst.Width, dst.Height, mask, gl.NEAREST)
}

func (c *Context) DeleteFramebuffer(fb FramebufferHandle) {
	id := fb.ID
	gl.DeleteFramebuffers(1, &id)
}

func (c *Context) Clear(color bool, depth bool) {
	var mask uint32
	if color {
		mask |= gl.COLOR_BUFFER_BIT
	}
	if depth {
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		gl.Clear(mask)
	}
}

func (c *Context) SetClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
}

func (c *Context) SetDepthTest(enable bool, write bool) {
	if enable {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(write)
}

func (c *Context) SetBlend(enable bool, srcFactor, dstFactor uint32) {
	if enable {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(srcFactor, dstFactor)
	} else {
		gl.Disable(gl.BLEND)
	}
}

func (c *Context) SetBlendSeparate(srcRGB, dstRGB, srcA, dstA uint32) {
	gl.Enable(gl.BLEND)
	gl.BlendFuncSeparate(srcRGB, dstRGB, srcA, dstA)
}

func (c *Context) SetCullMode(front, back bool) {
	if !front && !back {
		gl.Disable(gl.CULL_FACE)
		return
	}
	gl.Enable(gl.CULL_FACE)
	switch {
	case front && back:
		gl.CullFace(gl.FRONT_AND_BACK)
	case front:
		gl.CullFace(gl.FRONT)
	default:
		gl.CullFace(gl.BACK)
	}
}

func (c *Context) UseProgram(id uint32) {
	gl.UseProgram(id)
}

// DrawIndexed issues one direct draw call (non-MDI path), per spec.md
// §4.10 "or issues one direct draw call".
func (c *Context) DrawIndexed(indexType uint32, count int32, offsetBytes uint64, baseVertex int32, instanceCount int32) {
	if instanceCount <= 1 {
		gl.DrawElementsBaseVertex(gl.TRIANGLES, count, indexType, gl.PtrOffset(int(offsetBytes)), baseVertex)
		return
	}
	gl.DrawElementsInstancedBaseVertex(gl.TRIANGLES, count, indexType, gl.PtrOffset(int(offsetBytes)), instanceCount, baseVertex)
}

// DrawMultiIndirect flushes a batch of queued MDI commands in one driver
// call, per spec.md §4.10 "Flushes queued multi-draw commands".
func (c *Context) DrawMultiIndirect(drawCount int32, stride int32) {
	gl.MultiDrawElementsIndirect(gl.TRIANGLES, gl.UNSIGNED_INT, nil, drawCount, stride)
}

// DrawFullscreenTriangle issues a single oversized triangle covering the
// whole viewport, the attribute-less full-screen-pass idiom every
// screen-space program (SSAO, blur, post-process) draws with: the vertex
// shader derives clip-space position from gl_VertexID, so no vertex
// buffer is bound. Core-profile GL still requires a VAO bound to issue
// any draw call even with no attributes, hence the lazily-created empty
// one.
func (c *Context) DrawFullscreenTriangle() {
	if !c.emptyVAOInit {
		gl.GenVertexArrays(1, &c.emptyVAO)
		c.emptyVAOInit = true
	}
	gl.BindVertexArray(c.emptyVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
}
