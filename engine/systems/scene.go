package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// SceneSystem owns the current Scene plus the resident GPU tables and
// light grid object admission writes through, per spec.md §4.3 "Object
// Admission and Denormalized Draw Records".
type SceneSystem struct {
	mu      sync.Mutex
	scene   *metadata.Scene
	buffers *GPUBufferSystem
	lights  *LightGrid
	programs *ProgramSystem

	nextObjectID uint32
}

func NewSceneSystem(name string, buffers *GPUBufferSystem, lights *LightGrid, programs *ProgramSystem) *SceneSystem {
	return &SceneSystem{
		scene:    metadata.NewScene(name),
		buffers:  buffers,
		lights:   lights,
		programs: programs,
	}
}

func (ss *SceneSystem) Scene() *metadata.Scene { return ss.scene }

// AddObject implements spec.md §4.3 steps 1-10 in order.
func (ss *SceneSystem) AddObject(o *metadata.Object) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if o.Mesh == nil {
		return fmt.Errorf("cannot admit object: mesh is nil")
	}

	// 1. Validate material indices of all mesh batches lie in range.
	for _, b := range o.Mesh.Batches {
		if int(b.MaterialSlot) >= len(o.Materials) {
			return core.ErrMaterialIndexOutOfRange
		}
	}

	if o.ID == 0 {
		ss.nextObjectID++
		o.ID = ss.nextObjectID
	}

	// 2. Assign per_ob_vert_index.
	o.PerObVertIndex = ss.buffers.AllocatePerObject()

	// 3. Assign material_index per material slot; upload material parameters.
	o.MaterialIndex = make([]uint32, len(o.Materials))
	for i, m := range o.Materials {
		idx := ss.buffers.AllocateMaterial()
		o.MaterialIndex[i] = idx
		if m != nil {
			ss.buffers.UpdateMaterial(idx, materialToGPU(m))
		}
	}

	// 4. If skinned, allocate a contiguous joint-matrix block.
	if o.Mesh.HasFeature(metadata.MeshFeatureUsesSkinning) && o.Mesh.Rig != nil {
		count := uint32(len(o.Mesh.Rig.JointNodes))
		if count > 0 {
			base, err := ss.buffers.AllocateJointBlock(count)
			if err != nil {
				return err
			}
			o.JointMatricesBaseIndex = int32(base)
			o.JointCount = int32(count)
			o.JointMatrices = make([]math.Mat4, count)
		}
	}

	// 5. Resolve shader program per material and depth-draw program.
	ss.assignShaderPrograms(o)

	// 6-10.
	ss.rebuildDerivedState(o)

	ss.scene.IndexObject(o)
	return nil
}

// RemoveObject reverses AddObject: returns all GPU slots to their free
// lists and removes the object from every scene set.
func (ss *SceneSystem) RemoveObject(id uint32) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	o, ok := ss.scene.Objects[id]
	if !ok {
		o, ok = ss.scene.AlwaysVisible[id]
	}
	if !ok {
		return core.ErrObjectNotFound
	}

	ss.buffers.FreePerObject(o.PerObVertIndex)
	for _, idx := range o.MaterialIndex {
		ss.buffers.FreeMaterial(idx)
	}
	if o.JointCount > 0 {
		ss.buffers.FreeJointBlock(uint32(o.JointMatricesBaseIndex))
	}
	for _, b := range o.DrawBatches {
		_ = b // draw-command table slots are owned by the draw enumerator (§4.10), not here
	}

	ss.scene.RemoveObject(id)
	return nil
}

// RebuildDerivedState re-runs spec.md §4.3 steps 6-10, used on admission
// and whenever a transform sign flip, material flag flip, or texture
// alpha flip invalidates the precomputed draw records.
func (ss *SceneSystem) RebuildDerivedState(o *metadata.Object) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.rebuildDerivedState(o)
	ss.scene.IndexObject(o)
}

func (ss *SceneSystem) rebuildDerivedState(o *metadata.Object) {
	// 6. Compute world AABB from local AABB and transform.
	o.WorldAABB = math.TransformAABB(o.Mesh.LocalAABB, o.WorldTransform)

	// 7. Assign lights from the light-grid to light_indices[].
	o.LightIndices = ss.lights.AssignLights(o.WorldAABB)

	// 8. Upload per-object vert data.
	ss.buffers.UpdatePerObject(o.PerObVertIndex, metadata.PerObjectVertData{
		ModelMatrix:  o.WorldTransform,
		NormalMatrix: o.NormalMatrix,
		LightIndices: o.LightIndices,
		UVScale:      math.Vec2{X: 1, Y: 1},
	})

	// 9. Compute depth-draw batches by coalescing adjacent mesh batches.
	o.DepthDrawBatches = coalesceDepthBatches(o)

	// 10. Build per-batch draw records.
	o.DrawBatches = ss.buildDrawBatches(o)
}

// coalesceDepthBatches merges adjacent mesh batches that share a
// depth-draw program, share face-culling bits and have contiguous index
// ranges. Alpha-test is not checked: batches meeting those three
// conditions merge whether or not they alpha-test.
func coalesceDepthBatches(o *metadata.Object) []metadata.BatchDrawInfo {
	batches := o.Mesh.Batches
	if len(batches) == 0 {
		return nil
	}
	out := make([]metadata.BatchDrawInfo, 0, len(batches))
	cur := batchToDepthDrawInfo(o, batches[0])
	for i := 1; i < len(batches); i++ {
		b := batches[i]
		prev := batches[i-1]
		sameProgram := b.DepthDrawProg == prev.DepthDrawProg
		sameCull := b.FaceCullMode == prev.FaceCullMode
		contiguous := prev.PrimStartB+prev.NumIndices*indexSizeBytes(prev.IndexType) == b.PrimStartB
		if sameProgram && sameCull && contiguous {
			cur.NumIndices += b.NumIndices
			continue
		}
		out = append(out, cur)
		cur = batchToDepthDrawInfo(o, b)
	}
	out = append(out, cur)
	return out
}

func indexSizeBytes(t metadata.IndexType) uint32 {
	if t == metadata.IndexTypeUint32 {
		return 4
	}
	return 2
}

func batchToDepthDrawInfo(o *metadata.Object, b metadata.Batch) metadata.BatchDrawInfo {
	flags := cullFlags(b.FaceCullMode)
	matIdx := uint32(0)
	if int(b.MaterialSlot) < len(o.MaterialIndex) {
		matIdx = o.MaterialIndex[b.MaterialSlot]
	}
	return metadata.BatchDrawInfo{
		ProgramIndexAndFlags: metadata.NewProgramIndexAndFlags(b.DepthDrawProg, flags),
		MaterialIndex:        matIdx,
		PrimStartOffsetB:     b.PrimStartB,
		NumIndices:           b.NumIndices,
		IndexType:            b.IndexType,
	}
}

// buildDrawBatches constructs the per-batch draw record of spec.md §4.3
// step 10: { program_index_and_flags, vao_and_vbo_key,
// material_data_or_mat_index, prim_start_offset_B, num_indices }. The
// program index and PIFProgramBuilt bit come from the material's
// ShaderID (set by assignShaderPrograms, which always runs first) and
// that program's current build state, so a rebuild after PollBuilding
// reports a variant finished picks up the built bit without any other
// caller having to poke the batch directly.
func (ss *SceneSystem) buildDrawBatches(o *metadata.Object) []metadata.BatchDrawInfo {
	out := make([]metadata.BatchDrawInfo, 0, len(o.Mesh.Batches))
	for _, b := range o.Mesh.Batches {
		flags := cullFlags(b.FaceCullMode)
		programIdx := int32(0)
		if int(b.MaterialSlot) < len(o.Materials) && o.Materials[b.MaterialSlot] != nil {
			m := o.Materials[b.MaterialSlot]
			if m.HasFlag(metadata.MaterialFlagTransparent) {
				flags |= metadata.PIFTransparent
			}
			if m.HasFlag(metadata.MaterialFlagWater) {
				flags |= metadata.PIFWater
			}
			if m.HasFlag(metadata.MaterialFlagDecal) {
				flags |= metadata.PIFDecal
			}
			if m.HasFlag(metadata.MaterialFlagAlphaBlend) {
				flags |= metadata.PIFAlphaBlend
			}
			programIdx = int32(m.ShaderID)
			if p := ss.programs.Get(programIdx); p != nil && p.IsBuilt() {
				flags |= metadata.PIFProgramBuilt
			}
		}
		matIdx := uint32(0)
		if int(b.MaterialSlot) < len(o.MaterialIndex) {
			matIdx = o.MaterialIndex[b.MaterialSlot]
		}
		out = append(out, metadata.BatchDrawInfo{
			ProgramIndexAndFlags: metadata.NewProgramIndexAndFlags(programIdx, flags),
			VAOAndVBOKey:         uint64(o.Mesh.UniqueID),
			MaterialIndex:        matIdx,
			PrimStartOffsetB:     b.PrimStartB,
			NumIndices:           b.NumIndices,
			IndexType:            b.IndexType,
		})
	}
	return out
}

func cullFlags(mode metadata.FaceCullMode) metadata.ProgramIndexAndFlags {
	switch mode {
	case metadata.FaceCullModeFront:
		return metadata.PIFFaceCullFront
	case metadata.FaceCullModeBack:
		return metadata.PIFFaceCullBack
	default:
		return 0
	}
}

// assignShaderPrograms resolves the program variant for each
// material slot and the object's depth-draw program, per spec.md §4.3
// step 5: depends on material flags, mesh feature flags, and instancing.
func (ss *SceneSystem) assignShaderPrograms(o *metadata.Object) {
	instancing := len(o.InstanceTransforms) > 0
	for slotIdx, m := range o.Materials {
		if m == nil {
			continue
		}
		key := metadata.NewProgramKey(materialProgramFamily(m), metadata.ProgramKeyArgs{
			VertColours:           o.Mesh.HasFeature(metadata.MeshFeatureHasVertColours),
			InstanceMatrices:      instancing,
			Skinning:              o.Mesh.HasFeature(metadata.MeshFeatureUsesSkinning),
			VertTangents:          o.Mesh.HasFeature(metadata.MeshFeatureHasVertTangents),
			UseWindVertShader:     m.HasFlag(metadata.MaterialFlagUseWindVertShader),
			DoubleSided:           m.HasFlag(metadata.MaterialFlagFancyDoubleSided),
			MaterialiseEffect:     m.HasFlag(metadata.MaterialFlagMaterialiseEffect),
			Decal:                 m.HasFlag(metadata.MaterialFlagDecal),
			ParticipatingMedia:    m.HasFlag(metadata.MaterialFlagParticipatingMedia),
			Imposter:              m.HasFlag(metadata.MaterialFlagImposter),
		})
		prog := ss.programs.GetProgram(key)
		m.ShaderID = uint32(prog.Index)

		depthProg := ss.programs.GetDepthDrawProgram(key)
		m.DepthProgramID = depthProg.Index

		for bi, b := range o.Mesh.Batches {
			if int(b.MaterialSlot) == slotIdx {
				o.Mesh.Batches[bi].DepthDrawProg = depthProg.Index
			}
		}
		_ = slotIdx
	}
}

func materialProgramFamily(m *metadata.Material) string {
	switch {
	case m.HasFlag(metadata.MaterialFlagWater):
		return "water"
	case m.HasFlag(metadata.MaterialFlagParticipatingMedia):
		return "participating_media"
	case m.HasFlag(metadata.MaterialFlagImposter):
		return "imposter"
	case m.HasFlag(metadata.MaterialFlagTransparent), m.HasFlag(metadata.MaterialFlagAlphaBlend):
		return "transparent"
	default:
		return "phong"
	}
}

func materialToGPU(m *metadata.Material) metadata.MaterialGPUData {
	return metadata.MaterialGPUData{
		DiffuseColour:     [4]float32{m.DiffuseColour.X, m.DiffuseColour.Y, m.DiffuseColour.Z, m.DiffuseColour.W},
		AlbedoMatrix:      m.AlbedoMatrix.Data,
		UniformFlags:      uint32(m.UniformFlags),
		BehaviorFlags:     uint32(m.BehaviorFlags),
		Shininess:         m.Shininess,
		Roughness:         m.Roughness,
		Metallic:          m.Metallic,
		EmissionScale:     m.EmissionScale,
		MaterialiseLowerZ: m.MaterialiseLowerZ,
		MaterialiseUpperZ: m.MaterialiseUpperZ,
	}
}
