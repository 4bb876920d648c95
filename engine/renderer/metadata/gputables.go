package metadata

/**
 * @brief One row of the GPU-resident `draw_commands` table: a
 * multi-draw-indirect command, packed per spec.md §6.
 */
type DrawIndirectCommand struct {
	Count         uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	BaseInstance  uint32
}

/** @brief One row of the GPU-resident `materials` table (spec.md §3). */
type MaterialGPUData struct {
	DiffuseColour        [4]float32
	AlbedoMatrix         [16]float32
	UniformFlags         uint32
	BehaviorFlags        uint32
	Shininess            float32
	Roughness            float32
	Metallic             float32
	EmissionScale        float32
	MaterialiseLowerZ    float32
	MaterialiseUpperZ    float32
}
