package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// freeListTable is a growable slice-backed table with a free-index set,
// following the teacher's acquire/release slot pattern (engine/systems/camera.go)
// generalized to the four GPU-resident tables of spec.md §3/§4.2.
type freeListTable struct {
	mu       sync.Mutex
	elemSize uint64
	capacity uint32
	free     []uint32
	live     map[uint32]bool
}

func newFreeListTable(initialCapacity uint32, elemSize uint64) *freeListTable {
	t := &freeListTable{
		elemSize: elemSize,
		capacity: initialCapacity,
		free:     make([]uint32, initialCapacity),
		live:     make(map[uint32]bool, initialCapacity),
	}
	for i := uint32(0); i < initialCapacity; i++ {
		t.free[i] = initialCapacity - 1 - i
	}
	return t
}

// Allocate returns a free index, expanding the table (doubling capacity,
// simulating a GPU-to-GPU copy of the live region) when exhausted.
func (t *freeListTable) Allocate() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.free) == 0 {
		t.expandLocked()
	}
	idx := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	t.live[idx] = true
	return idx
}

// Free returns idx to the free set. Freeing an index not currently live
// is a no-op (mirrors the teacher's release-on-zero-refcount guard).
func (t *freeListTable) Free(idx uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.live[idx] {
		return
	}
	delete(t.live, idx)
	t.free = append(t.free, idx)
}

func (t *freeListTable) expandLocked() {
	oldCap := t.capacity
	newCap := oldCap * 2
	if newCap == 0 {
		newCap = 1
	}
	for i := newCap - 1; i >= oldCap; i-- {
		t.free = append(t.free, i)
		if i == 0 {
			break
		}
	}
	t.capacity = newCap
	core.LogDebug("gpu table expanded %d -> %d (%d bytes/elem)", oldCap, newCap, t.elemSize)
}

func (t *freeListTable) Capacity() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.capacity
}

// jointRange is a contiguous [Start, Start+Count) allocation in the
// joint-matrix table.
type jointRange struct {
	Start uint32
	Count uint32
}

// jointAllocator is a best-fit allocator over a single contiguous capacity,
// used for joint_matrices per spec.md §4.2 ("differs: best-fit over a
// contiguous range").
type jointAllocator struct {
	mu       sync.Mutex
	capacity uint32
	free     []jointRange // sorted by Start, non-overlapping
	live     map[uint32]jointRange
}

func newJointAllocator(initialCapacity uint32) *jointAllocator {
	return &jointAllocator{
		capacity: initialCapacity,
		free:     []jointRange{{Start: 0, Count: initialCapacity}},
		live:     make(map[uint32]jointRange),
	}
}

// Allocate finds the smallest free range that fits count, splitting off
// any remainder. Expands (rounding to the next power-of-two at least
// cur+count) when no range fits.
func (a *jointAllocator) Allocate(count uint32) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	best := -1
	for i, r := range a.free {
		if r.Count >= count && (best == -1 || r.Count < a.free[best].Count) {
			best = i
		}
	}
	if best == -1 {
		a.expandLocked(count)
		for i, r := range a.free {
			if r.Count >= count && (best == -1 || r.Count < a.free[best].Count) {
				best = i
			}
		}
	}

	r := a.free[best]
	start := r.Start
	if r.Count == count {
		a.free = append(a.free[:best], a.free[best+1:]...)
	} else {
		a.free[best] = jointRange{Start: r.Start + count, Count: r.Count - count}
	}
	a.live[start] = jointRange{Start: start, Count: count}
	return start
}

func (a *jointAllocator) Free(start uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	r, ok := a.live[start]
	if !ok {
		return
	}
	delete(a.live, start)
	a.free = append(a.free, r)
	a.coalesceLocked()
}

func (a *jointAllocator) coalesceLocked() {
	if len(a.free) < 2 {
		return
	}
	// simple O(n^2) coalesce; joint-allocation churn is low relative to draw volume.
	merged := true
	for merged {
		merged = false
		for i := 0; i < len(a.free); i++ {
			for j := i + 1; j < len(a.free); j++ {
				a2, b := a.free[i], a.free[j]
				if a2.Start+a2.Count == b.Start {
					a.free[i] = jointRange{Start: a2.Start, Count: a2.Count + b.Count}
					a.free = append(a.free[:j], a.free[j+1:]...)
					merged = true
					break
				} else if b.Start+b.Count == a2.Start {
					a.free[i] = jointRange{Start: b.Start, Count: a2.Count + b.Count}
					a.free = append(a.free[:j], a.free[j+1:]...)
					merged = true
					break
				}
			}
			if merged {
				break
			}
		}
	}
}

func (a *jointAllocator) expandLocked(minExtra uint32) {
	target := a.capacity + minExtra
	newCap := uint32(1)
	for newCap < target {
		newCap *= 2
	}
	a.free = append(a.free, jointRange{Start: a.capacity, Count: newCap - a.capacity})
	core.LogDebug("joint_matrices allocator expanded %d -> %d", a.capacity, newCap)
	a.capacity = newCap
	a.coalesceLocked()
}

// GPUBufferSystemConfig sets initial table sizes; each table expands on
// demand per spec.md §4.2.
type GPUBufferSystemConfig struct {
	InitialObjectCapacity   uint32
	InitialMaterialCapacity uint32
	InitialLightCapacity    uint32
	InitialDrawCapacity     uint32
	InitialJointCapacity    uint32
}

func DefaultGPUBufferSystemConfig() GPUBufferSystemConfig {
	return GPUBufferSystemConfig{
		InitialObjectCapacity:   4096,
		InitialMaterialCapacity: 1024,
		InitialLightCapacity:    256,
		InitialDrawCapacity:     8192,
		InitialJointCapacity:    16384,
	}
}

// GPUBufferSystem owns the four numbered resident tables of spec.md §3
// plus the joint-matrix best-fit region. CPU-side mirrors are kept so the
// values can be staged into the real GPU buffer by an external collaborator.
type GPUBufferSystem struct {
	config GPUBufferSystemConfig

	perObject  *freeListTable
	material   *freeListTable
	light      *freeListTable
	drawCmd    *freeListTable
	jointAlloc *jointAllocator

	perObjectData map[uint32]metadata.PerObjectVertData
	materialData  map[uint32]metadata.MaterialGPUData
	lightData     map[uint32]metadata.LightGPUData
	drawCmdData   map[uint32]metadata.DrawIndirectCommand
	jointData     map[uint32][]math.Mat4

	mu sync.Mutex
}

func NewGPUBufferSystem(config GPUBufferSystemConfig) *GPUBufferSystem {
	return &GPUBufferSystem{
		config:        config,
		perObject:     newFreeListTable(config.InitialObjectCapacity, 0),
		material:      newFreeListTable(config.InitialMaterialCapacity, 0),
		light:         newFreeListTable(config.InitialLightCapacity, 0),
		drawCmd:       newFreeListTable(config.InitialDrawCapacity, 0),
		jointAlloc:    newJointAllocator(config.InitialJointCapacity),
		perObjectData: make(map[uint32]metadata.PerObjectVertData),
		materialData:  make(map[uint32]metadata.MaterialGPUData),
		lightData:     make(map[uint32]metadata.LightGPUData),
		drawCmdData:   make(map[uint32]metadata.DrawIndirectCommand),
		jointData:     make(map[uint32][]math.Mat4),
	}
}

// UpdateJointBlock writes the joint matrices for the block starting at base.
func (g *GPUBufferSystem) UpdateJointBlock(base uint32, matrices []math.Mat4) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.jointData[base] = matrices
}

func (g *GPUBufferSystem) AllocatePerObject() uint32 { return g.perObject.Allocate() }
func (g *GPUBufferSystem) FreePerObject(idx uint32) {
	g.mu.Lock()
	delete(g.perObjectData, idx)
	g.mu.Unlock()
	g.perObject.Free(idx)
}

func (g *GPUBufferSystem) UpdatePerObject(idx uint32, data metadata.PerObjectVertData) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.perObjectData[idx] = data
}

func (g *GPUBufferSystem) AllocateMaterial() uint32 { return g.material.Allocate() }
func (g *GPUBufferSystem) FreeMaterial(idx uint32) {
	g.mu.Lock()
	delete(g.materialData, idx)
	g.mu.Unlock()
	g.material.Free(idx)
}

func (g *GPUBufferSystem) UpdateMaterial(idx uint32, data metadata.MaterialGPUData) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.materialData[idx] = data
}

func (g *GPUBufferSystem) AllocateLight() uint32 { return g.light.Allocate() }
func (g *GPUBufferSystem) FreeLight(idx uint32) {
	g.mu.Lock()
	delete(g.lightData, idx)
	g.mu.Unlock()
	g.light.Free(idx)
}

func (g *GPUBufferSystem) UpdateLight(idx uint32, data metadata.LightGPUData) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lightData[idx] = data
}

func (g *GPUBufferSystem) AllocateDrawCommand() uint32 { return g.drawCmd.Allocate() }
func (g *GPUBufferSystem) FreeDrawCommand(idx uint32) {
	g.mu.Lock()
	delete(g.drawCmdData, idx)
	g.mu.Unlock()
	g.drawCmd.Free(idx)
}

func (g *GPUBufferSystem) UpdateDrawCommand(idx uint32, cmd metadata.DrawIndirectCommand) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drawCmdData[idx] = cmd
}

// AllocateJointBlock allocates a contiguous range of count joint matrices
// and returns its base index, per spec.md §4.3 step 4.
func (g *GPUBufferSystem) AllocateJointBlock(count uint32) (uint32, error) {
	if count == 0 {
		return 0, fmt.Errorf("joint block count must be > 0")
	}
	return g.jointAlloc.Allocate(count), nil
}

func (g *GPUBufferSystem) FreeJointBlock(base uint32) {
	g.mu.Lock()
	delete(g.jointData, base)
	g.mu.Unlock()
	g.jointAlloc.Free(base)
}
