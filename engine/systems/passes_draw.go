package systems

import (
	stdmath "math"
	"sort"

	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/glbackend"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// drawItem pairs one coalesced BatchDrawInfo with the object that owns
// it, per spec.md §4.10 "BatchDrawInfo{ prog_vao_key, ob*, batch_i }".
type drawItem struct {
	batch metadata.BatchDrawInfo
	obj   *metadata.Object
}

// EnumerateAndCull frustum-culls objects against frustum (using its
// precomputed AABB as a cheap disjoint prefilter, per spec.md §4.10) and
// emits one drawItem per surviving batch. useDepthBatches selects the
// coalesced depth-draw batches instead of the full draw batches, for
// shadow/prepass callers.
func EnumerateAndCull(objects map[uint32]*metadata.Object, frustum math.Frustum, useDepthBatches bool) []drawItem {
	items := make([]drawItem, 0, len(objects)*2)
	for _, o := range objects {
		if !frustum.IntersectsAABB(o.WorldAABB) {
			continue
		}
		batches := o.DrawBatches
		if useDepthBatches {
			batches = o.DepthDrawBatches
		}
		for _, b := range batches {
			if !b.ProgramIndexAndFlags.Has(metadata.PIFProgramBuilt) {
				continue // §3 invariant: only program-built batches may be drawn
			}
			items = append(items, drawItem{batch: b, obj: o})
		}
	}
	return items
}

// RadixSortDrawItems sorts items by their 32-bit SortKey using an 8-bit,
// 4-pass LSD radix sort, per spec.md §4.10 "a radix sort on the 32-bit
// key produces the sort order that minimizes state changes".
func RadixSortDrawItems(items []drawItem) {
	n := len(items)
	if n < 2 {
		return
	}
	buf := make([]drawItem, n)
	src, dst := items, buf
	for shift := uint(0); shift < 32; shift += 8 {
		var count [257]int
		for _, it := range src {
			b := (it.batch.SortKey() >> shift) & 0xFF
			count[b+1]++
		}
		for i := 0; i < 256; i++ {
			count[i+1] += count[i]
		}
		for _, it := range src {
			b := (it.batch.SortKey() >> shift) & 0xFF
			dst[count[b]] = it
			count[b]++
		}
		src, dst = dst, src
	}
	if &src[0] != &items[0] {
		copy(items, src)
	}
}

// alphaBlendItem carries the back-to-front sort key of spec.md §4.10
// "Alpha-blended objects use a separate sort: primary key is
// distance-to-camera bit-inverted ... secondary key is the program key."
type alphaBlendItem struct {
	item     drawItem
	distKey  uint32 // bit-inverted squared distance, so ascending sort is back-to-front
}

func SortAlphaBlended(items []drawItem, cameraPos math.Vec3) []drawItem {
	scored := make([]alphaBlendItem, len(items))
	for i, it := range items {
		d := it.obj.WorldAABB.Centroid().Sub(cameraPos)
		sq := d.X*d.X + d.Y*d.Y + d.Z*d.Z
		scored[i] = alphaBlendItem{item: it, distKey: ^float32Bits(sq)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].distKey != scored[j].distKey {
			return scored[i].distKey < scored[j].distKey
		}
		return scored[i].item.batch.SortKey() < scored[j].item.batch.SortKey()
	})
	out := make([]drawItem, len(scored))
	for i, s := range scored {
		out[i] = s.item
	}
	return out
}

func float32Bits(f float32) uint32 {
	// monotonic-for-positive-floats bit reinterpretation; squared
	// distances are always >= 0 so sign handling is unnecessary.
	return stdmath.Float32bits(f)
}

// DrawState tracks the bound program/cull-mode/VAO so the draw loop only
// emits state changes, per spec.md §4.10's draw-loop contract.
type DrawState struct {
	ctx            *glbackend.Context
	curProgram     int32
	curCullFront   bool
	curCullBack    bool
	curVAOKey      uint64
	mdiPending     int32
	mdiActive      bool
}

func NewDrawState(ctx *glbackend.Context) *DrawState {
	return &DrawState{ctx: ctx, curProgram: -1, curVAOKey: ^uint64(0)}
}

// Flush emits any queued MDI commands accumulated since the last state
// change, per spec.md §4.10 "Flushes queued multi-draw commands (if MDI
// is in use)".
func (ds *DrawState) Flush() {
	if ds.mdiActive && ds.mdiPending > 0 {
		ds.ctx.DrawMultiIndirect(ds.mdiPending, 20) // sizeof(DrawIndirectCommand)
	}
	ds.mdiPending = 0
}

// DrawSorted walks items (already sorted by SortKey) issuing state
// changes only when the relevant bits differ, per spec.md §4.10.
func (ds *DrawState) DrawSorted(items []drawItem, programForIndex func(int32) *metadata.Program, useMDI bool) {
	ds.mdiActive = useMDI
	for _, it := range items {
		pif := it.batch.ProgramIndexAndFlags

		wantFront := pif.Has(metadata.PIFFaceCullFront)
		wantBack := pif.Has(metadata.PIFFaceCullBack)
		programIdx := pif.ProgramIndex()

		keyChanged := programIdx != ds.curProgram || wantFront != ds.curCullFront || wantBack != ds.curCullBack
		if keyChanged {
			ds.Flush()
			if wantFront != ds.curCullFront || wantBack != ds.curCullBack {
				ds.ctx.SetCullMode(wantFront, wantBack)
				ds.curCullFront, ds.curCullBack = wantFront, wantBack
			}
			if programIdx != ds.curProgram {
				prog := programForIndex(programIdx)
				if prog != nil {
					ds.ctx.UseProgram(uint32(prog.Index))
				}
				ds.curProgram = programIdx
			}
		}

		if it.batch.VAOAndVBOKey != ds.curVAOKey {
			ds.Flush()
			ds.curVAOKey = it.batch.VAOAndVBOKey
		}

		if useMDI {
			ds.mdiPending++
			continue
		}
		indexType := uint32(0x1403) // GL_UNSIGNED_SHORT
		if it.batch.IndexType == metadata.IndexTypeUint32 {
			indexType = 0x1405 // GL_UNSIGNED_INT
		}
		ds.ctx.DrawIndexed(indexType, int32(it.batch.NumIndices), uint64(it.batch.PrimStartOffsetB), 0, 1)
	}
	ds.Flush()
}
