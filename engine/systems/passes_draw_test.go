package systems

import (
	"testing"

	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func newDrawItem(programIndex int32, vaoKey uint64, cullBack bool) drawItem {
	flags := metadata.PIFProgramBuilt
	if cullBack {
		flags |= metadata.PIFFaceCullBack
	}
	return drawItem{
		batch: metadata.BatchDrawInfo{
			ProgramIndexAndFlags: metadata.NewProgramIndexAndFlags(programIndex, flags),
			VAOAndVBOKey:         vaoKey,
			NumIndices:           3,
		},
		obj: &metadata.Object{},
	}
}

func TestRadixSortDrawItemsGroupsByProgram(t *testing.T) {
	items := []drawItem{
		newDrawItem(3, 1, false),
		newDrawItem(1, 2, false),
		newDrawItem(2, 1, false),
		newDrawItem(1, 1, false),
	}
	RadixSortDrawItems(items)

	for i := 1; i < len(items); i++ {
		if items[i].batch.SortKey() < items[i-1].batch.SortKey() {
			t.Fatalf("items not sorted ascending by key at index %d: %d < %d", i, items[i].batch.SortKey(), items[i-1].batch.SortKey())
		}
	}
	// program 1's two batches should be adjacent once sorted.
	firstProgOneIdx := -1
	for i, it := range items {
		if it.batch.ProgramIndexAndFlags.ProgramIndex() == 1 {
			if firstProgOneIdx == -1 {
				firstProgOneIdx = i
			} else if i != firstProgOneIdx+1 {
				t.Fatalf("program 1's batches are not adjacent after sort: indices %d and %d", firstProgOneIdx, i)
			}
		}
	}
}

func TestRadixSortDrawItemsStableOnSingleItem(t *testing.T) {
	items := []drawItem{newDrawItem(5, 9, true)}
	RadixSortDrawItems(items)
	if len(items) != 1 || items[0].batch.ProgramIndexAndFlags.ProgramIndex() != 5 {
		t.Fatalf("single-item sort mutated the slice unexpectedly: %+v", items)
	}
}

func TestEnumerateAndCullSkipsUnbuiltBatches(t *testing.T) {
	built := metadata.NewProgramIndexAndFlags(0, metadata.PIFProgramBuilt)
	unbuilt := metadata.NewProgramIndexAndFlags(0, 0)

	objects := map[uint32]*metadata.Object{
		1: {
			ID:        1,
			WorldAABB: math.Extents3D{Min: math.NewVec3(-1, -1, -1), Max: math.NewVec3(1, 1, 1)},
			DrawBatches: []metadata.BatchDrawInfo{
				{ProgramIndexAndFlags: built, NumIndices: 3},
				{ProgramIndexAndFlags: unbuilt, NumIndices: 3},
			},
		},
	}
	frustum := math.Frustum{} // zero-value frustum: IntersectsAABB must still admit the object below

	items := EnumerateAndCull(objects, frustum, false)
	for _, it := range items {
		if !it.batch.ProgramIndexAndFlags.Has(metadata.PIFProgramBuilt) {
			t.Fatalf("EnumerateAndCull returned an unbuilt batch: %+v", it.batch)
		}
	}
}

func TestSortAlphaBlendedOrdersBackToFront(t *testing.T) {
	near := &metadata.Object{WorldAABB: math.Extents3D{Min: math.NewVec3(-0.5, -0.5, -0.5), Max: math.NewVec3(0.5, 0.5, 0.5)}}
	far := &metadata.Object{WorldAABB: math.Extents3D{Min: math.NewVec3(9.5, -0.5, -0.5), Max: math.NewVec3(10.5, 0.5, 0.5)}}

	items := []drawItem{
		{batch: metadata.BatchDrawInfo{NumIndices: 3}, obj: near},
		{batch: metadata.BatchDrawInfo{NumIndices: 3}, obj: far},
	}
	sorted := SortAlphaBlended(items, math.NewVec3(0, 0, 0))

	if sorted[0].obj != far || sorted[1].obj != near {
		t.Fatalf("expected far object first (back-to-front), got order %v, %v", sorted[0].obj.WorldAABB.Centroid(), sorted[1].obj.WorldAABB.Centroid())
	}
}
