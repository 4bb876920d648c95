package systems

import (
	"testing"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

func newTestSceneSystem(t *testing.T) *SceneSystem {
	t.Helper()
	jobs, err := NewJobSystem(1, 16)
	if err != nil {
		t.Fatalf("NewJobSystem: %v", err)
	}
	t.Cleanup(func() { jobs.Shutdown() })

	programs := NewProgramSystem(DefaultProgramSystemConfig(), &fakeCompiler{}, jobs)
	buffers := NewGPUBufferSystem(DefaultGPUBufferSystemConfig())
	lights := NewLightGrid()
	return NewSceneSystem("test", buffers, lights, programs)
}

func unitMesh() *metadata.Mesh {
	return &metadata.Mesh{
		UniqueID: 1,
		Batches: []metadata.Batch{
			{MaterialSlot: 0, PrimStartB: 0, NumIndices: 3},
		},
		LocalAABB: math.Extents3D{
			Min: math.NewVec3(-1, -1, -1),
			Max: math.NewVec3(1, 1, 1),
		},
	}
}

func TestSceneSystemAddObjectAssignsIDAndIndexesScene(t *testing.T) {
	ss := newTestSceneSystem(t)
	obj := &metadata.Object{
		Mesh:           unitMesh(),
		Materials:      []*metadata.Material{{}},
		WorldTransform: math.NewMat4Identity(),
	}

	if err := ss.AddObject(obj); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if obj.ID == 0 {
		t.Fatalf("expected AddObject to assign a non-zero ID")
	}
	if _, ok := ss.Scene().Objects[obj.ID]; !ok {
		t.Fatalf("expected object indexed into Scene.Objects")
	}
	if len(obj.DrawBatches) != 1 {
		t.Fatalf("expected 1 draw batch built, got %d", len(obj.DrawBatches))
	}
	if len(obj.MaterialIndex) != 1 {
		t.Fatalf("expected 1 material index allocated, got %d", len(obj.MaterialIndex))
	}
}

func TestSceneSystemAddObjectRejectsOutOfRangeMaterialSlot(t *testing.T) {
	ss := newTestSceneSystem(t)
	mesh := unitMesh()
	mesh.Batches[0].MaterialSlot = 5 // no materials supplied below

	obj := &metadata.Object{Mesh: mesh, WorldTransform: math.NewMat4Identity()}
	err := ss.AddObject(obj)
	if err != core.ErrMaterialIndexOutOfRange {
		t.Fatalf("expected ErrMaterialIndexOutOfRange, got %v", err)
	}
}

func TestSceneSystemAddObjectRejectsNilMesh(t *testing.T) {
	ss := newTestSceneSystem(t)
	if err := ss.AddObject(&metadata.Object{}); err == nil {
		t.Fatalf("expected an error admitting an object with a nil mesh")
	}
}

func TestSceneSystemAddObjectAlwaysVisibleGoesToAlwaysVisibleSet(t *testing.T) {
	ss := newTestSceneSystem(t)
	obj := &metadata.Object{
		Mesh:           unitMesh(),
		Materials:      []*metadata.Material{{}},
		WorldTransform: math.NewMat4Identity(),
		Flags:          metadata.ObjectFlagAlwaysVisible,
	}
	if err := ss.AddObject(obj); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if _, ok := ss.Scene().AlwaysVisible[obj.ID]; !ok {
		t.Fatalf("expected always-visible object indexed into Scene.AlwaysVisible")
	}
	if _, ok := ss.Scene().Objects[obj.ID]; ok {
		t.Fatalf("an always-visible object must not also appear in Scene.Objects")
	}
}

func TestSceneSystemRemoveObjectReturnsErrorForUnknownID(t *testing.T) {
	ss := newTestSceneSystem(t)
	if err := ss.RemoveObject(9999); err != core.ErrObjectNotFound {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestSceneSystemRemoveObjectClearsFromScene(t *testing.T) {
	ss := newTestSceneSystem(t)
	obj := &metadata.Object{
		Mesh:           unitMesh(),
		Materials:      []*metadata.Material{{}},
		WorldTransform: math.NewMat4Identity(),
	}
	if err := ss.AddObject(obj); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if err := ss.RemoveObject(obj.ID); err != nil {
		t.Fatalf("RemoveObject: %v", err)
	}
	if _, ok := ss.Scene().Objects[obj.ID]; ok {
		t.Fatalf("expected object removed from Scene.Objects")
	}
}

func TestSceneSystemRebuildDerivedStateUpdatesWorldAABB(t *testing.T) {
	ss := newTestSceneSystem(t)
	obj := &metadata.Object{
		Mesh:           unitMesh(),
		Materials:      []*metadata.Material{{}},
		WorldTransform: math.NewMat4Identity(),
	}
	if err := ss.AddObject(obj); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	obj.WorldTransform = math.NewMat4Translation(math.NewVec3(10, 0, 0))
	ss.RebuildDerivedState(obj)

	centroid := obj.WorldAABB.Centroid()
	if centroid.X < 9 || centroid.X > 11 {
		t.Fatalf("expected world AABB recentred near x=10 after transform update, got centroid %+v", centroid)
	}
}
