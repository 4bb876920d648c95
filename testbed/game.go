package testbed

import (
	"fmt"

	"github.com/spaghettifunk/anima/engine"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/renderer/components"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	WorldCamera *components.Camera
	width       uint32
	height      uint32
}

var moveSpeed float32 = 10.0
var turnSpeed float32 = 1.0

func NewTestGame() (*TestGame, error) {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				StartPosX:        100,
				StartPosY:        100,
				StartWidth:       1280,
				StartHeight:      720,
				Name:             "Anima Game Engine",
				LogLevel:         "debug",
				ShaderSourceRoot: "assets",
				SunDirection:     [3]float32{-0.4, -1.0, -0.3},
			},
			State: &gameState{},
		},
	}

	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Boot() error {
	core.LogInfo("booting testbed...")
	return nil
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.SystemManager == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers")
	}

	state := g.State.(*gameState)
	state.WorldCamera = g.SystemManager.CameraSys.GetDefault()
	state.WorldCamera.SetPosition(math.NewVec3(10.5, 5.0, 9.5))

	if err := g.spawnTestCube(); err != nil {
		return err
	}

	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, g, g.gameOnKey)
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, g, g.gameOnKey)

	return nil
}

// spawnTestCube admits one unit cube into the scene, built by hand
// rather than loaded, to exercise the object-admission sequence
// (material upload, shader resolution, batch coalescing) without a
// content pipeline.
func (g *TestGame) spawnTestCube() error {
	material := &metadata.Material{
		Name:          "test_material",
		DiffuseColour: math.NewVec4Create(0.8, 0.8, 0.8, 1.0),
		Shininess:     32.0,
		Roughness:     0.6,
		Metallic:      0.0,
	}

	mesh := &metadata.Mesh{
		UniqueID: 1,
		Batches: []metadata.Batch{
			{
				MaterialSlot: 0,
				PrimStartB:   0,
				NumIndices:   36,
				IndexType:    metadata.IndexTypeUint16,
				FaceCullMode: metadata.FaceCullModeBack,
			},
		},
		LocalAABB: math.Extents3D{Min: math.NewVec3(-0.5, -0.5, -0.5), Max: math.NewVec3(0.5, 0.5, 0.5)},
	}

	obj := &metadata.Object{
		WorldTransform:  math.NewMat4Translation(math.NewVec3(0, 0, 0)),
		NormalMatrix:    math.NewMat4Identity(),
		DeterminantSign: 1.0,
		LocalAABB:       mesh.LocalAABB,
		Mesh:            mesh,
		Materials:       []*metadata.Material{material},
	}

	return g.SystemManager.Scene.AddObject(obj)
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	cam := state.WorldCamera

	if core.InputIsKeyDown(core.KEY_W) {
		cam.MoveForward(moveSpeed * float32(deltaTime))
	}
	if core.InputIsKeyDown(core.KEY_S) {
		cam.MoveBackward(moveSpeed * float32(deltaTime))
	}
	if core.InputIsKeyDown(core.KEY_A) {
		cam.MoveLeft(moveSpeed * float32(deltaTime))
	}
	if core.InputIsKeyDown(core.KEY_D) {
		cam.MoveRight(moveSpeed * float32(deltaTime))
	}
	if core.InputIsKeyDown(core.KEY_SPACE) {
		cam.MoveUp(moveSpeed * float32(deltaTime))
	}
	if core.InputIsKeyDown(core.KEY_X) {
		cam.MoveDown(moveSpeed * float32(deltaTime))
	}
	if core.InputIsKeyDown(core.KEY_LEFT) {
		cam.Yaw(-turnSpeed * float32(deltaTime))
	}
	if core.InputIsKeyDown(core.KEY_RIGHT) {
		cam.Yaw(turnSpeed * float32(deltaTime))
	}

	fps, frameTime := core.MetricsFrame()
	pos := cam.GetPosition()
	core.LogDebug("FPS: %5.1f (%4.1fms) Pos=[%7.3f %7.3f %7.3f]", fps, frameTime, pos.X, pos.Y, pos.Z)

	return nil
}

// Render has nothing left to do itself: the engine's own orchestrator
// drives the 19-step pass sequence immediately after this hook returns,
// reading straight from the scene this game built in Initialize. It
// exists so a game can stage per-frame scene mutations (spawning,
// despawning, animation triggers) before that sequence runs.
func (g *TestGame) Render(deltaTime float64) error {
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	return nil
}

func (g *TestGame) gameOnKey(code core.SystemEventCode, sender interface{}, listenerInst interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_KEY_PRESSED {
		keyCode := context.Data.U16[0]
		if keyCode == uint16(core.KEY_ESCAPE) {
			core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, g, core.EventContext{})
			return true
		}
	}
	return false
}
