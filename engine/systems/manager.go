package systems

import (
	"strings"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/renderer/glbackend"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// programFamilyFromShaderPath recovers the program family name from a
// FileShaderSourceProvider path of the form ".../<family>.vert.glsl",
// ".../<family>.frag.glsl", or ".../<family>.geom.glsl" (see
// engine/assets/shadersource.go), so a watched file edit can be mapped
// back to the ProgramSystem key that needs rebuilding.
func programFamilyFromShaderPath(path string) (string, bool) {
	base := path
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		base = path[i+1:]
	}
	base = strings.TrimSuffix(base, ".glsl")
	for _, stage := range []string{".vert", ".frag", ".geom"} {
		if strings.HasSuffix(base, stage) {
			return strings.TrimSuffix(base, stage), true
		}
	}
	return "", false
}

// SystemManagerConfig aggregates the per-system configs the engine boots
// with. Sensible defaults are provided by NewSystemManager when a field is
// left zero-valued, mirroring how the camera/job systems already expose
// their own Default*Config helpers.
type SystemManagerConfig struct {
	GPUBuffers GPUBufferSystemConfig
	Programs   ProgramSystemConfig
	Animation  AnimationSystemConfig
	Shadows    ShadowSystemConfig
	Textures   TextureSystemConfig
	Camera     CameraSystemConfig
	JobWorkers int
}

func DefaultSystemManagerConfig() SystemManagerConfig {
	return SystemManagerConfig{
		GPUBuffers: DefaultGPUBufferSystemConfig(),
		Programs:   DefaultProgramSystemConfig(),
		Animation:  DefaultAnimationSystemConfig(),
		Shadows:    DefaultShadowSystemConfig(),
		Textures:   DefaultTextureSystemConfig(),
		Camera:     CameraSystemConfig{MaxCameraCount: 32},
		JobWorkers: 4,
	}
}

// SystemManager owns every subsystem the render pipeline needs for a
// frame and is what Game.Initialize/Update/Render reach through, the way
// the original engine reached every major system through one struct
// handed to the game layer.
type SystemManager struct {
	Jobs       *JobSystem
	Buffers    *GPUBufferSystem
	Lights     *LightGrid
	Programs   *ProgramSystem
	Scene      *SceneSystem
	Animation  *AnimationSystem
	Shadows    *ShadowSystem
	Textures   *TextureSystem
	CameraSys  *CameraSystem
	Orchestrator *Orchestrator

	assets *assets.AssetManager
}

// LoadTexture resolves path through the Texture Residency Cache,
// decoding it via the same AssetManager/loaders.ImageLoader path every
// other tracked asset uses when the cache doesn't already hold it.
func (sm *SystemManager) LoadTexture(path string, flipY bool) (*metadata.Texture, error) {
	return sm.Textures.Acquire(path, func() (*metadata.Texture, error) {
		return sm.assets.TextureLoadFunc(path, flipY)
	})
}

// NewSystemManager wires every subsystem together in dependency order:
// jobs and buffers first (nothing depends on anything), then the systems
// that reference them, then the scene graph that references those, and
// finally the orchestrator that reaches into all of them each frame.
func NewSystemManager(config SystemManagerConfig, compiler ProgramCompiler, ctx *glbackend.Context, sceneName string, assetsDir string) (*SystemManager, error) {
	jobs, err := NewJobSystem(config.JobWorkers, metadata.MAX_JOB_RESULTS)
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		return nil, err
	}
	if err := am.Initialize(assetsDir); err != nil {
		return nil, err
	}

	buffers := NewGPUBufferSystem(config.GPUBuffers)
	lights := NewLightGrid()
	programs := NewProgramSystem(config.Programs, compiler, jobs)
	am.OnShaderSourceChanged = func(path string) {
		if family, ok := programFamilyFromShaderPath(path); ok {
			programs.Reload(family)
		}
	}
	scene := NewSceneSystem(sceneName, buffers, lights, programs)
	anim := NewAnimationSystem(config.Animation)
	shadows := NewShadowSystem(config.Shadows)
	textures := NewTextureSystem(config.Textures)
	cameraSys, err := NewCameraSystem(config.Camera)
	if err != nil {
		return nil, err
	}

	orch := NewOrchestrator(ctx, scene, buffers, lights, programs, anim, shadows, textures)

	return &SystemManager{
		Jobs:         jobs,
		Buffers:      buffers,
		Lights:       lights,
		Programs:     programs,
		Scene:        scene,
		Animation:    anim,
		Shadows:      shadows,
		Textures:     textures,
		CameraSys:    cameraSys,
		Orchestrator: orch,
		assets:       am,
	}, nil
}

// Shutdown tears down the systems that own background goroutines.
func (sm *SystemManager) Shutdown() error {
	sm.Orchestrator.Shutdown()
	if err := sm.Jobs.Shutdown(); err != nil {
		return err
	}
	if err := sm.assets.Close(); err != nil {
		return err
	}
	return sm.CameraSys.Shutdown()
}
