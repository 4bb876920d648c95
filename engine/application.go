package engine

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima/engine/assets"
	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/math"
	"github.com/spaghettifunk/anima/engine/platform"
	"github.com/spaghettifunk/anima/engine/renderer/glbackend"
	"github.com/spaghettifunk/anima/engine/systems"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name string
	// The structured-logging level name ("debug", "info", "warn", "error", "fatal").
	LogLevel string
	// Overrides the default per-subsystem sizing; zero value uses
	// systems.DefaultSystemManagerConfig().
	SystemManagerConfig *systems.SystemManagerConfig
	// Root directory under which the shader source provider reads
	// shaders/<family>.vert.glsl / .frag.glsl / .geom.glsl; defaults to "assets".
	ShaderSourceRoot string
	SunDirection     [3]float32
}

type applicationState struct {
	GameInstance  *Game
	IsRunning     bool
	IsSuspended   bool
	PlatformState *platform.Platform
	Width         uint32
	Height        uint32
	Clock         *core.Clock
	LastTime      float64

	GLContext     *glbackend.Context
	SystemManager *systems.SystemManager
}

var newApplication sync.Once

var (
	initialize bool = false
	appState   *applicationState
)

func ApplicationCreate(gameInstance *Game) error {
	if initialize {
		return fmt.Errorf("application already initialized")
	}

	newApplication.Do(func() {
		appState = &applicationState{
			GameInstance: gameInstance,
			Clock:        core.NewClock(),
			IsRunning:    true,
			IsSuspended:  false,
			Width:        0,
			Height:       0,
			LastTime:     0,
		}
	})

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}

	// register some events
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, 0, applicationOnEvent)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, 0, applicationOnKey)
	core.EventRegister(core.EVENT_CODE_KEY_RELEASED, 0, applicationOnKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, 0, applicationOnResized)

	p, err := platform.New()
	if err != nil {
		return err
	}

	if err := p.Startup(appState.GameInstance.ApplicationConfig.Name,
		appState.GameInstance.ApplicationConfig.StartPosX,
		appState.GameInstance.ApplicationConfig.StartPosY,
		appState.GameInstance.ApplicationConfig.StartWidth,
		appState.GameInstance.ApplicationConfig.StartHeight); err != nil {
		return err
	}
	appState.PlatformState = p
	appState.Width = appState.GameInstance.ApplicationConfig.StartWidth
	appState.Height = appState.GameInstance.ApplicationConfig.StartHeight

	if level := appState.GameInstance.ApplicationConfig.LogLevel; level != "" {
		cfg := core.EngineConfig{LogLevel: level}
		core.SetLogLevel(cfg.ParsedLogLevel())
	}

	// initialize renderer: a GL context plus every subsystem the
	// orchestrator drives each frame.
	glCtx, err := glbackend.NewContext()
	if err != nil {
		return err
	}
	appState.GLContext = glCtx

	smConfig := systems.DefaultSystemManagerConfig()
	if appState.GameInstance.ApplicationConfig.SystemManagerConfig != nil {
		smConfig = *appState.GameInstance.ApplicationConfig.SystemManagerConfig
	}

	shaderRoot := appState.GameInstance.ApplicationConfig.ShaderSourceRoot
	if shaderRoot == "" {
		shaderRoot = "assets"
	}
	sources := assets.NewFileShaderSourceProvider(shaderRoot)
	compiler := glbackend.NewProgramCompiler(glCtx, sources)

	sm, err := systems.NewSystemManager(smConfig, compiler, glCtx, appState.GameInstance.ApplicationConfig.Name, shaderRoot)
	if err != nil {
		return err
	}
	appState.SystemManager = sm
	appState.GameInstance.SystemManager = sm

	if appState.GameInstance.FnBoot != nil {
		if err := appState.GameInstance.FnBoot(); err != nil {
			return err
		}
	}

	if err := appState.GameInstance.FnInitialize(); err != nil {
		return err
	}

	if err := appState.GameInstance.FnOnResize(appState.Width, appState.Height); err != nil {
		return err
	}

	initialize = true

	return nil
}

func ApplicationRun() error {
	appState.Clock.Start()
	appState.Clock.Update()

	appState.LastTime = appState.Clock.Elapsed()

	if err := core.MetricsInitialize(); err != nil {
		return err
	}

	cfg := appState.GameInstance.ApplicationConfig
	sunDir := math.NewVec3(cfg.SunDirection[0], cfg.SunDirection[1], cfg.SunDirection[2]).Normalize()

	for appState.IsRunning {
		appState.PlatformState.PumpMessages()

		appState.Clock.Update()
		currentTime := appState.Clock.Elapsed()
		deltaTime := currentTime - appState.LastTime
		appState.LastTime = currentTime

		if appState.IsSuspended {
			continue
		}

		if err := core.InputUpdate(deltaTime); err != nil {
			return err
		}

		if err := appState.GameInstance.FnUpdate(deltaTime); err != nil {
			core.LogError("game update failed, shutting down: %s", err.Error())
			appState.IsRunning = false
			break
		}

		if err := appState.GameInstance.FnRender(deltaTime); err != nil {
			core.LogError("game render failed, shutting down: %s", err.Error())
			appState.IsRunning = false
			break
		}

		camera := appState.SystemManager.CameraSys.GetDefault()
		appState.SystemManager.Orchestrator.RunFrame(systems.FrameContext{
			Camera:   camera,
			SunDir:   sunDir,
			TimeSec:  currentTime,
			Viewport: [2]int32{int32(appState.Width), int32(appState.Height)},
		})

		core.MetricsUpdate(deltaTime)
	}

	appState.IsRunning = false

	core.EventUnregister(core.EVENT_CODE_APPLICATION_QUIT, 0, applicationOnEvent)
	core.EventUnregister(core.EVENT_CODE_KEY_PRESSED, 0, applicationOnKey)
	core.EventUnregister(core.EVENT_CODE_KEY_RELEASED, 0, applicationOnKey)
	core.EventUnregister(core.EVENT_CODE_RESIZED, 0, applicationOnResized)

	if err := core.InputShutdown(); err != nil {
		return err
	}
	if err := core.EventShutdown(); err != nil {
		return err
	}

	if appState.GameInstance.FnShutdown != nil {
		if err := appState.GameInstance.FnShutdown(); err != nil {
			return err
		}
	}

	if err := appState.SystemManager.Shutdown(); err != nil {
		return err
	}

	return appState.PlatformState.Shutdown()
}

// ApplicationGetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func ApplicationGetFramebufferSize() (uint32, uint32) {
	if appState == nil {
		return 0, 0
	}
	return appState.Width, appState.Height
}

func applicationOnEvent(code core.SystemEventCode, sender interface{}, listener_inst interface{}, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		{
			core.LogInfo("EVENT_CODE_APPLICATION_QUIT recieved, shutting down.\n")
			appState.IsRunning = false
			return true
		}
	}
	return false
}

func applicationOnKey(code core.SystemEventCode, sender interface{}, listener_inst interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_KEY_PRESSED {
		key_code := context.Data.U16[0]
		if key_code == uint16(core.KEY_ESCAPE) {
			// NOTE: Technically firing an event to itself, but there may be other listeners.
			data := core.EventContext{}
			core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, 0, data)
			// Block anything else from processing this.
			return true
		} else if key_code == uint16(core.KEY_A) {
			// Example on checking for a key
			core.LogDebug("Explicit - A key pressed!")
		} else {
			core.LogDebug("'%c' key pressed in window.", key_code)
		}
	} else if code == core.EVENT_CODE_KEY_RELEASED {
		key_code := context.Data.U16[0]
		if key_code == uint16(core.KEY_B) {
			// Example on checking for a key
			core.LogDebug("Explicit - B key released!")
		} else {
			core.LogDebug("'%c' key released in window.", key_code)
		}
	}
	return false
}

func applicationOnResized(code core.SystemEventCode, sender interface{}, listener_inst interface{}, context core.EventContext) bool {
	if code == core.EVENT_CODE_RESIZED {
		width := context.Data.U16[0]
		height := context.Data.U16[1]

		// Check if different. If so, trigger a resize event.
		if width != uint16(appState.Width) || height != uint16(appState.Height) {
			appState.Width = uint32(width)
			appState.Height = uint32(height)

			core.LogDebug("Window resize: %d, %d", width, height)

			// Handle minimization
			if width == 0 || height == 0 {
				core.LogInfo("Window minimized, suspending application.")
				appState.IsSuspended = true
				return true
			} else {
				if appState.IsSuspended {
					core.LogInfo("Window restored, resuming application.")
					appState.IsSuspended = false
				}
				appState.GameInstance.FnOnResize(uint32(width), uint32(height))

				// renderer_on_resized(width, height)
			}
		}
	}
	// Event purposely not handled to allow other listeners to get this.
	return false
}
