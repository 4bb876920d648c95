package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/anima/engine/core"
)

var startTime float64 = 0

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// GetAbsoluteTime returns the GLFW timer value in seconds.
func GetAbsoluteTime() float64 {
	return glfw.GetTime()
}

type Platform struct {
	Window *glfw.Window
}

func New() (*Platform, error) {
	return &Platform{
		Window: nil,
	}, nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		return err
	}
	window.MakeContextCurrent()
	p.Window = window

	p.Window.SetKeyCallback(keyCallback)
	p.Window.SetMouseButtonCallback(mouseButtonCallback)
	p.Window.SetCursorPosCallback(cursorPosCallback)
	p.Window.SetScrollCallback(scrollCallback)
	p.Window.SetFramebufferSizeCallback(framebufferSizeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	startTime = glfw.GetTime()

	return nil
}

func (p *Platform) Shutdown() error {
	glfw.Terminate()
	return nil
}

// PumpMessages drains the window system's event queue, driving every
// callback registered in Startup before the frame's input snapshot is
// taken.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
}

// glfwKeyToCode maps the subset of glfw.Key constants that don't share
// KeyCode's ASCII-range values (letters and digits already line up).
var glfwKeyToCode = map[glfw.Key]core.KeyCode{
	glfw.KeyEscape:    core.KEY_ESCAPE,
	glfw.KeyEnter:     core.KEY_ENTER,
	glfw.KeyTab:       core.KEY_TAB,
	glfw.KeyBackspace: core.KEY_BACKSPACE,
	glfw.KeySpace:     core.KEY_SPACE,
	glfw.KeyLeft:      core.KEY_LEFT,
	glfw.KeyRight:     core.KEY_RIGHT,
	glfw.KeyUp:        core.KEY_UP,
	glfw.KeyDown:      core.KEY_DOWN,
	glfw.KeyLeftShift: core.KEY_SHIFT,
	glfw.KeyDelete:    core.KEY_DELETE,
	glfw.KeyInsert:    core.KEY_INSERT,
	glfw.KeyHome:      core.KEY_HOME,
	glfw.KeyEnd:       core.KEY_END,
	glfw.KeyKP0:       core.KEY_NUMPAD0,
	glfw.KeyKP1:       core.KEY_NUMPAD1,
	glfw.KeyKP2:       core.KEY_NUMPAD2,
}

func translateKey(key glfw.Key) (core.KeyCode, bool) {
	if code, ok := glfwKeyToCode[key]; ok {
		return code, true
	}
	if key >= glfw.KeyA && key <= glfw.KeyZ {
		return core.KeyCode(key), true
	}
	if key >= glfw.Key0 && key <= glfw.Key9 {
		return core.KeyCode(key), true
	}
	return 0, false
}

func keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := translateKey(key)
	if !ok {
		return
	}
	if action == glfw.Repeat {
		return
	}
	_ = core.InputProcessKey(code, action == glfw.Press)
}

func mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	var b core.Button
	switch button {
	case glfw.MouseButtonLeft:
		b = core.BUTTON_LEFT
	case glfw.MouseButtonRight:
		b = core.BUTTON_RIGHT
	case glfw.MouseButtonMiddle:
		b = core.BUTTON_MIDDLE
	default:
		return
	}
	_ = core.InputProcessButton(b, action == glfw.Press)
}

func cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	_ = core.InputProcessMouseMove(uint16(xpos), uint16(ypos))
}

func scrollCallback(w *glfw.Window, xoff, yoff float64) {
	_ = core.InputProcessMouseWheel(int8(yoff))
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	ctx := core.EventContext{}
	ctx.Data.U16[0] = uint16(width)
	ctx.Data.U16[1] = uint16(height)
	core.EventFire(core.EVENT_CODE_RESIZED, w, ctx)
}
