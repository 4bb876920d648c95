package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/components"
)

/** @brief The camera system configuration. */
type CameraSystemConfig struct {
	/** @brief The maximum number of cameras that can be managed by the system. */
	MaxCameraCount uint16
}

type CameraSystem struct {
	config CameraSystemConfig
	lookup map[string]uint16
	slots  []*components.CameraLookup
	free   []uint16

	// A default, non-registered camera that always exists as a fallback.
	defaultCamera *components.Camera

	mu sync.Mutex
}

func NewCameraSystem(config CameraSystemConfig) (*CameraSystem, error) {
	if config.MaxCameraCount == 0 {
		err := fmt.Errorf("camera system config.MaxCameraCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	cs := &CameraSystem{
		config:        config,
		lookup:        make(map[string]uint16, config.MaxCameraCount),
		slots:         make([]*components.CameraLookup, config.MaxCameraCount),
		free:          make([]uint16, config.MaxCameraCount),
		defaultCamera: components.NewCamera(),
	}
	for i := uint16(0); i < config.MaxCameraCount; i++ {
		cs.free[i] = config.MaxCameraCount - 1 - i
	}
	return cs, nil
}

func (cs *CameraSystem) Shutdown() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.lookup = nil
	cs.slots = nil
	return nil
}

// Acquire returns the named camera, creating it on first use. Internal
// reference counter is incremented.
func (cs *CameraSystem) Acquire(name string) (*components.Camera, error) {
	if name == components.DEFAULT_CAMERA_NAME {
		return cs.defaultCamera, nil
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	if id, ok := cs.lookup[name]; ok {
		cs.slots[id].ReferenceCount++
		return cs.slots[id].Camera, nil
	}

	if len(cs.free) == 0 {
		err := fmt.Errorf("camera system has no free slots; increase CameraSystemConfig.MaxCameraCount")
		core.LogError(err.Error())
		return nil, err
	}
	id := cs.free[len(cs.free)-1]
	cs.free = cs.free[:len(cs.free)-1]

	core.LogDebug("Creating new camera named '%s'...", name)
	cs.slots[id] = &components.CameraLookup{ID: id, ReferenceCount: 1, Camera: components.NewCamera()}
	cs.lookup[name] = id

	return cs.slots[id].Camera, nil
}

// Release decrements the named camera's reference count, returning its
// slot to the free list once it reaches zero.
func (cs *CameraSystem) Release(name string) {
	if name == components.DEFAULT_CAMERA_NAME {
		core.LogDebug("cannot release the default camera; nothing was done")
		return
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	id, ok := cs.lookup[name]
	if !ok {
		core.LogWarn("camera system release failed lookup for '%s'; nothing was done", name)
		return
	}
	cs.slots[id].ReferenceCount--
	if cs.slots[id].ReferenceCount < 1 {
		delete(cs.lookup, name)
		cs.slots[id] = nil
		cs.free = append(cs.free, id)
	}
}

func (cs *CameraSystem) GetDefault() *components.Camera {
	return cs.defaultCamera
}
