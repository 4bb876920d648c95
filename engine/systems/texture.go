package systems

import (
	"container/list"
	"sync"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// TextureSystemConfig sets the CPU/GPU residency budgets of spec.md
// §4.15, mirrored from the teacher's per-system *SystemConfig pattern.
type TextureSystemConfig = metadata.TextureSystemConfig

func DefaultTextureSystemConfig() TextureSystemConfig {
	return TextureSystemConfig{
		MaxTextureCount: 65536,
		CPUBudgetBytes:  512 * 1024 * 1024,
		GPUBudgetBytes:  1024 * 1024 * 1024,
	}
}

// textureEntry tracks one cache row plus its position in the unused LRU
// list (nil when the texture is in active use).
type textureEntry struct {
	texture  *metadata.Texture
	refCount uint32
	lruElem  *list.Element // valid iff refCount == 0
}

// TextureSystem is the Texture Residency Cache of spec.md §4.15: keyed
// by path, LRU-evicted against CPU/GPU budgets, with a mutex-protected
// deferred "became unused" queue for cross-thread marking.
type TextureSystem struct {
	config TextureSystemConfig

	mu      sync.Mutex
	byPath  map[string]*textureEntry
	unused  *list.List // least-recently-used at Front, most-recent at Back

	cpuUsed uint64
	gpuUsed uint64

	pendingMu sync.Mutex
	pending   []string // became-unused queue, drained at the start of Draw()
}

func NewTextureSystem(config TextureSystemConfig) *TextureSystem {
	return &TextureSystem{
		config: config,
		byPath: make(map[string]*textureEntry),
		unused: list.New(),
	}
}

// Acquire returns the resident texture for path, incrementing its
// reference count. The caller supplies loadFn to populate a brand-new
// entry; it is not called again once the path is cached.
func (ts *TextureSystem) Acquire(path string, loadFn func() (*metadata.Texture, error)) (*metadata.Texture, error) {
	ts.mu.Lock()
	if e, ok := ts.byPath[path]; ok {
		ts.promoteLocked(e)
		ts.mu.Unlock()
		return e.texture, nil
	}
	ts.mu.Unlock()

	tex, err := loadFn()
	if err != nil {
		return nil, err
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	e := &textureEntry{texture: tex, refCount: 1}
	ts.byPath[path] = e
	ts.cpuUsed += tex.CPUBytes
	ts.gpuUsed += tex.GPUBytes
	ts.trimUsageLocked()
	return tex, nil
}

// promoteLocked moves a texture out of the unused list back into active
// use (the inverse of textureBecameUnused), incrementing its ref count.
func (ts *TextureSystem) promoteLocked(e *textureEntry) {
	e.refCount++
	if e.lruElem != nil {
		ts.unused.Remove(e.lruElem)
		e.lruElem = nil
	}
}

// Release drops the caller's reference. When the last reference is
// released, the entry is queued via textureBecameUnused rather than
// immediately mutated, per spec.md §4.15 thread-safety rule;
// DrainBecameUnused later marks it non-resident.
func (ts *TextureSystem) Release(path string) {
	ts.mu.Lock()
	e, ok := ts.byPath[path]
	ts.mu.Unlock()
	if !ok {
		return
	}
	ts.mu.Lock()
	e.refCount--
	becameUnused := e.refCount == 0
	ts.mu.Unlock()
	if becameUnused {
		ts.textureBecameUnused(path)
	}
}

// textureBecameUnused may be called from any thread; it only queues the
// key, per spec.md §4.15 "Thread-safety".
func (ts *TextureSystem) textureBecameUnused(path string) {
	ts.pendingMu.Lock()
	ts.pending = append(ts.pending, path)
	ts.pendingMu.Unlock()
}

// DrainBecameUnused is called once at the start of draw() on the render
// thread, moving each queued path to the unused LRU and marking its
// texture non-resident. Then trimUsageLocked runs.
func (ts *TextureSystem) DrainBecameUnused() {
	ts.pendingMu.Lock()
	keys := ts.pending
	ts.pending = nil
	ts.pendingMu.Unlock()

	if len(keys) == 0 {
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	for _, path := range keys {
		e, ok := ts.byPath[path]
		if !ok || e.lruElem != nil {
			continue
		}
		e.texture.Resident = false
		e.lruElem = ts.unused.PushBack(path)
	}
	ts.trimUsageLocked()
}

// trimUsageLocked evicts least-recently-used unused entries while either
// budget is exceeded and the unused list is non-empty, per spec.md
// §4.15 "trimTextureUsage".
func (ts *TextureSystem) trimUsageLocked() {
	for (ts.cpuUsed > ts.config.CPUBudgetBytes || ts.gpuUsed > ts.config.GPUBudgetBytes) && ts.unused.Len() > 0 {
		front := ts.unused.Front()
		path := front.Value.(string)
		ts.unused.Remove(front)

		e, ok := ts.byPath[path]
		if !ok {
			continue
		}
		ts.cpuUsed -= e.texture.CPUBytes
		ts.gpuUsed -= e.texture.GPUBytes
		delete(ts.byPath, path)
		core.LogDebug("evicted texture '%s' (cpu=%d gpu=%d)", path, ts.cpuUsed, ts.gpuUsed)
	}
}

func (ts *TextureSystem) CPUBytesUsed() uint64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.cpuUsed
}

func (ts *TextureSystem) GPUBytesUsed() uint64 {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.gpuUsed
}
