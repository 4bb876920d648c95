package systems

import (
	"sync"

	"github.com/spaghettifunk/anima/engine/core"
	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

// ProgramCompiler is the low-level wrapper collaborator (spec.md §2
// dependency order item 1: "buffer handle, texture handle, framebuffer
// handle, shader compile") that this cache is built over. An external
// backend supplies the actual compile+link call.
type ProgramCompiler interface {
	Compile(key metadata.ProgramKey) (*metadata.Program, error)
}

// ProgramSystemConfig names the basic-phong / basic-depth fallback
// families used when a variant fails to build (spec.md §4.1 "Build
// failure yields a fallback program of the same family").
type ProgramSystemConfig struct {
	FallbackPhongName string
	FallbackDepthName string
	BuildWorkerCount  int
}

func DefaultProgramSystemConfig() ProgramSystemConfig {
	return ProgramSystemConfig{
		FallbackPhongName: "phong",
		FallbackDepthName: "depth",
		BuildWorkerCount:  2,
	}
}

// ProgramSystem is the Program Variant Cache of spec.md §4.1: it maps a
// ProgramKey to a dense program_index assigned in creation order, and
// compiles missing variants asynchronously via the job system.
type ProgramSystem struct {
	config   ProgramSystemConfig
	compiler ProgramCompiler
	jobs     *JobSystem

	mu          sync.Mutex
	byKey       map[uint64]int32 // packed (name-hash, keyVal) -> index
	programs    []*metadata.Program
	building    map[int32]bool
}

// packKey combines the program name and keyVal into one lookup key; name
// collisions are astronomically unlikely for the small, fixed family set
// in spec.md §4.1, and a collision only costs a redundant compile.
func packKey(key metadata.ProgramKey) uint64 {
	var h uint64 = 1469598103934665603 // FNV offset basis
	for i := 0; i < len(key.ProgramName); i++ {
		h ^= uint64(key.ProgramName[i])
		h *= 1099511628211
	}
	return h<<32 | uint64(key.KeyVal())
}

func NewProgramSystem(config ProgramSystemConfig, compiler ProgramCompiler, jobs *JobSystem) *ProgramSystem {
	return &ProgramSystem{
		config:   config,
		compiler: compiler,
		jobs:     jobs,
		byKey:    make(map[uint64]int32),
		programs: make([]*metadata.Program, 0, 64),
		building: make(map[int32]bool),
	}
}

// GetProgram returns the cached program for key, starting an async build
// if it has never been requested before. Until the build completes the
// returned program's IsBuilt() is false and must not be bound for drawing.
func (ps *ProgramSystem) GetProgram(key metadata.ProgramKey) *metadata.Program {
	ps.mu.Lock()
	packed := packKey(key)
	if idx, ok := ps.byKey[packed]; ok {
		p := ps.programs[idx]
		ps.mu.Unlock()
		return p
	}

	idx := int32(len(ps.programs))
	p := &metadata.Program{Index: idx, Key: key, State: metadata.ProgramStateBuilding}
	ps.programs = append(ps.programs, p)
	ps.byKey[packed] = idx
	ps.building[idx] = true
	ps.mu.Unlock()

	ps.submitBuild(idx, key)
	return p
}

// GetDepthDrawProgram normalizes bits irrelevant to depth-only draws
// before lookup, per spec.md §4.1, to maximize program reuse.
func (ps *ProgramSystem) GetDepthDrawProgram(key metadata.ProgramKey) *metadata.Program {
	return ps.GetProgram(key.DepthKey())
}

func (ps *ProgramSystem) submitBuild(idx int32, key metadata.ProgramKey) {
	ps.jobs.AddWorkNonBlocking(metadata.JobTask{
		JobType:     metadata.JOB_TYPE_GPU_RESOURCE,
		Priority:    metadata.JOB_PRIORITY_NORMAL,
		InputParams: key,
		OnStart: func(params interface{}, output chan<- interface{}) error {
			k := params.(metadata.ProgramKey)
			compiled, err := ps.compiler.Compile(k)
			if err != nil {
				return err
			}
			output <- compiled
			return nil
		},
		OnComplete: func(paramsChan <-chan interface{}) {
			compiled := (<-paramsChan).(*metadata.Program)
			ps.finishBuild(idx, compiled, metadata.ProgramStateBuiltOK)
		},
		OnFailure: func(paramsChan <-chan interface{}) {
			core.LogWarn("program build failed for '%s' (key=%d); falling back", key.ProgramName, key.KeyVal())
			ps.buildFallback(idx, key)
		},
	})
}

func (ps *ProgramSystem) buildFallback(idx int32, key metadata.ProgramKey) {
	fallbackName := ps.config.FallbackPhongName
	if key.Decal || key.ParticipatingMedia {
		// depth-only families fall back to the depth family instead of phong
		fallbackName = ps.config.FallbackDepthName
	}
	fallbackKey := metadata.NewProgramKey(fallbackName, metadata.ProgramKeyArgs{})
	compiled, err := ps.compiler.Compile(fallbackKey)
	if err != nil {
		core.LogError("fallback program '%s' also failed to compile: %v", fallbackName, err)
		ps.finishBuild(idx, &metadata.Program{Index: idx, Key: key}, metadata.ProgramStateFailedFallback)
		return
	}
	compiled.Index = idx
	compiled.Key = key
	ps.finishBuild(idx, compiled, metadata.ProgramStateFailedFallback)
}

func (ps *ProgramSystem) finishBuild(idx int32, compiled *metadata.Program, state metadata.ProgramState) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	compiled.State = state
	ps.programs[idx] = compiled
	delete(ps.building, idx)
}

// PollBuilding reports how many variants are still compiling, so the
// orchestrator can decide whether batch flags need re-resolution this
// frame (spec.md §3 "the core polls a building_progs queue each frame").
func (ps *ProgramSystem) PollBuilding() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.building)
}

// Reload resubmits a build for every cached program whose family name
// matches, used by the hot-reload watcher when a .glsl source on disk
// changes (spec.md §4.1's Program Variant Cache holds one *Program per
// key; editing its source in place re-enters the same async build path
// GetProgram uses, rather than a separate recompile routine).
func (ps *ProgramSystem) Reload(programFamily string) {
	ps.mu.Lock()
	type staleEntry struct {
		idx int32
		key metadata.ProgramKey
	}
	var stale []staleEntry
	for idx, p := range ps.programs {
		if p != nil && p.Key.ProgramName == programFamily {
			stale = append(stale, staleEntry{idx: int32(idx), key: p.Key})
			p.State = metadata.ProgramStateBuilding
			ps.building[int32(idx)] = true
		}
	}
	ps.mu.Unlock()

	for _, e := range stale {
		ps.submitBuild(e.idx, e.key)
	}
}

func (ps *ProgramSystem) Get(index int32) *metadata.Program {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if index < 0 || int(index) >= len(ps.programs) {
		return nil
	}
	return ps.programs[index]
}

func (ps *ProgramSystem) Count() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.programs)
}
