package systems

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spaghettifunk/anima/engine/renderer/metadata"
)

type fakeCompiler struct {
	compileCount int32
	failNames    map[string]bool
}

func (f *fakeCompiler) Compile(key metadata.ProgramKey) (*metadata.Program, error) {
	atomic.AddInt32(&f.compileCount, 1)
	if f.failNames[key.ProgramName] {
		return nil, fmt.Errorf("simulated compile failure for %q", key.ProgramName)
	}
	return &metadata.Program{Key: key}, nil
}

func newTestProgramSystem(t *testing.T, fail map[string]bool) (*ProgramSystem, *fakeCompiler) {
	t.Helper()
	jobs, err := NewJobSystem(2, 64)
	if err != nil {
		t.Fatalf("NewJobSystem: %v", err)
	}
	t.Cleanup(func() { jobs.Shutdown() })

	compiler := &fakeCompiler{failNames: fail}
	ps := NewProgramSystem(DefaultProgramSystemConfig(), compiler, jobs)
	return ps, compiler
}

func waitUntilBuilt(t *testing.T, ps *ProgramSystem, idx int32) *metadata.Program {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p := ps.Get(idx); p != nil && p.State != metadata.ProgramStateBuilding {
			return p
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("program index %d never finished building", idx)
	return nil
}

func TestProgramSystemReturnsSameIndexForSameKey(t *testing.T) {
	ps, _ := newTestProgramSystem(t, nil)
	key := metadata.NewProgramKey("phong", metadata.ProgramKeyArgs{AlphaTest: true})

	p1 := ps.GetProgram(key)
	p2 := ps.GetProgram(key)
	if p1.Index != p2.Index {
		t.Fatalf("same key produced different program indices: %d vs %d", p1.Index, p2.Index)
	}
	waitUntilBuilt(t, ps, p1.Index)
}

func TestProgramSystemDistinctKeysGetDistinctIndices(t *testing.T) {
	ps, _ := newTestProgramSystem(t, nil)
	a := ps.GetProgram(metadata.NewProgramKey("phong", metadata.ProgramKeyArgs{AlphaTest: true}))
	b := ps.GetProgram(metadata.NewProgramKey("phong", metadata.ProgramKeyArgs{AlphaTest: false}))
	if a.Index == b.Index {
		t.Fatalf("distinct keys collapsed to the same program index %d", a.Index)
	}
}

func TestProgramSystemFallsBackOnCompileFailure(t *testing.T) {
	ps, _ := newTestProgramSystem(t, map[string]bool{"broken": true})
	p := ps.GetProgram(metadata.NewProgramKey("broken", metadata.ProgramKeyArgs{}))
	built := waitUntilBuilt(t, ps, p.Index)
	if built.State != metadata.ProgramStateFailedFallback {
		t.Fatalf("expected fallback state after compile failure, got %v", built.State)
	}
}

func TestProgramSystemPollBuildingDrainsToZero(t *testing.T) {
	ps, _ := newTestProgramSystem(t, nil)
	p := ps.GetProgram(metadata.NewProgramKey("phong", metadata.ProgramKeyArgs{}))
	waitUntilBuilt(t, ps, p.Index)
	if n := ps.PollBuilding(); n != 0 {
		t.Fatalf("PollBuilding() = %d after build completed, want 0", n)
	}
}

func TestProgramSystemReloadResubmitsBuildForMatchingFamily(t *testing.T) {
	ps, compiler := newTestProgramSystem(t, nil)
	key := metadata.NewProgramKey("phong", metadata.ProgramKeyArgs{})
	p := ps.GetProgram(key)
	waitUntilBuilt(t, ps, p.Index)

	before := compiler.compileCount
	ps.Reload("phong")
	waitUntilBuilt(t, ps, p.Index)

	if compiler.compileCount <= before {
		t.Fatalf("expected Reload to trigger another compile, count before=%d after=%d", before, compiler.compileCount)
	}
}

func TestProgramSystemReloadIgnoresUnrelatedFamily(t *testing.T) {
	ps, compiler := newTestProgramSystem(t, nil)
	p := ps.GetProgram(metadata.NewProgramKey("phong", metadata.ProgramKeyArgs{}))
	waitUntilBuilt(t, ps, p.Index)

	before := compiler.compileCount
	ps.Reload("water") // no cached program with this family
	if compiler.compileCount != before {
		t.Fatalf("expected no recompile for an unrequested family, count before=%d after=%d", before, compiler.compileCount)
	}
}
