package systems

import "testing"

func TestProgramFamilyFromShaderPath(t *testing.T) {
	cases := []struct {
		path       string
		wantFamily string
		wantOK     bool
	}{
		{"assets/shaders/phong.vert.glsl", "phong", true},
		{"assets/shaders/phong.frag.glsl", "phong", true},
		{"assets/shaders/water.geom.glsl", "water", true},
		{"assets/shaders/phong.shadercfg", "", false},
		{"assets/textures/rock.png", "", false},
	}
	for _, c := range cases {
		family, ok := programFamilyFromShaderPath(c.path)
		if ok != c.wantOK || family != c.wantFamily {
			t.Fatalf("programFamilyFromShaderPath(%q) = (%q, %v), want (%q, %v)", c.path, family, ok, c.wantFamily, c.wantOK)
		}
	}
}
