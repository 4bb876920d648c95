package metadata

import "github.com/spaghettifunk/anima/engine/math"

type ProjectionType uint8

const (
	ProjectionPerspective ProjectionType = iota
	ProjectionOrthographic
	ProjectionDiagonalOrthographic
	ProjectionIdentity
)

/**
 * @brief A set of Objects plus the scene-wide knobs spec.md §3
 * describes under "Scene". A SceneSystem holds one current scene
 * (SceneSystem.Scene).
 */
type Scene struct {
	Name string

	Projection      ProjectionType
	CameraTransform math.Mat4
	SunDirection    math.Vec3
	BackgroundColor math.Vec4

	WaterLevel   float32
	WindStrength float32

	BloomEnable    bool
	BloomStrength  float32
	DOFBlurStrength float32
	Exposure       float32
	Saturation     float32

	// objects is the top-level frustum-culled, depth-tested set; every
	// admitted object is in exactly this set or AlwaysVisible (§3 invariant).
	Objects       map[uint32]*Object
	AlwaysVisible map[uint32]*Object

	// Secondary indices: an object may additionally be in zero or more.
	Transparent  map[uint32]*Object
	AlphaBlended map[uint32]*Object
	Decal        map[uint32]*Object
	Water        map[uint32]*Object
	Materialise  map[uint32]*Object
	Animated     map[uint32]*Object
}

func NewScene(name string) *Scene {
	return &Scene{
		Name:          name,
		Exposure:      1.0,
		Saturation:    1.0,
		Objects:       make(map[uint32]*Object),
		AlwaysVisible: make(map[uint32]*Object),
		Transparent:   make(map[uint32]*Object),
		AlphaBlended:  make(map[uint32]*Object),
		Decal:         make(map[uint32]*Object),
		Water:         make(map[uint32]*Object),
		Materialise:   make(map[uint32]*Object),
		Animated:      make(map[uint32]*Object),
	}
}

// indexObject places o in its primary set plus any secondary indices its
// current material flags require; called by addObject and whenever a
// material behavioral flag flips (spec.md §4.3, §3 invariant).
func (s *Scene) IndexObject(o *Object) {
	if o.HasFlag(ObjectFlagAlwaysVisible) {
		s.AlwaysVisible[o.ID] = o
		delete(s.Objects, o.ID)
	} else {
		s.Objects[o.ID] = o
		delete(s.AlwaysVisible, o.ID)
	}

	setMembership(s.Transparent, o, hasAnyMaterialFlag(o, MaterialFlagTransparent))
	setMembership(s.AlphaBlended, o, hasAnyMaterialFlag(o, MaterialFlagAlphaBlend|MaterialFlagParticipatingMedia))
	setMembership(s.Decal, o, hasAnyMaterialFlag(o, MaterialFlagDecal))
	setMembership(s.Water, o, hasAnyMaterialFlag(o, MaterialFlagWater))
	setMembership(s.Materialise, o, hasAnyMaterialFlag(o, MaterialFlagMaterialiseEffect))
	setMembership(s.Animated, o, o.IsAnimated())
}

func (s *Scene) RemoveObject(id uint32) {
	delete(s.Objects, id)
	delete(s.AlwaysVisible, id)
	delete(s.Transparent, id)
	delete(s.AlphaBlended, id)
	delete(s.Decal, id)
	delete(s.Water, id)
	delete(s.Materialise, id)
	delete(s.Animated, id)
}

func setMembership(set map[uint32]*Object, o *Object, member bool) {
	if member {
		set[o.ID] = o
	} else {
		delete(set, o.ID)
	}
}

func hasAnyMaterialFlag(o *Object, mask MaterialBehaviorFlags) bool {
	for _, m := range o.Materials {
		if m != nil && m.BehaviorFlags&mask != 0 {
			return true
		}
	}
	return false
}
