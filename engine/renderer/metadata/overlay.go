package metadata

import "github.com/spaghettifunk/anima/engine/math"

// OverlayObject is a 2D UI element drawn in the overlay pass, per
// spec.md §4.14: "Overlay objects carry a 2D transform and clip
// rectangle; they are sorted by their object-to-world z translation in
// descending order (painter's algorithm)".
type OverlayObject struct {
	Text      *UIText
	Transform math.Mat4
	ClipRect  math.Vec4 // x, y, width, height in screen space
	ZOrder    float32
}
